// Package handlers tiene los entry points HTTP del broker: la superficie
// de validación de tenants, la REST de auth para apps nativas, el flujo
// OAuth de browser y el CRUD admin.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/auth"
	"github.com/dropDatabas3/authbroker/internal/flowstate"
	httpx "github.com/dropDatabas3/authbroker/internal/http"
	jwtx "github.com/dropDatabas3/authbroker/internal/jwt"
	"github.com/dropDatabas3/authbroker/internal/linker"
	"github.com/dropDatabas3/authbroker/internal/oauth"
	"github.com/dropDatabas3/authbroker/internal/oauth/facebook"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/registry"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/trust"
)

// Handlers agrupa los servicios a los que despachan los endpoints.
type Handlers struct {
	Auth     *auth.Service
	Registry *registry.Service

	// LoginURL es la superficie de login hosteada a la que vuelve el
	// flujo de browser, en éxito (con tokens) y en falla del provider.
	LoginURL string

	log *zap.Logger
}

func New(a *auth.Service, reg *registry.Service, loginURL string) *Handlers {
	return &Handlers{Auth: a, Registry: reg, LoginURL: loginURL, log: logger.Named("http")}
}

// userView es la forma de user que lleva toda respuesta de auth. El hash
// de password y los ids de provider nunca salen del broker.
type userView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	AuthProvider    string    `json:"auth_provider,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func viewUser(u *core.User) userView {
	return userView{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		AuthProvider:    u.AuthProvider,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
	}
}

// clientView es la forma pública del client: nombre, branding y qué
// providers sociales tiene configurados el tenant. Nunca el token ni los
// secrets OAuth en sí.
type clientView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LogoURL       string `json:"logo_url,omitempty"`
	GoogleLogin   bool   `json:"google_login"`
	FacebookLogin bool   `json:"facebook_login"`
}

func viewClient(c *core.Client) clientView {
	return clientView{
		ID:            c.ID,
		Name:          c.Name,
		LogoURL:       c.LogoURL,
		GoogleLogin:   c.GoogleClientID != "",
		FacebookLogin: c.FacebookAppID != "",
	}
}

type authResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    userView   `json:"user"`
	Client  clientView `json:"client"`
}

func writeSession(w http.ResponseWriter, s *auth.Session) {
	httpx.WriteJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   s.Token,
		User:    viewUser(s.User),
		Client:  viewClient(s.Client),
	})
}

// writeAuthError mapea la taxonomía de errores del servicio a status
// codes y códigos de máquina estables.
func writeAuthError(w http.ResponseWriter, err error) {
	status, code, msg := mapAuthError(err)
	httpx.WriteError(w, status, code, msg)
}

func mapAuthError(err error) (int, string, string) {
	var mismatch *linker.ProviderMismatchError
	var social *linker.SocialAccountError
	var missing *auth.MissingProviderCredentialError
	var pErr *oauth.Error

	switch {
	case errors.Is(err, trust.ErrUnknownClient):
		return http.StatusUnauthorized, "INVALID_CLIENT", "unknown client token"
	case errors.Is(err, trust.ErrInvalidRedirectURL):
		return http.StatusForbidden, "INVALID_REDIRECT_URL", "redirect URL not registered for this client"
	case errors.Is(err, trust.ErrInvalidOrigin):
		return http.StatusForbidden, "INVALID_ORIGIN", "request origin not allowed for this client"
	case errors.Is(err, flowstate.ErrDecode):
		return http.StatusBadRequest, "INVALID_STATE", "malformed state parameter"
	case errors.Is(err, linker.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, linker.ErrDuplicateEmail):
		return http.StatusConflict, "DUPLICATE_EMAIL", "an account with this email already exists"
	case errors.As(err, &mismatch):
		return http.StatusConflict, "DIFFERENT_AUTH_PROVIDER", "this email is registered with " + mismatch.Provider + " login"
	case errors.As(err, &social):
		return http.StatusConflict, "SOCIAL_AUTH_ACCOUNT", "this account uses " + social.Provider + " login, not a password"
	case errors.As(err, &missing):
		return http.StatusBadRequest, "PROVIDER_NOT_CONFIGURED", missing.Error()
	case errors.Is(err, auth.ErrUnknownProvider):
		return http.StatusBadRequest, "UNKNOWN_PROVIDER", "unknown identity provider"
	case errors.Is(err, facebook.ErrEmailRequired):
		return http.StatusBadRequest, "MISSING_EMAIL", "the provider account exposes no email address"
	case errors.As(err, &pErr):
		return http.StatusBadGateway, "PROVIDER_ERROR", "identity provider request failed"
	case errors.Is(err, jwtx.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token"
	case core.IsNotFound(err):
		return http.StatusNotFound, "USER_NOT_FOUND", "user not found"
	case errors.Is(err, registry.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", "missing required client fields"
	case core.IsConflict(err):
		return http.StatusConflict, "CONFLICT", "resource conflict"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
