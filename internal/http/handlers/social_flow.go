package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/flowstate"
	httpx "github.com/dropDatabas3/authbroker/internal/http"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/trust"
)

// SocialStart arranca el flujo OAuth de browser: valida el tenant,
// codifica el flow state y rebota el browser al provider.
//
//	GET /api/auth/{provider}/start?token=...&redirect_url=...
func (h *Handlers) SocialStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	token := r.URL.Query().Get("token")
	redirectURL := r.URL.Query().Get("redirect_url")
	if token == "" || redirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "token and redirect_url query parameters are required")
		return
	}
	authURL, err := h.Auth.BeginSocialFlow(r.Context(), provider, token, redirectURL)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// SocialCallback cierra el flujo OAuth de browser. El provider vuelve
// con code y state; el broker intercambia, linkea, emite y redirige a la
// superficie de login hosteada, que reenvía la sesión a la redirect URL
// del tenant.
//
//	GET /api/auth/{provider}/callback?state=...&code=...
func (h *Handlers) SocialCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	// La cancelación o la denegación del provider llegan como ?error=.
	// El user vuelve a la superficie de login con un marcador neutro; el
	// detalle de error del provider queda en los logs.
	if e := q.Get("error"); e != "" {
		h.log.Warn("provider callback denied",
			zap.String("provider", provider),
			zap.String("error", e))
		httpx.CountLogin(provider, "denied")
		if dest, err := url.Parse(h.LoginURL); err == nil && h.LoginURL != "" {
			v := dest.Query()
			v.Set("cancelled", "true")
			dest.RawQuery = v.Encode()
			http.Redirect(w, r, dest.String(), http.StatusFound)
			return
		}
		httpx.WriteError(w, http.StatusBadGateway, "ACCESS_DENIED", "social login cancelled")
		return
	}

	code := q.Get("code")
	rawState := q.Get("state")
	if code == "" || rawState == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "code and state are required")
		return
	}

	sess, st, err := h.Auth.CompleteSocialFlow(r.Context(), provider, rawState, code)
	if err != nil {
		httpx.CountLogin(provider, "error")
		// Un state que no decodificó o no validó recibe error JSON; una
		// vez conocido el tenant, las fallas rebotan a la superficie de
		// login con el código de error.
		if errors.Is(err, flowstate.ErrDecode) || errors.Is(err, trust.ErrUnknownClient) ||
			errors.Is(err, trust.ErrInvalidRedirectURL) {
			writeAuthError(w, err)
			return
		}
		_, errCode, _ := mapAuthError(err)
		h.redirectFailure(w, r, st.ClientToken, st.RedirectURL, errCode)
		return
	}
	httpx.CountLogin(provider, "ok")

	dest, _ := url.Parse(h.LoginURL)
	v := dest.Query()
	v.Set("token", st.ClientToken)
	v.Set("redirect_url", st.RedirectURL)
	v.Set("social_token", sess.Token)
	dest.RawQuery = v.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

// redirectFailure manda el browser de vuelta a la superficie de login
// con un código de error, preservando el contexto del tenant cuando se
// conoce.
func (h *Handlers) redirectFailure(w http.ResponseWriter, r *http.Request, clientToken, redirectURL, code string) {
	dest, err := url.Parse(h.LoginURL)
	if err != nil || h.LoginURL == "" {
		httpx.WriteError(w, http.StatusBadGateway, code, "social login failed")
		return
	}
	v := dest.Query()
	v.Set("error", code)
	if clientToken != "" {
		v.Set("token", clientToken)
	}
	if redirectURL != "" {
		v.Set("redirect_url", redirectURL)
	}
	dest.RawQuery = v.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

// knownProvider custodia el segmento de path {provider}.
func knownProvider(name string) bool {
	return name == core.ProviderGoogle || name == core.ProviderFacebook
}

// RequireProvider rechaza segmentos de provider desconocidos antes de
// que corran los handlers del flujo.
func RequireProvider(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownProvider(chi.URLParam(r, "provider")) {
			httpx.WriteError(w, http.StatusBadRequest, "UNKNOWN_PROVIDER", "unknown identity provider")
			return
		}
		next(w, r)
	}
}
