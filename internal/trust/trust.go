// Package trust custodia cada flujo de autenticación: resuelve el token
// opaco del client y chequea redirect URL y origin contra su
// registración. Es lógica pura de lectura sobre un lookup de client y se
// re-ejecuta en cada entry point, incluso después de decodificar flow
// state.
package trust

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/store/core"
)

var (
	// ErrUnknownClient: el token no matcheó ninguna registración.
	ErrUnknownClient = errors.New("unknown client token")

	// ErrInvalidRedirectURL: el redirect no matcheó ningún prefijo
	// registrado. Es la defensa contra open redirect; aplica en todo
	// lugar donde se consume un redirect URL.
	ErrInvalidRedirectURL = errors.New("invalid redirect url")

	// ErrInvalidOrigin: el origin recibido no matcheó ningún patrón
	// permitido.
	ErrInvalidOrigin = errors.New("invalid request origin")
)

// ClientSource resuelve un token de client a su registración. Lo
// implementa el registry.
type ClientSource interface {
	GetByToken(ctx context.Context, token string) (*core.Client, error)
}

// Validator valida ternas (token, redirectUrl, origin).
type Validator struct {
	clients ClientSource
	log     *zap.Logger
}

func NewValidator(clients ClientSource) *Validator {
	return &Validator{clients: clients, log: logger.Named("trust")}
}

// Validate resuelve el token y chequea redirectURL y clientOrigin contra
// la registración. Un clientOrigin vacío saltea el chequeo de origin: los
// callers que no pueden mandarlo (flujos server-to-server) pasan, y el
// salto queda logueado.
func (v *Validator) Validate(ctx context.Context, token, redirectURL, clientOrigin string) (*core.Client, error) {
	cl, err := v.clients.GetByToken(ctx, token)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrUnknownClient
		}
		return nil, err
	}

	if !RedirectAllowed(cl.RedirectURLs, redirectURL) {
		return nil, ErrInvalidRedirectURL
	}

	if clientOrigin == "" {
		v.log.Warn("origin not supplied, skipping origin check",
			zap.String("client_id", cl.ID))
		return cl, nil
	}
	if !OriginAllowed(cl.AllowedOrigins, clientOrigin) {
		v.log.Warn("origin rejected",
			zap.String("client_id", cl.ID),
			zap.String("origin", clientOrigin))
		return nil, ErrInvalidOrigin
	}
	return cl, nil
}

// RedirectAllowed indica si redirectURL empieza (case-insensitive) con al
// menos un prefijo registrado. Match por prefijo y no exacto, para que
// las apps tenant puedan variar el query string.
func RedirectAllowed(registered []string, redirectURL string) bool {
	if redirectURL == "" {
		return false
	}
	lower := strings.ToLower(redirectURL)
	for _, prefix := range registered {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// OriginAllowed indica si origin es igual (case-insensitive) a un origin
// permitido, o matchea un patrón con wildcard inicial ("*.example.com"
// acepta cualquier origin que termine en ".example.com").
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	lower := strings.ToLower(origin)
	for _, pattern := range allowed {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*") {
			if strings.HasSuffix(lower, p[1:]) {
				return true
			}
			continue
		}
		if lower == p {
			return true
		}
	}
	return false
}
