// Package auth es el orquestador de flujos: cada entry point corre
// Validate, Authenticate, Link, Issue y devuelve una sesión o un rechazo
// terminal. No sobrevive estado entre requests; el único protocolo
// multi-paso es el round-trip de redirect OAuth, que viaja en el flow
// state.
package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/flowstate"
	"github.com/dropDatabas3/authbroker/internal/jwt"
	"github.com/dropDatabas3/authbroker/internal/linker"
	"github.com/dropDatabas3/authbroker/internal/oauth"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/security/password"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/trust"
	"github.com/dropDatabas3/authbroker/internal/util"
)

// MissingProviderCredentialError: el tenant no tiene app OAuth
// configurada para el provider pedido. Es un mensaje de configuración,
// no una falla genérica.
type MissingProviderCredentialError struct {
	Provider string
}

func (e *MissingProviderCredentialError) Error() string {
	return fmt.Sprintf("%s login is not configured for this client", e.Provider)
}

// ErrUnknownProvider rechaza un nombre de provider fuera de la tabla de dispatch.
var ErrUnknownProvider = fmt.Errorf("unknown identity provider")

// Session es el éxito terminal de cualquier flujo.
type Session struct {
	Token  string
	User   *core.User
	Client *core.Client
}

type Service struct {
	validator *trust.Validator
	linker    *linker.Linker
	issuer    *jwt.Issuer
	users     core.UserRepository
	providers map[string]oauth.Provider
	log       *zap.Logger
}

func NewService(v *trust.Validator, l *linker.Linker, issuer *jwt.Issuer, users core.UserRepository, providers ...oauth.Provider) *Service {
	m := make(map[string]oauth.Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{
		validator: v,
		linker:    l,
		issuer:    issuer,
		users:     users,
		providers: m,
		log:       logger.Named("auth"),
	}
}

// ValidateClient corre sólo el chequeo de confianza (el endpoint
// validate-client y el pre-flight que hacen las superficies de login).
func (s *Service) ValidateClient(ctx context.Context, token, redirectURL, origin string) (*core.Client, error) {
	return s.validator.Validate(ctx, token, redirectURL, origin)
}

// Register crea una cuenta con password bajo un tenant validado y emite
// un bearer token.
func (s *Service) Register(ctx context.Context, name, email, plain, clientToken, redirectURL string) (*Session, error) {
	cl, err := s.validator.Validate(ctx, clientToken, redirectURL, "")
	if err != nil {
		return nil, err
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}
	u, err := s.linker.Register(ctx, name, email, hash, cl.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(u, cl)
}

// Login hace un login con password bajo un tenant validado.
func (s *Service) Login(ctx context.Context, email, plain, clientToken, redirectURL string) (*Session, error) {
	cl, err := s.validator.Validate(ctx, clientToken, redirectURL, "")
	if err != nil {
		return nil, err
	}
	u, err := s.linker.Authenticate(ctx, email, plain)
	if err != nil {
		return nil, err
	}
	return s.issue(u, cl)
}

// BiometricLogin emite un token para un user id conocido después del
// chequeo de tenant. La verificación biométrica ocurrió en el
// dispositivo; el broker sólo custodia el tenant.
func (s *Service) BiometricLogin(ctx context.Context, userID, clientToken, redirectURL string) (*Session, error) {
	cl, err := s.validator.Validate(ctx, clientToken, redirectURL, "")
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u, cl)
}

// NativeSocialLogin verifica material de autorización pre-emitido desde
// una app nativa (ID token de Google o access token de Facebook), linkea
// la identidad y emite un bearer token.
func (s *Service) NativeSocialLogin(ctx context.Context, provider, material, clientToken, redirectURL string) (*Session, error) {
	cl, err := s.validator.Validate(ctx, clientToken, redirectURL, "")
	if err != nil {
		return nil, err
	}
	p, cred, err := s.dispatch(cl, provider)
	if err != nil {
		return nil, err
	}
	id, err := p.VerifyNative(ctx, cred, material)
	if err != nil {
		return nil, err
	}
	u, err := s.linker.LinkOrCreate(ctx, id, cl.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(u, cl)
}

// BeginSocialFlow valida el tenant, codifica el flow state y devuelve la
// URL de autorización del provider para redirigir el browser.
func (s *Service) BeginSocialFlow(ctx context.Context, provider, clientToken, redirectURL string) (string, error) {
	cl, err := s.validator.Validate(ctx, clientToken, redirectURL, "")
	if err != nil {
		return "", err
	}
	p, cred, err := s.dispatch(cl, provider)
	if err != nil {
		return "", err
	}
	state := flowstate.Encode(clientToken, redirectURL)
	return p.AuthURL(cred, state), nil
}

// CompleteSocialFlow atiende el callback del provider: decodifica el
// state, lo re-valida contra el registry (decodificar no confiere
// confianza), intercambia el code, linkea y emite. En éxito también
// devuelve el state validado para que el handler arme el redirect al
// tenant.
func (s *Service) CompleteSocialFlow(ctx context.Context, provider, rawState, code string) (*Session, flowstate.State, error) {
	st, err := flowstate.Decode(rawState)
	if err != nil {
		return nil, flowstate.State{}, err
	}
	cl, err := s.validator.Validate(ctx, st.ClientToken, st.RedirectURL, "")
	if err != nil {
		return nil, st, err
	}
	p, cred, err := s.dispatch(cl, provider)
	if err != nil {
		return nil, st, err
	}
	id, err := p.Exchange(ctx, cred, code)
	if err != nil {
		s.log.Warn("provider exchange failed",
			zap.String("provider", provider),
			zap.String("client_id", cl.ID),
			zap.Error(err))
		return nil, st, err
	}
	u, err := s.linker.LinkOrCreate(ctx, id, cl.ID)
	if err != nil {
		return nil, st, err
	}
	sess, err := s.issue(u, cl)
	if err != nil {
		return nil, st, err
	}
	s.log.Info("social login ok",
		zap.String("provider", provider),
		zap.String("client_id", cl.ID),
		zap.String("email", util.MaskEmail(u.Email)))
	return sess, st, nil
}

// UserFromToken resuelve un bearer token a su user.
func (s *Service) UserFromToken(ctx context.Context, bearer string) (*core.User, error) {
	uid, err := s.issuer.Verify(bearer)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, uid)
}

func (s *Service) dispatch(cl *core.Client, provider string) (oauth.Provider, oauth.Credential, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, oauth.Credential{}, ErrUnknownProvider
	}
	var cred oauth.Credential
	switch provider {
	case core.ProviderGoogle:
		cred = oauth.Credential{ClientID: cl.GoogleClientID, ClientSecret: cl.GoogleClientSecret}
	case core.ProviderFacebook:
		cred = oauth.Credential{ClientID: cl.FacebookAppID, ClientSecret: cl.FacebookAppSecret}
	}
	if cred.ClientID == "" {
		return nil, oauth.Credential{}, &MissingProviderCredentialError{Provider: provider}
	}
	return p, cred, nil
}

func (s *Service) issue(u *core.User, cl *core.Client) (*Session, error) {
	tok, err := s.issuer.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, User: u, Client: cl}, nil
}
