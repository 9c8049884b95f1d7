// Package google implementa el adapter del provider Google. El camino de
// code exchange pasa por golang.org/x/oauth2; el camino nativo verifica
// un ID token pre-emitido contra el JWKS de Google con el client id del
// tenant como audience esperado.
package google

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	googleendpoint "golang.org/x/oauth2/google"

	"github.com/dropDatabas3/authbroker/internal/oauth"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	scopes = "email profile"
)

// Google es el adapter del provider. Las credenciales son por tenant y
// llegan en cada llamada; el adapter sólo guarda el callback fijo del
// broker y la configuración de endpoints.
type Google struct {
	// RedirectURL es el callback del broker registrado en el provider.
	// El contexto de tenant nunca viaja en él; sólo en el state.
	RedirectURL string

	// Los overrides de Endpoint y URLs existen para tests; los valores
	// por defecto apuntan a los endpoints reales de Google.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	JWKSURL     string

	hc   *http.Client
	keys *jwksCache
}

func New(redirectURL string, hc *http.Client) *Google {
	if hc == nil {
		hc = oauth.NewHTTPClient(0)
	}
	g := &Google{
		RedirectURL: redirectURL,
		Endpoint:    googleendpoint.Endpoint,
		UserInfoURL: defaultUserInfoURL,
		JWKSURL:     defaultJWKSURL,
		hc:          hc,
	}
	g.keys = newJWKSCache(hc, func() string { return g.JWKSURL })
	return g
}

var _ oauth.Provider = (*Google)(nil)

func (g *Google) Name() string { return "google" }

// AuthURL arma la URL de consentimiento. access_type=offline y
// prompt=consent coinciden con cómo se registraron las apps tenant.
func (g *Google) AuthURL(cred oauth.Credential, state string) string {
	u, _ := url.Parse(g.Endpoint.AuthURL)
	q := u.Query()
	q.Set("client_id", cred.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", scopes)
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()
	return u.String()
}

type userInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange cambia el authorization code por un access token con el par
// de credenciales del tenant y después trae el perfil.
func (g *Google) Exchange(ctx context.Context, cred oauth.Credential, code string) (*oauth.Identity, error) {
	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Endpoint:     g.Endpoint,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.hc)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, &oauth.Error{Provider: "google", Op: "exchange", Status: rerr.Response.StatusCode, Err: err}
		}
		if ctx.Err() == nil {
			// Un único retry ante falla transitoria de red.
			if tok, err = conf.Exchange(ctx, code); err != nil {
				return nil, &oauth.Error{Provider: "google", Op: "exchange", Err: err}
			}
		} else {
			return nil, &oauth.Error{Provider: "google", Op: "exchange", Err: err}
		}
	}

	return g.fetchProfile(ctx, tok.AccessToken)
}

func (g *Google) fetchProfile(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "userinfo", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "userinfo", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, &oauth.Error{Provider: "google", Op: "userinfo", Status: resp.StatusCode}
	}

	var ui userInfo
	if err := decodeJSON(resp.Body, &ui); err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "userinfo", Err: err}
	}
	if ui.ID == "" {
		return nil, &oauth.Error{Provider: "google", Op: "userinfo", Err: errors.New("response missing user id")}
	}
	return &oauth.Identity{
		Provider:   "google",
		ExternalID: ui.ID,
		Email:      ui.Email,
		Name:       ui.Name,
		PictureURL: ui.Picture,
	}, nil
}

// VerifyNative valida un ID token de Google pre-emitido: firma RS256
// contra el JWKS de Google, issuer, expiración y audience igual al
// client id del tenant. En este camino no hay code exchange.
func (g *Google) VerifyNative(ctx context.Context, cred oauth.Credential, idToken string) (*oauth.Identity, error) {
	claims, err := g.verifyIDToken(ctx, idToken, cred.ClientID)
	if err != nil {
		return nil, err
	}
	if claims.Sub == "" {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("token missing sub")}
	}
	return &oauth.Identity{
		Provider:   "google",
		ExternalID: claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
		PictureURL: claims.Picture,
	}, nil
}

// jwksMaxAge acota cuánto se reusan las claves de firma bajadas.
const jwksMaxAge = time.Hour
