// Package facebook implementa el adapter del provider Facebook. Su token
// endpoint hace el intercambio con un GET por query string, a diferencia
// del POST con form de Google; el perfil sale del endpoint "me" de la
// Graph API. Las identidades de Facebook tienen que traer email: la
// de-duplicación downstream depende de él, así que una cuenta que lo
// oculta es falla dura y no un registro degradado.
package facebook

import (
	"context"
	"errors"
	"net/url"

	"net/http"

	"github.com/dropDatabas3/authbroker/internal/oauth"
)

const (
	defaultAuthURL     = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultTokenURL    = "https://graph.facebook.com/v18.0/oauth/access_token"
	defaultUserInfoURL = "https://graph.facebook.com/me"

	scopes = "email public_profile"

	// profileFields pide una foto 400x400; las URLs del CDN de Facebook
	// expiran, por eso el linker refresca la foto guardada en cada
	// login.
	profileFields = "id,name,email,picture.width(400).height(400)"
)

// ErrEmailRequired se devuelve cuando la cuenta de Facebook no expone email.
var ErrEmailRequired = errors.New("facebook account has no email")

// Facebook es el adapter del provider. Las credenciales del tenant
// llegan en cada llamada.
type Facebook struct {
	RedirectURL string

	// Overrides de URLs para tests; por defecto va a la Graph API real.
	DialogURL   string
	TokenURL    string
	UserInfoURL string

	hc *http.Client
}

func New(redirectURL string, hc *http.Client) *Facebook {
	if hc == nil {
		hc = oauth.NewHTTPClient(0)
	}
	return &Facebook{
		RedirectURL: redirectURL,
		DialogURL:   defaultAuthURL,
		TokenURL:    defaultTokenURL,
		UserInfoURL: defaultUserInfoURL,
		hc:          hc,
	}
}

var _ oauth.Provider = (*Facebook)(nil)

func (f *Facebook) Name() string { return "facebook" }

func (f *Facebook) AuthURL(cred oauth.Credential, state string) string {
	u, _ := url.Parse(f.DialogURL)
	q := u.Query()
	q.Set("client_id", cred.ClientID)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("state", state)
	q.Set("scope", scopes)
	u.RawQuery = q.Encode()
	return u.String()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Exchange cambia el authorization code por un access token y después
// trae y valida el perfil.
func (f *Facebook) Exchange(ctx context.Context, cred oauth.Credential, code string) (*oauth.Identity, error) {
	u, _ := url.Parse(f.TokenURL)
	q := u.Query()
	q.Set("client_id", cred.ClientID)
	q.Set("client_secret", cred.ClientSecret)
	q.Set("code", code)
	q.Set("redirect_uri", f.RedirectURL)
	u.RawQuery = q.Encode()

	var tr tokenResponse
	if err := oauth.GetJSON(ctx, f.hc, "facebook", "exchange", u.String(), &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, &oauth.Error{Provider: "facebook", Op: "exchange", Err: errors.New("response missing access_token")}
	}
	return f.fetchProfile(ctx, tr.AccessToken)
}

// VerifyNative valida un access token pre-emitido llamando al endpoint
// "me"; un token vivo devuelve el perfil, cualquier otra cosa es error
// de provider.
func (f *Facebook) VerifyNative(ctx context.Context, _ oauth.Credential, accessToken string) (*oauth.Identity, error) {
	return f.fetchProfile(ctx, accessToken)
}

func (f *Facebook) fetchProfile(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	u, _ := url.Parse(f.UserInfoURL)
	q := u.Query()
	q.Set("fields", profileFields)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	var p profile
	if err := oauth.GetJSON(ctx, f.hc, "facebook", "userinfo", u.String(), &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, &oauth.Error{Provider: "facebook", Op: "userinfo", Err: errors.New("response missing user id")}
	}
	if p.Email == "" {
		return nil, ErrEmailRequired
	}
	return &oauth.Identity{
		Provider:   "facebook",
		ExternalID: p.ID,
		Email:      p.Email,
		Name:       p.Name,
		PictureURL: p.Picture.Data.URL,
	}, nil
}
