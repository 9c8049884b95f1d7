package core

import "time"

// Nombres de provider tal como se guardan en User.AuthProvider.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Client es una aplicación tenant registrada, habilitada a delegar
// autenticación en el broker. El Token es la credencial de capacidad que
// presenta en cada flujo; se acuña una vez al crear y nunca se reusa.
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Token          string    `json:"token"`
	AllowedOrigins []string  `json:"allowed_origins"`
	RedirectURLs   []string  `json:"redirect_urls"`
	LogoURL        string    `json:"logo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	// Apps OAuth por tenant. Un par vacío significa provider no
	// configurado para este client, y eso no es un error.
	GoogleClientID     string `json:"google_client_id,omitempty"`
	GoogleClientSecret string `json:"-"`
	FacebookAppID      string `json:"facebook_app_id,omitempty"`
	FacebookAppSecret  string `json:"-"`
}

// GoogleConfigured indica si el client tiene el par de credenciales de
// Google completo.
func (c *Client) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// FacebookConfigured indica si el client tiene el par de credenciales de
// Facebook completo.
func (c *Client) FacebookConfigured() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != ""
}

// User es la identidad de un usuario final. Al crearse tiene o bien un
// hash de password o bien un par (AuthProvider, ProviderUserID); una
// cuenta con password puede ganar después un link de provider y ahí
// coexisten ambos.
type User struct {
	ID              string
	Name            string
	Email           string // en minúsculas; único cuando está presente, puede faltar en cuentas sociales
	PasswordHash    *string
	AuthProvider    string // "" | "google" | "facebook"
	ProviderUserID  string
	ProfileImageURL string
	ClientID        string // tenant bajo el cual se vio la cuenta por primera vez
	CreatedAt       time.Time
}

// HasPassword indica si el usuario puede autenticarse con password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ClientInput lleva los campos mutables de un Client para create/update.
// El token nunca viene en el input: se genera server-side al crear y
// después es inmutable.
type ClientInput struct {
	Name               string   `json:"name"`
	AllowedOrigins     []string `json:"allowed_origins"`
	RedirectURLs       []string `json:"redirect_urls"`
	LogoURL            string   `json:"logo_url"`
	GoogleClientID     string   `json:"google_client_id"`
	GoogleClientSecret string   `json:"google_client_secret"`
	FacebookAppID      string   `json:"facebook_app_id"`
	FacebookAppSecret  string   `json:"facebook_app_secret"`
}
