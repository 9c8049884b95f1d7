package handlers

import (
	"net/http"
	"strings"

	httpx "github.com/dropDatabas3/authbroker/internal/http"
	"github.com/dropDatabas3/authbroker/internal/store/core"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	ClientToken string `json:"client_token"`
	RedirectURL string `json:"redirect_url"`
}

// Register crea una cuenta con password bajo un tenant validado.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.ClientToken == "" || req.RedirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "email, password, client_token and redirect_url are required")
		return
	}
	if len(req.Password) < 6 {
		httpx.WriteError(w, http.StatusBadRequest, "WEAK_PASSWORD", "password must be at least 6 characters")
		return
	}
	sess, err := h.Auth.Register(r.Context(), req.Name, req.Email, req.Password, req.ClientToken, req.RedirectURL)
	if err != nil {
		httpx.CountLogin("register", "error")
		writeAuthError(w, err)
		return
	}
	httpx.CountLogin("register", "ok")
	writeSession(w, sess)
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ClientToken string `json:"client_token"`
	RedirectURL string `json:"redirect_url"`
}

// Login es el login con password para apps nativas y superficies propias.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.ClientToken == "" || req.RedirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "email, password, client_token and redirect_url are required")
		return
	}
	sess, err := h.Auth.Login(r.Context(), req.Email, req.Password, req.ClientToken, req.RedirectURL)
	if err != nil {
		httpx.CountLogin("password", "error")
		writeAuthError(w, err)
		return
	}
	httpx.CountLogin("password", "ok")
	writeSession(w, sess)
}

type biometricRequest struct {
	UserID      string `json:"user_id"`
	ClientToken string `json:"client_token"`
	RedirectURL string `json:"redirect_url"`
}

// BiometricLogin re-emite un token para un user verificado en el dispositivo.
func (h *Handlers) BiometricLogin(w http.ResponseWriter, r *http.Request) {
	var req biometricRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ClientToken == "" || req.RedirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "user_id, client_token and redirect_url are required")
		return
	}
	sess, err := h.Auth.BiometricLogin(r.Context(), req.UserID, req.ClientToken, req.RedirectURL)
	if err != nil {
		httpx.CountLogin("biometric", "error")
		writeAuthError(w, err)
		return
	}
	httpx.CountLogin("biometric", "ok")
	writeSession(w, sess)
}

type socialNativeRequest struct {
	// IDToken lleva el ID token de Google; AccessToken el access token
	// de Facebook. Cada endpoint usa exactamente uno.
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	ClientToken string `json:"client_token"`
	RedirectURL string `json:"redirect_url"`
}

// GoogleNative verifica un ID token de Google emitido contra el OAuth
// client propio del tenant y loguea al user.
func (h *Handlers) GoogleNative(w http.ResponseWriter, r *http.Request) {
	h.socialNative(w, r, core.ProviderGoogle)
}

// FacebookNative verifica un access token de Facebook vía la Graph API y
// loguea al user.
func (h *Handlers) FacebookNative(w http.ResponseWriter, r *http.Request) {
	h.socialNative(w, r, core.ProviderFacebook)
}

func (h *Handlers) socialNative(w http.ResponseWriter, r *http.Request, provider string) {
	var req socialNativeRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	material := req.IDToken
	if provider == core.ProviderFacebook {
		material = req.AccessToken
	}
	if material == "" || req.ClientToken == "" || req.RedirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "provider token, client_token and redirect_url are required")
		return
	}
	sess, err := h.Auth.NativeSocialLogin(r.Context(), provider, material, req.ClientToken, req.RedirectURL)
	if err != nil {
		httpx.CountLogin(provider, "error")
		writeAuthError(w, err)
		return
	}
	httpx.CountLogin(provider, "ok")
	writeSession(w, sess)
}

type userResponse struct {
	Success bool     `json:"success"`
	User    userView `json:"user"`
}

// CurrentUser resuelve el bearer token a su cuenta.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	bearer := bearerToken(r)
	if bearer == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN", "authorization header required")
		return
	}
	u, err := h.Auth.UserFromToken(r.Context(), bearer)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse{Success: true, User: viewUser(u)})
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
