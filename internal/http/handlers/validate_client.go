package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/authbroker/internal/http"
)

type validateClientRequest struct {
	ClientToken string `json:"client_token"`
	RedirectURL string `json:"redirect_url"`
	Origin      string `json:"origin"`
}

type validateClientResponse struct {
	Success bool       `json:"success"`
	Client  clientView `json:"client"`
}

// ValidateClient chequea la tripla (token, redirectUrl, origin) sin
// arrancar un flujo. Las superficies de login lo llaman antes de
// renderizar.
func (h *Handlers) ValidateClient(w http.ResponseWriter, r *http.Request) {
	var req validateClientRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.ClientToken == "" || req.RedirectURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "client_token and redirect_url are required")
		return
	}
	origin := req.Origin
	if origin == "" {
		origin = r.Header.Get("Origin")
	}
	cl, err := h.Auth.ValidateClient(r.Context(), req.ClientToken, req.RedirectURL, origin)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, validateClientResponse{Success: true, Client: viewClient(cl)})
}

// ClientInfo devuelve el branding público de un client para la página
// de login hosteada. Sólo token; acá no se consume ningún redirect.
func (h *Handlers) ClientInfo(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "token query parameter is required")
		return
	}
	cl, err := h.Registry.GetByToken(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_CLIENT", "unknown client token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, validateClientResponse{Success: true, Client: viewClient(cl)})
}
