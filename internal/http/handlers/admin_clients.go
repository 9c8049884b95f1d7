package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/authbroker/internal/http"
	"github.com/dropDatabas3/authbroker/internal/store/core"
)

// La superficie admin es el único lugar donde se ven el token del client
// y los flags de presencia de credenciales. Los secrets siguen siendo
// write-only: core.Client nunca los serializa.

type adminClientResponse struct {
	Success bool        `json:"success"`
	Client  core.Client `json:"client"`
}

type adminClientListResponse struct {
	Success bool          `json:"success"`
	Clients []core.Client `json:"clients"`
}

// CreateClient registra un tenant y lo devuelve con el token acuñado.
func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in core.ClientInput
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	cl, err := h.Registry.Create(r.Context(), in)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, adminClientResponse{Success: true, Client: *cl})
}

func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Registry.List(r.Context())
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if clients == nil {
		clients = []core.Client{}
	}
	httpx.WriteJSON(w, http.StatusOK, adminClientListResponse{Success: true, Clients: clients})
}

func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	cl, err := h.Registry.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if core.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminClientResponse{Success: true, Client: *cl})
}

func (h *Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var in core.ClientInput
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	cl, err := h.Registry.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		if core.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminClientResponse{Success: true, Client: *cl})
}

func (h *Handlers) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if core.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
