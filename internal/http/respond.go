package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type apiError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError emite el envelope de error que comparten todas las
// superficies. El code es un string de máquina estable (INVALID_CLIENT,
// PROVIDER_ERROR, ...); el message es para humanos y puede cambiar.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:     code,
		Message:   message,
		RequestID: rid,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body del request, tolerante a campos
// desconocidos, con tope de 1MB. Escribe la respuesta de error por su
// cuenta y devuelve false si falla.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "malformed JSON body")
		return false
	}
	return true
}
