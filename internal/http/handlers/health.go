package handlers

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/dropDatabas3/authbroker/internal/http"
)

// Pinger lo implementan los backends con chequeo de vida (el store de
// postgres, el cache de redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz es liveness puro.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz hace ping a cada backend registrado con un deadline corto.
func Readyz(pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := make(map[string]string, len(pingers))
		ready := true
		for name, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				ready = false
			} else {
				checks[name] = "ok"
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, map[string]any{"ready": ready, "checks": checks})
	}
}
