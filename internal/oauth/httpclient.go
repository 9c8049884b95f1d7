package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout acota cada llamada saliente a un provider. Los
// providers son terceros no confiables y nunca deben bloquear un flujo
// indefinidamente.
const DefaultTimeout = 5 * time.Second

// NewHTTPClient devuelve el client que usan los adapters para llamar a providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON hace GET a url y decodifica el body JSON en dst. Una falla de
// transporte se reintenta una vez; un status no-2xx vuelve como *Error y
// nunca se reintenta.
func GetJSON(ctx context.Context, hc *http.Client, provider, op, url string, dst any) error {
	resp, err := doWithRetry(ctx, hc, url)
	if err != nil {
		return &Error{Provider: provider, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Drenar un poco por si el body hace falta en logs más arriba.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		return &Error{Provider: provider, Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &Error{Provider: provider, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func doWithRetry(ctx context.Context, hc *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	// Un único retry, sólo ante falla transitoria de red.
	req2, rerr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if rerr != nil {
		return nil, err
	}
	return hc.Do(req2)
}
