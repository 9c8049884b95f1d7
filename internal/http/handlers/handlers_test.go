package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authbroker/internal/auth"
	memcache "github.com/dropDatabas3/authbroker/internal/cache/memory"
	"github.com/dropDatabas3/authbroker/internal/flowstate"
	"github.com/dropDatabas3/authbroker/internal/http/handlers"
	httpx "github.com/dropDatabas3/authbroker/internal/http/router"
	jwtx "github.com/dropDatabas3/authbroker/internal/jwt"
	"github.com/dropDatabas3/authbroker/internal/linker"
	"github.com/dropDatabas3/authbroker/internal/oauth/facebook"
	"github.com/dropDatabas3/authbroker/internal/oauth/google"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/registry"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/store/memory"
	"github.com/dropDatabas3/authbroker/internal/trust"
)

func init() {
	logger.Init(logger.Config{Env: "dev", Level: "error"})
}

const (
	adminKey  = "test-admin-key"
	jwtSecret = "test-secret-test-secret-test-secret"
	loginURL  = "https://login.broker.example/login"
)

type env struct {
	srv      *httptest.Server
	client   *core.Client
	registry *registry.Service
	issuer   *jwtx.Issuer
	provider *httptest.Server
}

// newEnv wires the full stack over in-memory backends and a stub
// provider server handling Facebook-shaped exchange and profile calls.
func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.New()
	reg := registry.New(store.Clients(), memcache.New(time.Minute))
	validator := trust.NewValidator(reg)
	issuer := jwtx.NewIssuer(jwtSecret, time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fb-at", "token_type": "bearer"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "fb-1",
			"name":  "Ana",
			"email": "ana@example.com",
		})
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	fb := facebook.New("https://broker.example/api/auth/facebook/callback", provider.Client())
	fb.DialogURL = provider.URL + "/dialog/oauth"
	fb.TokenURL = provider.URL + "/oauth/access_token"
	fb.UserInfoURL = provider.URL + "/me"
	gg := google.New("https://broker.example/api/auth/google/callback", provider.Client())

	svc := auth.NewService(validator, linker.New(store.Users()), issuer, store.Users(), gg, fb)
	h := handlers.New(svc, reg, loginURL)

	router := httpx.NewRouter(h, httpx.RouterConfig{
		AdminAPIKey: adminKey,
		CORSOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	cl, err := reg.Create(context.Background(), core.ClientInput{
		Name:              "Acme",
		AllowedOrigins:    []string{"https://app.acme.com"},
		RedirectURLs:      []string{"https://app.acme.com/auth"},
		FacebookAppID:     "fb-app",
		FacebookAppSecret: "fb-secret",
	})
	require.NoError(t, err)

	return &env{srv: srv, client: cl, registry: reg, issuer: issuer, provider: provider}
}

func (e *env) post(t *testing.T, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.do(t, req)
}

func (e *env) get(t *testing.T, path string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.do(t, req)
}

func (e *env) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestValidateClient(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/api/auth/validate-client", map[string]string{
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth/callback",
		"origin":       "https://app.acme.com",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	resp, body = e.post(t, "/api/auth/validate-client", map[string]string{
		"client_token": "bogus",
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "INVALID_CLIENT", body["error"])

	resp, body = e.post(t, "/api/auth/validate-client", map[string]string{
		"client_token": e.client.Token,
		"redirect_url": "https://evil.example/",
	}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "INVALID_REDIRECT_URL", body["error"])

	resp, body = e.post(t, "/api/auth/validate-client", map[string]string{
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
		"origin":       "https://foreign.example",
	}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "INVALID_ORIGIN", body["error"])

	resp, body = e.post(t, "/api/auth/validate-client", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_INPUT", body["error"])
}

func TestClientInfo(t *testing.T) {
	e := newEnv(t)

	resp, body := e.get(t, "/api/auth/client-info?token="+e.client.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	client := body["client"].(map[string]any)
	require.Equal(t, "Acme", client["name"])
	require.Equal(t, true, client["facebook_login"])
	require.Equal(t, false, client["google_login"])

	resp, _ = e.get(t, "/api/auth/client-info?token=bogus", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	creds := map[string]string{
		"name":         "Ana",
		"email":        "ana@example.com",
		"password":     "secret123",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}

	resp, body := e.post(t, "/api/rest/auth/register", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	token := body["token"].(string)
	uid, err := e.issuer.Verify(token)
	require.NoError(t, err)
	require.NotEmpty(t, uid)
	user := body["user"].(map[string]any)
	require.Equal(t, "ana@example.com", user["email"])

	// Same email again.
	resp, body = e.post(t, "/api/rest/auth/register", creds, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "DUPLICATE_EMAIL", body["error"])

	// Password login.
	resp, body = e.post(t, "/api/rest/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])

	// Wrong password.
	bad := map[string]string{}
	for k, v := range creds {
		bad[k] = v
	}
	bad["password"] = "wrong-password"
	resp, body = e.post(t, "/api/rest/auth/login", bad, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "INVALID_CREDENTIALS", body["error"])

	// Bearer lookup.
	resp, body = e.get(t, "/api/rest/auth/user", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user = body["user"].(map[string]any)
	require.Equal(t, uid, user["id"])

	resp, _ = e.get(t, "/api/rest/auth/user", map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegister_WeakPassword(t *testing.T) {
	e := newEnv(t)
	resp, body := e.post(t, "/api/rest/auth/register", map[string]string{
		"email":        "ana@example.com",
		"password":     "12345",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "WEAK_PASSWORD", body["error"])
}

func TestFacebookNative(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/api/rest/auth/facebook", map[string]string{
		"access_token": "device-token",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	require.Equal(t, "ana@example.com", user["email"])
	require.Equal(t, "facebook", user["auth_provider"])
}

func TestGoogleNative_NotConfigured(t *testing.T) {
	e := newEnv(t)

	// The test client has no Google credential pair.
	resp, body := e.post(t, "/api/rest/auth/google", map[string]string{
		"id_token":     "whatever",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "PROVIDER_NOT_CONFIGURED", body["error"])
}

func TestBiometricLogin(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/api/rest/auth/register", map[string]string{
		"email":        "ana@example.com",
		"password":     "secret123",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	uid := body["user"].(map[string]any)["id"].(string)

	resp, body = e.post(t, "/api/rest/auth/biometric-login", map[string]string{
		"user_id":      uid,
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])

	resp, body = e.post(t, "/api/rest/auth/biometric-login", map[string]string{
		"user_id":      "ghost",
		"client_token": e.client.Token,
		"redirect_url": "https://app.acme.com/auth",
	}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "USER_NOT_FOUND", body["error"])
}

func noRedirect(srv *httptest.Server) *http.Client {
	c := *srv.Client()
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

func TestSocialFlow_Browser(t *testing.T) {
	e := newEnv(t)
	hc := noRedirect(e.srv)

	// Start: bounce to the provider dialog with an encoded state.
	startURL := e.srv.URL + "/api/auth/facebook/start?token=" + e.client.Token +
		"&redirect_url=" + url.QueryEscape("https://app.acme.com/auth")
	resp, err := hc.Get(startURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), e.provider.URL+"/dialog/oauth"))
	state := loc.Query().Get("state")
	st, err := flowstate.Decode(state)
	require.NoError(t, err)
	require.Equal(t, e.client.Token, st.ClientToken)

	// Callback: exchange against the stub, then bounce to the login
	// surface carrying the session token.
	cbURL := e.srv.URL + "/api/auth/facebook/callback?code=the-code&state=" + url.QueryEscape(state)
	resp, err = hc.Get(cbURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	dest, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dest.String(), loginURL))
	q := dest.Query()
	require.Equal(t, e.client.Token, q.Get("token"))
	require.Equal(t, "https://app.acme.com/auth", q.Get("redirect_url"))
	uid, err := e.issuer.Verify(q.Get("social_token"))
	require.NoError(t, err)
	require.NotEmpty(t, uid)
}

func TestSocialFlow_BadState(t *testing.T) {
	e := newEnv(t)
	hc := noRedirect(e.srv)

	resp, err := hc.Get(e.srv.URL + "/api/auth/facebook/callback?code=x&state=%21%21%21")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSocialFlow_ProviderDenied(t *testing.T) {
	e := newEnv(t)
	hc := noRedirect(e.srv)

	resp, err := hc.Get(e.srv.URL + "/api/auth/facebook/callback?error=access_denied")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	dest, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "true", dest.Query().Get("cancelled"))
	require.Empty(t, dest.Query().Get("error"))
}

func TestSocialFlow_UnknownProvider(t *testing.T) {
	e := newEnv(t)
	resp, body := e.get(t, "/api/auth/twitter/start?token=x&redirect_url=y", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "UNKNOWN_PROVIDER", body["error"])
}

func TestAdminCRUD(t *testing.T) {
	e := newEnv(t)
	withKey := map[string]string{"X-Admin-API-Key": adminKey}

	// No key.
	resp, _ := e.get(t, "/api/admin/clients/", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Create.
	resp, body := e.post(t, "/api/admin/clients/", map[string]any{
		"name":            "Beta",
		"allowed_origins": []string{"https://beta.example"},
		"redirect_urls":   []string{"https://beta.example/auth"},
	}, withKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := body["client"].(map[string]any)
	id := created["id"].(string)
	require.NotEmpty(t, created["token"])

	// List includes both clients.
	resp, body = e.get(t, "/api/admin/clients/", withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["clients"].([]any), 2)

	// Update.
	req, err := http.NewRequest(http.MethodPut, e.srv.URL+"/api/admin/clients/"+id, bytes.NewReader(mustJSON(t, map[string]any{
		"name":            "Beta 2",
		"allowed_origins": []string{"https://beta.example"},
		"redirect_urls":   []string{"https://beta.example/auth"},
	})))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-API-Key", adminKey)
	resp, body = e.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Beta 2", body["client"].(map[string]any)["name"])

	// Delete.
	req, err = http.NewRequest(http.MethodDelete, e.srv.URL+"/api/admin/clients/"+id, nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-API-Key", adminKey)
	resp, _ = e.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.get(t, "/api/admin/clients/"+id, withKey)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
