package google_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/authbroker/internal/oauth"
	"github.com/dropDatabas3/authbroker/internal/oauth/google"
)

var cred = oauth.Credential{ClientID: "tenant-client-id", ClientSecret: "tenant-secret"}

func newAdapter(ts *httptest.Server) *google.Google {
	g := google.New("https://broker.example/api/auth/google/callback", ts.Client())
	g.Endpoint = oauth2.Endpoint{
		AuthURL:  ts.URL + "/auth",
		TokenURL: ts.URL + "/token",
	}
	g.UserInfoURL = ts.URL + "/userinfo"
	g.JWKSURL = ts.URL + "/certs"
	return g
}

func TestAuthURL(t *testing.T) {
	g := google.New("https://broker.example/cb", nil)
	u := g.AuthURL(cred, "STATE123")
	for _, want := range []string{
		"client_id=tenant-client-id",
		"state=STATE123",
		"access_type=offline",
		"prompt=consent",
		"response_type=code",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("auth url missing %q: %s", want, u)
		}
	}
}

func TestExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("code"); got != "the-code" {
			t.Errorf("wrong code: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("wrong bearer: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":      "g-1",
			"email":   "ana@example.com",
			"name":    "Ana",
			"picture": "https://img/p",
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	id, err := newAdapter(ts).Exchange(context.Background(), cred, "the-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if id.ExternalID != "g-1" || id.Email != "ana@example.com" || id.Provider != "google" {
		t.Fatalf("bad identity: %+v", id)
	}
}

func TestExchange_TokenEndpointError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	_, err := newAdapter(ts).Exchange(context.Background(), cred, "bad-code")
	var pErr *oauth.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("want *oauth.Error, got %v", err)
	}
	if pErr.Status != http.StatusBadRequest {
		t.Fatalf("want status 400, got %d", pErr.Status)
	}
}

func TestExchange_UserinfoNon2xx(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	_, err := newAdapter(ts).Exchange(context.Background(), cred, "the-code")
	var pErr *oauth.Error
	if !errors.As(err, &pErr) || pErr.Status != http.StatusUnauthorized {
		t.Fatalf("want *oauth.Error with 401, got %v", err)
	}
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwtv5.MapClaims) string {
	t.Helper()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = kid
	s, err := tk.SignedString(key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return s
}

func jwksHandler(key *rsa.PrivateKey, kid string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pub := key.Public().(*rsa.PublicKey)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": kid,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}
}

func googleClaims(aud string) jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss":     "https://accounts.google.com",
		"aud":     aud,
		"sub":     "g-sub-1",
		"email":   "ana@example.com",
		"name":    "Ana",
		"picture": "https://img/p",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifyNative(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/certs", jwksHandler(key, "kid-1"))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	g := newAdapter(ts)

	idToken := signIDToken(t, key, "kid-1", googleClaims(cred.ClientID))
	id, err := g.VerifyNative(context.Background(), cred, idToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.ExternalID != "g-sub-1" || id.Email != "ana@example.com" {
		t.Fatalf("bad identity: %+v", id)
	}
}

func TestVerifyNative_WrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/certs", jwksHandler(key, "kid-1"))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	g := newAdapter(ts)

	idToken := signIDToken(t, key, "kid-1", googleClaims("some-other-client"))
	if _, err := g.VerifyNative(context.Background(), cred, idToken); err == nil {
		t.Fatal("wrong audience accepted")
	}
}

func TestVerifyNative_WrongKey(t *testing.T) {
	served, _ := rsa.GenerateKey(rand.Reader, 2048)
	signer, _ := rsa.GenerateKey(rand.Reader, 2048)

	mux := http.NewServeMux()
	mux.HandleFunc("/certs", jwksHandler(served, "kid-1"))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	g := newAdapter(ts)

	idToken := signIDToken(t, signer, "kid-1", googleClaims(cred.ClientID))
	if _, err := g.VerifyNative(context.Background(), cred, idToken); err == nil {
		t.Fatal("forged signature accepted")
	}
}

func TestVerifyNative_ConcurrentColdCache(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	inner := jwksHandler(key, "kid-1")
	mux := http.NewServeMux()
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		inner(w, r)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	g := newAdapter(ts)

	idToken := signIDToken(t, key, "kid-1", googleClaims(cred.ClientID))
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.VerifyNative(context.Background(), cred, idToken); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent verify: %v", err)
	}
}

func TestVerifyNative_RejectsHS256(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	mux := http.NewServeMux()
	mux.HandleFunc("/certs", jwksHandler(key, "kid-1"))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	g := newAdapter(ts)

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, googleClaims(cred.ClientID))
	tk.Header["kid"] = "kid-1"
	idToken, _ := tk.SignedString([]byte("hmac-secret"))
	if _, err := g.VerifyNative(context.Background(), cred, idToken); err == nil {
		t.Fatal("HS256 token accepted")
	}
}
