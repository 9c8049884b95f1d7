package google

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"context"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/authbroker/internal/oauth"
)

type idClaims struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// jwksCache guarda las claves de firma de Google con refresh horario y
// revalidación por ETag, así una rotación a mitad de ventana resuelve
// igual.
type jwksCache struct {
	hc  *http.Client
	url func() string

	mu        sync.RWMutex
	keys      *jwks
	fetchedAt time.Time
	etag      string
}

func newJWKSCache(hc *http.Client, url func() string) *jwksCache {
	return &jwksCache{hc: hc, url: url}
}

func (c *jwksCache) get(ctx context.Context) (*jwks, error) {
	c.mu.RLock()
	k := c.keys
	fresh := time.Since(c.fetchedAt) < jwksMaxAge
	etag := c.etag
	c.mu.RUnlock()
	if k != nil && fresh {
		return k, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(), nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.mu.Lock()
		out := c.keys
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return out, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.keys = &jj
	c.fetchedAt = time.Now()
	c.etag = resp.Header.Get("ETag")
	c.mu.Unlock()
	return &jj, nil
}

func (c *jwksCache) rsaKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range keys.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
		if e == 0 {
			e = 65537
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
	}
	return nil, errors.New("kid not found in jwks")
}

func (g *Google) verifyIDToken(ctx context.Context, idToken, audience string) (*idClaims, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("bad jwt format")}
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: err}
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: err}
	}
	if header.Alg != "RS256" {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: fmt.Errorf("unexpected alg %s", header.Alg)}
	}

	key, err := g.keys.rsaKey(ctx, header.Kid)
	if err != nil {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: err}
	}

	tok, err := jwtv5.Parse(idToken,
		func(*jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}))
	if err != nil || !tok.Valid {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("invalid id_token")}
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("bad claims type")}
	}

	if iss, _ := claims["iss"].(string); iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: fmt.Errorf("bad iss %q", iss)}
	}
	if !audMatches(claims["aud"], audience) {
		return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("audience mismatch")}
	}
	if expf, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, &oauth.Error{Provider: "google", Op: "verify_id_token", Err: errors.New("token expired")}
		}
	}

	return &idClaims{
		Sub:     strClaim(claims, "sub"),
		Email:   strClaim(claims, "email"),
		Name:    strClaim(claims, "name"),
		Picture: strClaim(claims, "picture"),
	}, nil
}

func audMatches(aud any, want string) bool {
	switch a := aud.(type) {
	case string:
		return a == want
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == want {
				return true
			}
		}
	}
	return false
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

func decodeJSON(r io.Reader, dst any) error {
	return json.NewDecoder(r).Decode(dst)
}
