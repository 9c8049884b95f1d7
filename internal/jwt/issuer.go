// Package jwt emite y verifica los bearer tokens propios del broker. El
// token ata un user id y nada más; los tenants lo tratan como opaco.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cubre toda falla de verificación: firma mala, expirado,
// malformado, algoritmo incorrecto. La verificación falla cerrada.
var ErrInvalidToken = errors.New("invalid token")

// DefaultTTL es la vida nominal del bearer token: un año.
const DefaultTTL = 365 * 24 * time.Hour

// Issuer firma bearer tokens HS256 con un secreto inyectado por deploy.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue acuña un bearer token para un user id.
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(i.ttl).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(i.secret)
}

// Verify valida un bearer token y devuelve el user id atado.
func (i *Issuer) Verify(token string) (string, error) {
	tk, err := jwtv5.Parse(token,
		func(*jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithExpirationRequired())
	if err != nil || !tk.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	uid, _ := claims["userId"].(string)
	if uid == "" {
		return "", ErrInvalidToken
	}
	return uid, nil
}
