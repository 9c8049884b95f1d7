// Package oauth define el contrato agnóstico de provider para los
// proveedores de identidad upstream que consume el broker. Cada adapter
// intercambia material de autorización por una identidad normalizada
// usando credenciales OAuth del tenant; no existe credencial global de
// fallback.
package oauth

import (
	"context"
	"fmt"
)

// Identity es la forma agnóstica de provider que produce un adapter.
// ExternalID es obligatorio; Email puede faltar según la política del
// provider (ver el adapter de facebook, que lo exige).
type Identity struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
	PictureURL string
}

// Credential es la app OAuth de un tenant para un provider.
type Credential struct {
	ClientID     string
	ClientSecret string
}

// Provider lo implementan los adapters de google y facebook. El
// orquestador es agnóstico de provider más allá del dispatch.
type Provider interface {
	// Name devuelve el nombre estable del provider ("google", "facebook").
	Name() string

	// AuthURL arma la URL de autorización del provider para el flujo
	// browser. El parámetro state lleva el contexto de tenant codificado.
	AuthURL(cred Credential, state string) string

	// Exchange cambia un authorization code por una identidad
	// normalizada: intercambio en el token endpoint y fetch del perfil.
	Exchange(ctx context.Context, cred Credential, code string) (*Identity, error)

	// VerifyNative acepta material de autorización pre-emitido desde una
	// app nativa (ID token de Google, access token de Facebook), lo
	// verifica contra la credencial del tenant y devuelve la identidad.
	VerifyNative(ctx context.Context, cred Credential, material string) (*Identity, error)
}

// Error es una falla del provider upstream. Cualquier respuesta no-2xx,
// falla de transporte o respuesta sin external id aborta el flujo con
// uno de estos; el broker nunca degrada a una identidad parcial.
type Error struct {
	Provider string
	Op       string
	Status   int // status HTTP del provider, 0 para errores de transporte
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: provider returned %d", e.Provider, e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
