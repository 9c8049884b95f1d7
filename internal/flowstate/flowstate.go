// Package flowstate codifica el contexto de tenant que viaja por el
// redirect OAuth de terceros como query param `state`.
//
// La codificación es base64 sobre JSON y ofrece sólo ofuscación de
// transporte; no va firmada. Los campos decodificados son input no
// confiable y se re-validan contra el registry de clients antes de
// cualquier acción privilegiada.
package flowstate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrDecode cubre cualquier state malformado: base64 roto, JSON roto o
// campos faltantes. Los callers lo tratan igual que un redirect inválido.
var ErrDecode = errors.New("malformed flow state")

// State es el contexto de tenant que sobrevive el round-trip al provider.
type State struct {
	ClientToken string `json:"clientToken"`
	RedirectURL string `json:"redirectUrl"`
}

// Encode serializa el state para usarlo como parámetro state de OAuth.
func Encode(clientToken, redirectURL string) string {
	b, _ := json.Marshal(State{ClientToken: clientToken, RedirectURL: redirectURL})
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parsea un state codificado. Nunca paniquea con input hostil.
func Decode(raw string) (State, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return State{}, ErrDecode
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, ErrDecode
	}
	if st.ClientToken == "" || st.RedirectURL == "" {
		return State{}, ErrDecode
	}
	return st, nil
}
