package flowstate_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dropDatabas3/authbroker/internal/flowstate"
)

func TestRoundTrip(t *testing.T) {
	raw := flowstate.Encode("tok-1", "https://app.acme.com/auth/cb")
	st, err := flowstate.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.ClientToken != "tok-1" || st.RedirectURL != "https://app.acme.com/auth/cb" {
		t.Fatalf("round trip mismatch: %+v", st)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"not base64":    "!!!not-base64!!!",
		"not json":      base64.StdEncoding.EncodeToString([]byte("hello")),
		"empty":         "",
		"missing both":  base64.StdEncoding.EncodeToString([]byte(`{}`)),
		"missing token": base64.StdEncoding.EncodeToString([]byte(`{"redirectUrl":"https://a.com"}`)),
		"missing url":   base64.StdEncoding.EncodeToString([]byte(`{"clientToken":"t"}`)),
	}
	for name, raw := range cases {
		if _, err := flowstate.Decode(raw); !errors.Is(err, flowstate.ErrDecode) {
			t.Errorf("%s: want ErrDecode, got %v", name, err)
		}
	}
}

func TestFieldNames(t *testing.T) {
	// The wire encoding is part of the contract with login surfaces.
	raw := flowstate.Encode("t", "u")
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `{"clientToken":"t","redirectUrl":"u"}`
	if string(b) != want {
		t.Fatalf("wire format changed: %s", b)
	}
}
