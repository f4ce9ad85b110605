package search

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	cc := NewCursorCodec("cursor-secret")
	in := Cursor{
		Deadline:   time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		ID:         "0b8f9d2c-1e43-4d5a-8c7b-3f2e1a0d9c8b",
		FilterHash: Filters{Amount: Amount1k}.Hash(),
	}
	tok := cc.Encode(in)
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q is not base64url without padding", tok)
	}
	out, err := cc.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !out.Deadline.Equal(in.Deadline) || out.ID != in.ID || out.FilterHash != in.FilterHash {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestCursor_RejectsTampering(t *testing.T) {
	cc := NewCursorCodec("cursor-secret")
	tok := cc.Encode(Cursor{Deadline: time.Now(), ID: "0b8f9d2c-1e43-4d5a-8c7b-3f2e1a0d9c8b"})
	body, sig, _ := strings.Cut(tok, ".")

	forgedPayload := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"d":"2020-01-01","i":"0b8f9d2c-1e43-4d5a-8c7b-3f2e1a0d9c8b","f":""}`))

	cases := map[string]string{
		"empty":          "",
		"no separator":   body,
		"bad base64":     "!!!." + sig,
		"swapped body":   forgedPayload + "." + sig,
		"truncated mac":  body + "." + sig[:10],
		"foreign secret": NewCursorCodec("other-secret").Encode(Cursor{Deadline: time.Now(), ID: "0b8f9d2c-1e43-4d5a-8c7b-3f2e1a0d9c8b"}),
	}
	for name, tok := range cases {
		_, err := cc.Decode(tok)
		var se *Error
		if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
			t.Errorf("%s: err = %v, want 400 *Error", name, err)
		}
	}
}

func TestCursor_RejectsSignedGarbage(t *testing.T) {
	cc := NewCursorCodec("cursor-secret")
	payload := []byte(`{"d":"not-a-date","i":"x","f":""}`)
	tok := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(cc.sign(payload))
	if _, err := cc.Decode(tok); err == nil {
		t.Error("signed but malformed payload accepted")
	}
}

func TestCursor_RandomKeyWhenSecretEmpty(t *testing.T) {
	a, b := NewCursorCodec(""), NewCursorCodec("")
	tok := a.Encode(Cursor{Deadline: time.Now(), ID: "0b8f9d2c-1e43-4d5a-8c7b-3f2e1a0d9c8b"})
	if _, err := a.Decode(tok); err != nil {
		t.Errorf("own cursor rejected: %v", err)
	}
	if _, err := b.Decode(tok); err == nil {
		t.Error("codecs with random keys must not share cursors")
	}
}
