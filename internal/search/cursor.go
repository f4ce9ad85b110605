package search

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cursorDateLayout = "2006-01-02"

// Cursor is the resume position of a scan: the sort key of the last row
// returned plus the hash of the filters that produced it.
type Cursor struct {
	Deadline   time.Time
	ID         string
	FilterHash string
}

type cursorWire struct {
	D string `json:"d"`
	I string `json:"i"`
	F string `json:"f"`
}

// CursorCodec signs and verifies cursors so callers can only round-trip them.
type CursorCodec struct {
	secret []byte
}

// NewCursorCodec returns a codec keyed by secret. An empty secret generates a
// random key; cursors then stop validating after a restart.
func NewCursorCodec(secret string) *CursorCodec {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("search: cannot generate cursor key: " + err.Error())
		}
	}
	return &CursorCodec{secret: key}
}

// Encode serializes c as payload.mac, both base64url without padding.
func (cc *CursorCodec) Encode(c Cursor) string {
	payload, _ := json.Marshal(cursorWire{
		D: c.Deadline.UTC().Format(cursorDateLayout),
		I: c.ID,
		F: c.FilterHash,
	})
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(cc.sign(payload))
}

// Decode verifies and parses a token produced by Encode. Any tampering or
// malformed input yields a 400 *Error.
func (cc *CursorCodec) Decode(token string) (Cursor, error) {
	invalid := badRequest("invalid cursor")

	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Cursor{}, invalid
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(body)
	if err != nil {
		return Cursor{}, invalid
	}
	mac, err := enc.DecodeString(sig)
	if err != nil || !hmac.Equal(mac, cc.sign(payload)) {
		return Cursor{}, invalid
	}

	var w cursorWire
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Cursor{}, invalid
	}
	d, err := time.Parse(cursorDateLayout, w.D)
	if err != nil {
		return Cursor{}, invalid
	}
	if _, err := uuid.Parse(w.I); err != nil {
		return Cursor{}, invalid
	}
	return Cursor{Deadline: d, ID: w.I, FilterHash: w.F}, nil
}

func (cc *CursorCodec) sign(payload []byte) []byte {
	m := hmac.New(sha256.New, cc.secret)
	m.Write(payload)
	return m.Sum(nil)
}
