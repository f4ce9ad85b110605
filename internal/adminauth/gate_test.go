package adminauth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
)

const testSecret = "test-jwt-secret"

func issue(t *testing.T, subject string) string {
	t.Helper()
	tok, err := NewTokenVerifier(testSecret).Issue(subject, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func TestAuthorize_EmptyAllowListAdmitsAnyIdentity(t *testing.T) {
	g := New(Config{Verifier: NewTokenVerifier(testSecret)})

	p, err := g.Authorize(issue(t, "random-user"))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Kind != KindAdmin || p.ID != "random-user" {
		t.Errorf("principal = %+v, want admin random-user", p)
	}
	if !g.OpenAllowList() {
		t.Error("OpenAllowList should be true for an empty list")
	}
}

func TestAuthorize_NonEmptyAllowList(t *testing.T) {
	g := New(Config{Admins: []string{"alice"}, Verifier: NewTokenVerifier(testSecret)})

	if _, err := g.Authorize(issue(t, "alice")); err != nil {
		t.Errorf("listed admin rejected: %v", err)
	}

	_, err := g.Authorize(issue(t, "mallory"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("unlisted identity: err = %v, want ErrForbidden", err)
	}
}

func TestAuthorize_MissingIdentity(t *testing.T) {
	g := New(Config{Admins: []string{"alice"}, Verifier: NewTokenVerifier(testSecret)})

	for _, bearer := range []string{"", "not-a-jwt"} {
		_, err := g.Authorize(bearer)
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("Authorize(%q) err = %v, want ErrUnauthorized", bearer, err)
		}
	}
}

func TestAuthorize_AutomationSecretIsReadOnly(t *testing.T) {
	g := New(Config{AutomationSecret: "pipeline-secret", Admins: []string{"alice"}, Verifier: NewTokenVerifier(testSecret)})

	p, err := g.Authorize("pipeline-secret")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Kind != KindAutomation {
		t.Errorf("kind = %s, want automation", p.Kind)
	}
	if p.CanDecide() {
		t.Error("automation principal must not decide")
	}
}

func TestAuthorize_AutomationPathDisabledWithoutSecret(t *testing.T) {
	g := New(Config{Verifier: NewTokenVerifier(testSecret)})

	if _, err := g.Authorize("anything"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestAuthorize_WrongSigningKey(t *testing.T) {
	g := New(Config{Verifier: NewTokenVerifier(testSecret)})
	forged, err := NewTokenVerifier("other-secret").Issue("alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Authorize(forged); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerify_ExpiredAndNoSubject(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	expired, err := v.Issue("alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(expired); err == nil {
		t.Error("expired token accepted")
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(noSub); err == nil {
		t.Error("token without subject accepted")
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenVerifier(testSecret).Verify(tok); err == nil {
		t.Error("alg=none token accepted")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := BearerToken(c.header)
		if got != c.want || ok != c.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", c.header, got, ok, c.want, c.ok)
		}
	}
}
