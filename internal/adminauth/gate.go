// Package adminauth decides who may act on the moderation queue.
//
// Two paths are evaluated in order:
//
//  1. trusted automation: the bearer credential equals the configured shared
//     secret. Access is read-only.
//  2. human admin: the bearer credential is a valid identity token whose
//     subject appears in the allow-list. An empty allow-list admits every
//     authenticated identity.
package adminauth

import (
	"crypto/subtle"
	"fmt"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
)

// Kind distinguishes the two authorization paths.
type Kind int

const (
	KindAutomation Kind = iota + 1
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindAutomation:
		return "automation"
	case KindAdmin:
		return "admin"
	}
	return "unknown"
}

// Principal is an authorized caller of the moderation queue.
type Principal struct {
	ID   string
	Kind Kind
}

// CanDecide reports whether the principal may approve or reject records.
func (p Principal) CanDecide() bool { return p.Kind == KindAdmin }

// IdentityVerifier turns a bearer token into a user id.
type IdentityVerifier interface {
	Verify(token string) (string, error)
}

// Config is the injected policy. Admins is the explicit allow-list.
type Config struct {
	AutomationSecret string
	Admins           []string
	Verifier         IdentityVerifier
}

// Gate evaluates Config against presented credentials.
type Gate struct {
	secret   []byte
	admins   map[string]struct{}
	verifier IdentityVerifier
}

// New builds a Gate. The allow-list is copied; later changes to cfg.Admins
// have no effect.
func New(cfg Config) *Gate {
	admins := make(map[string]struct{}, len(cfg.Admins))
	for _, id := range cfg.Admins {
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Gate{
		secret:   []byte(cfg.AutomationSecret),
		admins:   admins,
		verifier: cfg.Verifier,
	}
}

// OpenAllowList reports whether the gate runs with an empty allow-list, in
// which case every authenticated identity is an admin.
func (g *Gate) OpenAllowList() bool { return len(g.admins) == 0 }

// Authorize resolves the bearer credential into a Principal.
// Missing or invalid credentials yield apperr.ErrUnauthorized; a valid identity
// outside a non-empty allow-list yields apperr.ErrForbidden.
func (g *Gate) Authorize(bearer string) (Principal, error) {
	if bearer == "" {
		return Principal{}, apperr.ErrUnauthorized
	}

	if len(g.secret) > 0 && subtle.ConstantTimeCompare([]byte(bearer), g.secret) == 1 {
		return Principal{ID: "automation", Kind: KindAutomation}, nil
	}

	userID, err := g.Authenticate(bearer)
	if err != nil {
		return Principal{}, err
	}

	if !g.OpenAllowList() {
		if _, ok := g.admins[userID]; !ok {
			return Principal{}, fmt.Errorf("user %s is not a moderator: %w", userID, apperr.ErrForbidden)
		}
	}
	return Principal{ID: userID, Kind: KindAdmin}, nil
}

// Authenticate verifies an identity token without applying the allow-list.
func (g *Gate) Authenticate(bearer string) (string, error) {
	if bearer == "" || g.verifier == nil {
		return "", apperr.ErrUnauthorized
	}
	userID, err := g.verifier.Verify(bearer)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return userID, nil
}
