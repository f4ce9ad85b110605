// Package moderation implements the review queue that gates discovered
// scholarships before they become searchable.
//
// Status graph:
//
//	pending ──► needs_review ──► approved
//	   │              │     ╲
//	   │              │      ► rejected
//	   └──────────────┴──► approved | rejected
//
// approved and rejected may be decided again (last write wins); every decision
// is appended to the record's audit history.
package moderation

import (
	"fmt"
	"strings"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
)

// Status values mirror the pending_scholarships.status check constraint.
type Status string

const (
	StatusPending     Status = "pending"
	StatusNeedsReview Status = "needs_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// AwaitingDecision is the default listing bucket.
var AwaitingDecision = []Status{StatusPending, StatusNeedsReview}

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusNeedsReview, StatusApproved, StatusRejected},
	StatusNeedsReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusApproved, StatusRejected},
	StatusRejected:    {StatusApproved, StatusRejected},
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusNeedsReview, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown moderation status %q", s)
}

// ParseStatusList parses a comma-separated status filter. Blank input yields
// AwaitingDecision; duplicates are dropped.
func ParseStatusList(raw string) ([]Status, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]Status(nil), AwaitingDecision...), nil
	}
	var out []Status
	seen := make(map[Status]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := ParseStatus(part)
		if err != nil {
			return nil, apperr.Invalid("status", err.Error())
		}
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	if len(out) == 0 {
		return nil, apperr.Invalid("status", "at least one status is required")
	}
	return out, nil
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status from which to is reachable.
func SourcesFor(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusNeedsReview, StatusApproved, StatusRejected} {
		if IsTransitionAllowed(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// IsDecision returns true for the statuses that carry reviewer audit fields.
func IsDecision(s Status) bool { return s == StatusApproved || s == StatusRejected }

// NormalizeInitial coerces a discovery-supplied status: pending and
// needs_review pass through, anything else becomes pending.
func NormalizeInitial(s string) Status {
	if Status(s) == StatusNeedsReview {
		return StatusNeedsReview
	}
	return StatusPending
}
