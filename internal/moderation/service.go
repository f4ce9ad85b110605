package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
	MaxNotesLength   = 2000
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Item is a pending_scholarships row as returned to moderators.
type Item struct {
	ID string `json:"id"`
	model.Candidate
	DedupKey      string     `json:"dedupKey"`
	DiscoveredFor string     `json:"discoveredFor"`
	Status        Status     `json:"status"`
	ReviewerNotes *string    `json:"reviewerNotes"`
	ReviewedBy    *string    `json:"reviewedBy"`
	ReviewedAt    *time.Time `json:"reviewedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ListQuery selects queue items by status, newest first.
type ListQuery struct {
	Statuses []Status
	Limit    int
}

// Decision is a validated approve/reject request handed to the Store.
type Decision struct {
	ID     string
	Status Status
	// From lists the statuses the record may currently be in.
	From  []Status
	Actor string
	Notes *string
	At    time.Time
}

// HistoryEntry is one element of a record's audit history.
type HistoryEntry struct {
	From  Status    `json:"from"`
	To    Status    `json:"to"`
	Actor string    `json:"actor"`
	Notes *string   `json:"notes,omitempty"`
	At    time.Time `json:"at"`
}

// Entry builds the audit entry for d given the record's prior status.
func (d Decision) Entry(from Status) HistoryEntry {
	return HistoryEntry{From: from, To: d.Status, Actor: d.Actor, Notes: d.Notes, At: d.At.UTC()}
}

// Store persists the moderation queue.
//
// Decide applies d atomically: it returns apperr.ErrNotFound for an unknown
// id and an apperr.ErrConflict-wrapped error when the current status is not
// in d.From. On approval the record is published to the search catalog; on
// rejection any published copy is withdrawn. It returns the prior status.
type Store interface {
	List(ctx context.Context, q ListQuery) ([]Item, error)
	Decide(ctx context.Context, d Decision) (Status, error)
}

// Publisher broadcasts decision events. Failures never fail a decision.
type Publisher interface {
	PublishDecision(ctx context.Context, ev Event) error
}

// Event describes one applied decision.
type Event struct {
	Type          string    `json:"type"`
	ScholarshipID string    `json:"scholarshipId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
}

// EventModerated is the Event.Type of every decision event.
const EventModerated = "SCHOLARSHIP_MODERATED"

// ─── Service ─────────────────────────────────────────────────────────────────

// Service enforces authorization and input rules in front of a Store.
// It has no dependency on a transport; HTTP and gRPC both call it.
type Service struct {
	store Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

// NewService returns a configured Service. pub may be nil.
func NewService(store Store, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, pub: pub, log: log, now: time.Now}
}

// WithClock overrides the decision timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns queue items in the given statuses, newest-created first.
// A zero limit selects DefaultListLimit.
func (s *Service) List(ctx context.Context, p adminauth.Principal, statuses []Status, limit int) ([]Item, error) {
	if p.Kind == 0 {
		return nil, apperr.ErrUnauthorized
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, apperr.Invalid("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	}
	if len(statuses) == 0 {
		statuses = AwaitingDecision
	}

	items, err := s.store.List(ctx, ListQuery{Statuses: statuses, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list pending scholarships: %w", err)
	}
	return items, nil
}

// Approve marks the record approved and publishes it to search.
func (s *Service) Approve(ctx context.Context, p adminauth.Principal, id string, notes *string) (Status, error) {
	return s.decide(ctx, p, id, StatusApproved, notes)
}

// Reject marks the record rejected and withdraws any published copy.
func (s *Service) Reject(ctx context.Context, p adminauth.Principal, id string, notes *string) (Status, error) {
	return s.decide(ctx, p, id, StatusRejected, notes)
}

func (s *Service) decide(ctx context.Context, p adminauth.Principal, id string, to Status, notes *string) (Status, error) {
	if p.Kind == 0 {
		return "", apperr.ErrUnauthorized
	}
	if !p.CanDecide() {
		return "", fmt.Errorf("%s principal cannot %s: %w", p.Kind, verb(to), apperr.ErrForbidden)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.Invalid("id", "must be a UUID")
	}
	notes, err := normalizeNotes(notes)
	if err != nil {
		return "", err
	}

	d := Decision{
		ID:     id,
		Status: to,
		From:   SourcesFor(to),
		Actor:  p.ID,
		Notes:  notes,
		At:     s.now().UTC(),
	}
	from, err := s.store.Decide(ctx, d)
	if err != nil {
		return "", err
	}

	log := logger.WithContext(ctx, s.log)
	log.Info("scholarship moderated",
		zap.String("scholarship_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reviewer", p.ID),
	)

	// Publish decision event (non-fatal)
	if s.pub != nil {
		ev := Event{Type: EventModerated, ScholarshipID: id, From: from, To: to, Actor: p.ID, At: d.At}
		if err := s.pub.PublishDecision(ctx, ev); err != nil {
			log.Warn("publish decision event failed", zap.Error(err))
		}
	}
	return to, nil
}

func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if utf8.RuneCountInString(trimmed) > MaxNotesLength {
		return nil, apperr.Invalid("reviewerNotes", fmt.Sprintf("must be at most %d characters", MaxNotesLength))
	}
	return &trimmed, nil
}

func verb(s Status) string {
	if s == StatusApproved {
		return "approve"
	}
	return "reject"
}
