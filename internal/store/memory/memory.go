// Package memory is an in-process storage backend with the same semantics as
// the Postgres store. It backs local runs (STORAGE_BACKEND=memory) and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
)

type record struct {
	item    moderation.Item
	history []moderation.HistoryEntry
	seq     int
}

// Store holds profiles, the moderation queue and the published catalog.
type Store struct {
	mu        sync.RWMutex
	profiles  []model.Profile
	pending   map[string]*record
	byDedup   map[string]string
	published map[string]model.Scholarship
	seq       int
	now       func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		pending:   map[string]*record{},
		byDedup:   map[string]string{},
		published: map[string]model.Scholarship{},
		now:       time.Now,
	}
}

// PutProfile inserts or replaces a profile.
func (s *Store) PutProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].UserID == p.UserID {
			s.profiles[i] = p
			return
		}
	}
	s.profiles = append(s.profiles, p)
}

// PutScholarship publishes sc directly, bypassing moderation. An empty ID is
// assigned.
func (s *Store) PutScholarship(sc model.Scholarship) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.PublishedAt.IsZero() {
		sc.PublishedAt = s.now().UTC()
	}
	s.published[sc.ID] = sc
	return sc.ID
}

// History returns the audit trail of a queue record.
func (s *Store) History(id string) []moderation.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.pending[id]; ok {
		return append([]moderation.HistoryEntry(nil), r.history...)
	}
	return nil
}

// ─── discovery ───────────────────────────────────────────────────────────────

// Locations implements discovery.LocationSource.
func (s *Store) Locations(context.Context) ([]model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Location, 0, len(s.profiles))
	for _, p := range s.profiles {
		if l := p.Location(); l.Key() != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// Ingest implements discovery.Sink.
func (s *Store) Ingest(ctx context.Context, loc model.Location, cands []model.Candidate) (discovery.IngestStats, error) {
	if err := ctx.Err(); err != nil {
		return discovery.IngestStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats discovery.IngestStats
	for _, c := range cands {
		key := c.DedupKey()
		if key == "" {
			continue
		}
		if _, dup := s.byDedup[key]; dup {
			stats.Duplicates++
			continue
		}
		s.seq++
		id := uuid.NewString()
		s.pending[id] = &record{
			seq: s.seq,
			item: moderation.Item{
				ID:            id,
				Candidate:     c,
				DedupKey:      key,
				DiscoveredFor: loc.Key(),
				Status:        moderation.NormalizeInitial(c.InitialStatus),
				CreatedAt:     s.now().UTC(),
			},
		}
		s.byDedup[key] = id
		stats.Inserted++
	}
	return stats, nil
}

// ─── moderation ──────────────────────────────────────────────────────────────

// List implements moderation.Store.
func (s *Store) List(_ context.Context, q moderation.ListQuery) ([]moderation.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*record, 0)
	for _, r := range s.pending {
		for _, st := range q.Statuses {
			if r.item.Status == st {
				recs = append(recs, r)
				break
			}
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.After(b.item.CreatedAt)
		}
		return a.seq > b.seq
	})
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	items := make([]moderation.Item, len(recs))
	for i, r := range recs {
		items[i] = r.item
	}
	return items, nil
}

// Decide implements moderation.Store.
func (s *Store) Decide(_ context.Context, d moderation.Decision) (moderation.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.pending[d.ID]
	if !ok {
		return "", apperr.ErrNotFound
	}
	current := r.item.Status
	allowed := false
	for _, f := range d.From {
		allowed = allowed || f == current
	}
	if !allowed {
		return "", fmt.Errorf("scholarship is %s: %w", current, apperr.ErrConflict)
	}

	at := d.At
	actor := d.Actor
	r.item.Status = d.Status
	r.item.ReviewerNotes = d.Notes
	r.item.ReviewedBy = &actor
	r.item.ReviewedAt = &at
	r.history = append(r.history, d.Entry(current))

	switch d.Status {
	case moderation.StatusApproved:
		if _, exists := s.published[d.ID]; !exists {
			s.published[d.ID] = model.Scholarship{ID: d.ID, Candidate: r.item.Candidate, PublishedAt: at}
		}
	case moderation.StatusRejected:
		delete(s.published, d.ID)
	}
	return current, nil
}

// ─── search ──────────────────────────────────────────────────────────────────

// Profile implements search.ProfileSource.
func (s *Store) Profile(_ context.Context, userID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// Page implements search.Catalog.
func (s *Store) Page(ctx context.Context, p search.Predicate, after *search.Key, limit int) ([]model.Scholarship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := s.matching(p)
	out := make([]model.Scholarship, 0, limit)
	for _, sc := range rows {
		if after != nil && !keyAfter(sc, *after) {
			continue
		}
		out = append(out, sc)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count implements search.Catalog.
func (s *Store) Count(ctx context.Context, p search.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.matching(p)), nil
}

func (s *Store) matching(p search.Predicate) []model.Scholarship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.Scholarship, 0)
	for _, sc := range s.published {
		if p.Matches(sc) {
			rows = append(rows, sc)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		di, dj := model.DateOf(*rows[i].Deadline), model.DateOf(*rows[j].Deadline)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return strings.Compare(rows[i].ID, rows[j].ID) < 0
	})
	return rows
}

func keyAfter(sc model.Scholarship, k search.Key) bool {
	d := model.DateOf(*sc.Deadline)
	if !d.Equal(k.Deadline) {
		return d.After(k.Deadline)
	}
	return sc.ID > k.ID
}
