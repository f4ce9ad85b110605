package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Page size bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 20
)

// DefaultRankTimeout bounds the ranking stage when Options leaves it unset.
const DefaultRankTimeout = 3 * time.Second

// Key is a position in the (deadline, id) total order.
type Key struct {
	Deadline time.Time
	ID       string
}

// Catalog reads published scholarships. Page returns up to limit rows
// matching p, ordered by deadline then id, strictly after the key when set.
type Catalog interface {
	Page(ctx context.Context, p Predicate, after *Key, limit int) ([]model.Scholarship, error)
	Count(ctx context.Context, p Predicate) (int, error)
}

// ProfileSource resolves the caller's profile. A caller without a profile
// yields apperr.ErrNotFound.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

// Ranker reorders a page for a profile and returns the ids in relevance order.
// Implementations may omit or repeat ids; the engine repairs the order.
type Ranker interface {
	Rank(ctx context.Context, profile model.Profile, page []Result) ([]string, error)
}

// Request is one search call.
type Request struct {
	CallerID string
	Filters  Filters
	Cursor   string
	Limit    int
}

// Response is the search result page.
type Response struct {
	Scholarships []Result `json:"scholarships"`
	NextCursor   *string  `json:"nextCursor"`
	TotalCount   int      `json:"totalCount"`
	AIRanked     bool     `json:"aiRanked"`
}

// Options tunes an Engine. Zero values select defaults.
type Options struct {
	RankTimeout time.Duration
	Now         func() time.Time
	Logger      *zap.Logger
}

// Engine runs searches. It is safe for concurrent use.
type Engine struct {
	catalog     Catalog
	profiles    ProfileSource
	cursors     *CursorCodec
	ranker      Ranker
	rankTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewEngine wires an Engine. ranker may be nil.
func NewEngine(catalog Catalog, profiles ProfileSource, cursors *CursorCodec, ranker Ranker, opts Options) *Engine {
	if opts.RankTimeout <= 0 {
		opts.RankTimeout = DefaultRankTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		catalog:     catalog,
		profiles:    profiles,
		cursors:     cursors,
		ranker:      ranker,
		rankTimeout: opts.RankTimeout,
		now:         opts.Now,
		log:         opts.Logger,
	}
}

// Search executes req. Failures are *Error values.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, badRequest(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	if err := req.Filters.Validate(); err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: "invalid search filters", Err: err}
	}
	filters := req.Filters.Normalize()

	profile, err := e.profiles.Profile(ctx, req.CallerID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && profile == nil) {
		return emptyResponse(), nil
	}
	if err != nil {
		return nil, e.backendError(ctx, "failed to load profile", err)
	}

	now := e.now()
	pred, err := BuildPredicate(filters, *profile, now)
	if err != nil {
		return nil, err
	}

	var after *Key
	if req.Cursor != "" {
		cur, err := e.cursors.Decode(req.Cursor)
		if err != nil {
			return nil, err
		}
		if cur.FilterHash != filters.Hash() {
			return nil, badRequest("cursor does not match the current filters")
		}
		after = &Key{Deadline: cur.Deadline, ID: cur.ID}
	}

	var (
		rows  []model.Scholarship
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = e.catalog.Page(gctx, pred, after, limit+1)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = e.catalog.Count(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, e.backendError(ctx, "search failed", err)
	}

	resp := &Response{Scholarships: make([]Result, 0, limit), TotalCount: total}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next := e.cursors.Encode(Cursor{
			Deadline:   model.DateOf(*last.Deadline),
			ID:         last.ID,
			FilterHash: filters.Hash(),
		})
		resp.NextCursor = &next
	}
	for _, s := range rows {
		resp.Scholarships = append(resp.Scholarships, Project(s, *profile, now))
	}

	if e.ranker != nil && len(resp.Scholarships) >= 2 {
		if order, ok := e.rank(ctx, *profile, resp.Scholarships); ok {
			resp.Scholarships = applyRanking(resp.Scholarships, order)
			resp.AIRanked = true
		}
	}
	return resp, nil
}

// rank runs the ranker under its own deadline. It never blocks past
// rankTimeout even if the ranker ignores cancellation.
func (e *Engine) rank(ctx context.Context, profile model.Profile, page []Result) ([]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.rankTimeout)
	defer cancel()

	type outcome struct {
		order []string
		err   error
	}
	done := make(chan outcome, 1)
	snapshot := append([]Result(nil), page...)
	go func() {
		order, err := e.ranker.Rank(ctx, profile, snapshot)
		done <- outcome{order, err}
	}()

	log := logger.WithContext(ctx, e.log)
	select {
	case out := <-done:
		if out.err != nil {
			log.Warn("ranking failed, using deterministic order", zap.Error(out.err))
			return nil, false
		}
		if len(out.order) == 0 {
			log.Warn("ranking returned no order, using deterministic order")
			return nil, false
		}
		return out.order, true
	case <-ctx.Done():
		log.Warn("ranking timed out, using deterministic order", zap.Duration("timeout", e.rankTimeout))
		return nil, false
	}
}

// applyRanking reorders page by order. Unknown and repeated ids are skipped;
// rows the ranker omitted keep their relative order at the end.
func applyRanking(page []Result, order []string) []Result {
	byID := make(map[string]Result, len(page))
	for _, r := range page {
		byID[r.ID] = r
	}
	out := make([]Result, 0, len(page))
	placed := make(map[string]bool, len(page))
	for _, id := range order {
		r, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		placed[id] = true
		out = append(out, r)
	}
	for _, r := range page {
		if !placed[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) backendError(ctx context.Context, msg string, err error) *Error {
	logger.WithContext(ctx, e.log).Error(msg, zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Status: http.StatusServiceUnavailable, Message: "search timed out", Err: err}
	}
	return internal(msg, err)
}

func emptyResponse() *Response {
	return &Response{Scholarships: []Result{}}
}
