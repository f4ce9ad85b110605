package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
)

// Page implements search.Catalog.
func (s *Store) Page(ctx context.Context, p search.Predicate, after *search.Key, limit int) ([]model.Scholarship, error) {
	where, args := buildWhere(p, after)
	args = append(args, limit)
	sql := `SELECT id::text, ` + candidateColumns + `, published_at
		FROM scholarships
		WHERE ` + where + `
		ORDER BY deadline ASC, id ASC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog page query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Scholarship, 0, limit)
	for rows.Next() {
		var sc model.Scholarship
		dest := append([]any{&sc.ID}, candidateDest(&sc.Candidate)...)
		dest = append(dest, &sc.PublishedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("catalog page scan: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Count implements search.Catalog.
func (s *Store) Count(ctx context.Context, p search.Predicate) (int, error) {
	where, args := buildWhere(p, nil)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scholarships WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog count: %w", err)
	}
	return n, nil
}

// buildWhere renders p as a parameterised condition. Semantics follow
// search.Predicate.Matches.
func buildWhere(p search.Predicate, after *search.Key) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "deadline >= "+arg(p.DeadlineFrom)+"::date")
	if p.DeadlineTo != nil {
		conds = append(conds, "deadline <= "+arg(*p.DeadlineTo)+"::date")
	}
	if p.City != "" {
		conds = append(conds, "lower(trim(city)) = "+arg(p.City))
	}
	if p.State != "" {
		conds = append(conds, "lower(trim(state)) = "+arg(p.State))
	}
	if p.NationalOnly {
		conds = append(conds, "is_national")
	}
	if p.MinAmount > 0 {
		conds = append(conds, "amount >= "+arg(p.MinAmount))
	}
	if len(p.CompetitionLevels) > 0 {
		conds = append(conds, "competition_level = ANY("+arg(p.CompetitionLevels)+")")
	}
	if p.RequiresEssay != nil {
		conds = append(conds, "requires_essay = "+arg(*p.RequiresEssay))
	}
	if after != nil {
		conds = append(conds, "(deadline, id) > ("+arg(after.Deadline)+"::date, "+arg(after.ID)+"::uuid)")
	}
	return strings.Join(conds, " AND "), args
}
