package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
)

// Ingest implements discovery.Sink. Candidates whose dedup key is already
// queued count as duplicates. All inserts share one transaction.
func (s *Store) Ingest(ctx context.Context, loc model.Location, cands []model.Candidate) (discovery.IngestStats, error) {
	var stats discovery.IngestStats
	if len(cands) == 0 {
		return stats, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("ingest begin: %w", err)
	}
	defer rollback(ctx, tx)

	const insert = `INSERT INTO pending_scholarships (` + candidateColumns + `,
		dedup_key, discovered_for, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23)
		ON CONFLICT (dedup_key) DO NOTHING`

	for _, c := range cands {
		key := c.DedupKey()
		if key == "" {
			continue
		}
		args := append(candidateArgs(c), key, loc.Key(), string(moderation.NormalizeInitial(c.InitialStatus)))
		tag, err := tx.Exec(ctx, insert, args...)
		if err != nil {
			return discovery.IngestStats{}, fmt.Errorf("ingest %q: %w", c.Name, err)
		}
		if tag.RowsAffected() == 1 {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return discovery.IngestStats{}, fmt.Errorf("ingest commit: %w", err)
	}
	return stats, nil
}

// List implements moderation.Store.
func (s *Store) List(ctx context.Context, q moderation.ListQuery) ([]moderation.Item, error) {
	statuses := make([]string, len(q.Statuses))
	for i, st := range q.Statuses {
		statuses[i] = string(st)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, `+candidateColumns+`, dedup_key, discovered_for, status,
		        reviewer_notes, reviewed_by, reviewed_at, created_at
		 FROM pending_scholarships
		 WHERE status = ANY($1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		statuses, q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending query: %w", err)
	}
	defer rows.Close()

	items := make([]moderation.Item, 0)
	for rows.Next() {
		var it moderation.Item
		dest := append([]any{&it.ID}, candidateDest(&it.Candidate)...)
		dest = append(dest, &it.DedupKey, &it.DiscoveredFor, &it.Status,
			&it.ReviewerNotes, &it.ReviewedBy, &it.ReviewedAt, &it.CreatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("list pending scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Decide implements moderation.Store. The row is locked for the duration of
// the transaction so concurrent decisions serialise.
func (s *Store) Decide(ctx context.Context, d moderation.Decision) (moderation.Status, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("decide begin: %w", err)
	}
	defer rollback(ctx, tx)

	var current moderation.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM pending_scholarships WHERE id = $1 FOR UPDATE`, d.ID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("decide lookup: %w", err)
	}
	if !allowed(d.From, current) {
		return "", fmt.Errorf("scholarship is %s: %w", current, apperr.ErrConflict)
	}

	entry, _ := json.Marshal([]moderation.HistoryEntry{d.Entry(current)})
	_, err = tx.Exec(ctx,
		`UPDATE pending_scholarships
		 SET status         = $1,
		     reviewer_notes = $2,
		     reviewed_by    = $3,
		     reviewed_at    = $4,
		     history        = history || $5::jsonb
		 WHERE id = $6`,
		string(d.Status), d.Notes, d.Actor, d.At, string(entry), d.ID,
	)
	if err != nil {
		return "", fmt.Errorf("decide update: %w", err)
	}

	switch d.Status {
	case moderation.StatusApproved:
		_, err = tx.Exec(ctx,
			`INSERT INTO scholarships (id, `+candidateColumns+`, published_at)
			 SELECT id, `+candidateColumns+`, $2
			 FROM pending_scholarships WHERE id = $1
			 ON CONFLICT (id) DO NOTHING`,
			d.ID, d.At)
	case moderation.StatusRejected:
		_, err = tx.Exec(ctx, `DELETE FROM scholarships WHERE id = $1`, d.ID)
	}
	if err != nil {
		return "", fmt.Errorf("decide catalog sync: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("decide commit: %w", err)
	}
	return current, nil
}

func allowed(from []moderation.Status, s moderation.Status) bool {
	for _, f := range from {
		if f == s {
			return true
		}
	}
	return false
}
