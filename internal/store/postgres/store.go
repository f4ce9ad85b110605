// Package postgres implements the discovery sink, the moderation queue, the
// profile lookup and the published catalog on top of pgx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

//go:embed schema.sql
var schema string

// Store is safe for concurrent use; all state lives in the pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// candidateColumns are shared by pending_scholarships and scholarships, in
// the order scanCandidate expects.
const candidateColumns = `name, organization, amount, deadline, application_url, description,
	eligibility, city, state, is_national, competition_level, estimated_applicants,
	requires_essay, requires_recommendation, requires_transcript, requires_resume,
	essay_word_count, essay_prompts, min_gpa, source_url`

func candidateDest(c *model.Candidate) []any {
	return []any{
		&c.Name, &c.Organization, &c.Amount, &c.Deadline, &c.ApplicationURL, &c.Description,
		&c.Eligibility, &c.City, &c.State, &c.IsNational, &c.CompetitionLevel, &c.EstimatedApplicants,
		&c.RequiresEssay, &c.RequiresRecommendation, &c.RequiresTranscript, &c.RequiresResume,
		&c.EssayWordCount, &c.EssayPrompts, &c.MinGPA, &c.SourceURL,
	}
}

func candidateArgs(c model.Candidate) []any {
	prompts := c.EssayPrompts
	if prompts == nil {
		prompts = []string{}
	}
	var level *string
	if c.CompetitionLevel != nil && model.ValidCompetitionLevel(*c.CompetitionLevel) {
		level = c.CompetitionLevel
	}
	return []any{
		c.Name, c.Organization, c.Amount, c.Deadline, c.ApplicationURL, c.Description,
		c.Eligibility, c.City, c.State, c.IsNational, level, c.EstimatedApplicants,
		c.RequiresEssay, c.RequiresRecommendation, c.RequiresTranscript, c.RequiresResume,
		c.EssayWordCount, prompts, c.MinGPA, c.SourceURL,
	}
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(context.WithoutCancel(ctx))
}
