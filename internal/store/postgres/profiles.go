package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

// Locations implements discovery.LocationSource. Profiles with neither a
// city nor a state are skipped; case-folding is left to the deduplicator.
func (s *Store) Locations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(city, ''), COALESCE(state, '')
		 FROM profiles
		 WHERE COALESCE(TRIM(city), '') <> '' OR COALESCE(TRIM(state), '') <> ''
		 ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("locations query: %w", err)
	}
	defer rows.Close()

	locs := make([]model.Location, 0)
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.City, &l.State); err != nil {
			return nil, fmt.Errorf("locations scan: %w", err)
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// Profile implements search.ProfileSource.
func (s *Store) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, city, state, gpa::float8, graduation_year, ethnicity, gender,
		        first_generation, agi_range, intended_major, athletics, ec_categories
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.City, &p.State, &p.GPA, &p.GraduationYear, &p.Ethnicity, &p.Gender,
		&p.FirstGeneration, &p.AGIRange, &p.IntendedMajor, &p.Athletics, &p.ECCategories,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile query: %w", err)
	}
	return &p, nil
}
