package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/budget/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, userID, rawDescription string) (*matching.Suggestion, error) {
	query := `
		SELECT preferred_description, category_id
		FROM description_mappings
		WHERE user_id = $1 AND $2 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var sug matching.Suggestion

	err := s.db.QueryRowContext(ctx, query, userID, rawDescription).Scan(&sug.Description, &sug.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return &sug, nil
}

func (s *Store) UpsertMapping(ctx context.Context, userID, rawPattern string, sug matching.Suggestion) error {
	query := `
		INSERT INTO description_mappings (user_id, raw_pattern, preferred_description, category_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, raw_pattern) DO UPDATE
		SET preferred_description = EXCLUDED.preferred_description,
		    category_id = EXCLUDED.category_id,
		    created_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, userID, rawPattern, sug.Description, sug.CategoryID)
	if err != nil {
		return fmt.Errorf("upserting mapping: %w", err)
	}

	return nil
}
