package matching

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

var ErrInvalid = errors.New("raw pattern and preferred description are required")

// Suggestion is what a learned mapping proposes for a statement line.
type Suggestion struct {
	Description string
	CategoryID  *uuid.UUID
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// FindMatch returns the longest stored pattern contained in
	// rawDescription, or nil when none matches.
	FindMatch(ctx context.Context, userID, rawDescription string) (*Suggestion, error)
	UpsertMapping(ctx context.Context, userID, rawPattern string, s Suggestion) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest tries to find a preferred description and category for the given
// raw description. Returns nil if no match found.
func (s *Service) Suggest(ctx context.Context, userID, rawDescription string) (*Suggestion, error) {
	rawDescription = strings.TrimSpace(rawDescription)
	if rawDescription == "" {
		return nil, nil
	}

	return s.repo.FindMatch(ctx, userID, rawDescription)
}

// Learn remembers a mapping between a raw pattern and a preferred
// description. Learning the same pattern again replaces the old mapping.
func (s *Service) Learn(ctx context.Context, userID, rawPattern string, sug Suggestion) error {
	rawPattern = strings.TrimSpace(rawPattern)
	sug.Description = strings.TrimSpace(sug.Description)

	if rawPattern == "" || sug.Description == "" {
		return ErrInvalid
	}

	return s.repo.UpsertMapping(ctx, userID, rawPattern, sug)
}

// Apply rewrites the description and category of every row with a learned
// mapping and reports how many rows matched. Categories for which known
// returns false are left unset. Lookup failures are logged and skip the row.
func (s *Service) Apply(ctx context.Context, userID string, params []budget.CreateExpenseParams, known func(uuid.UUID) bool) int {
	matched := 0

	for i, p := range params {
		sug, err := s.Suggest(ctx, userID, p.RawDescription)
		if err != nil {
			slog.WarnContext(ctx, "description suggestion failed", "user_id", userID, "error", err)
			continue
		}

		if sug == nil {
			continue
		}

		matched++
		params[i].Description = sug.Description

		if sug.CategoryID != nil && known(*sug.CategoryID) {
			params[i].CategoryID = sug.CategoryID
		}
	}

	return matched
}
