package budget

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ImportResult struct {
	Imported  []*Expense
	New       []CreateExpenseParams
	Conflicts []Conflict
}

// Conflict pairs an incoming row with the stored expense it duplicates.
type Conflict struct {
	Incoming CreateExpenseParams
	Existing *Expense
}

// DuplicateKey identifies an expense for duplicate detection.
type DuplicateKey struct {
	Date           string
	Amount         string
	RawDescription string
}

func KeyOf(date time.Time, amount decimal.Decimal, raw string) DuplicateKey {
	return DuplicateKey{
		Date:           date.Format(time.DateOnly),
		Amount:         amount.StringFixed(2),
		RawDescription: raw,
	}
}

// ImportBatch stores parsed statement rows. When any row duplicates a stored
// expense nothing is written and the result lists the conflicts together
// with the rows that are new, so the caller can confirm a subset.
func (s *Service) ImportBatch(ctx context.Context, userID string, params []CreateExpenseParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	params, err := s.validateBatch(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[DuplicateKey]*Expense, len(duplicates))
	for _, d := range duplicates {
		lookup[KeyOf(d.Date, d.Amount, d.RawDescription)] = d
	}

	var (
		newParams []CreateExpenseParams
		conflicts []Conflict
	)

	for _, p := range params {
		existing, found := lookup[KeyOf(p.Date, p.Amount, p.RawDescription)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	es := paramsToExpenses(userID, newParams)
	if err := itx.CreateExpenses(ctx, es); err != nil {
		return nil, fmt.Errorf("create expenses: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "statement imported", "user_id", userID, "count", len(es))

	return &ImportResult{Imported: es}, nil
}

// CreateBatch stores rows without duplicate detection, after the user has
// reviewed the conflicts of an ImportBatch.
func (s *Service) CreateBatch(ctx context.Context, userID string, params []CreateExpenseParams) ([]*Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	params, err := s.validateBatch(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	es := paramsToExpenses(userID, params)
	if err := itx.CreateExpenses(ctx, es); err != nil {
		return nil, fmt.Errorf("create expenses: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return es, nil
}

// validateBatch returns a validated copy of params and checks each distinct
// category once.
func (s *Service) validateBatch(ctx context.Context, userID string, params []CreateExpenseParams) ([]CreateExpenseParams, error) {
	params = slices.Clone(params)
	now := s.now()
	checked := make(map[uuid.UUID]bool)

	for i := range params {
		p := &params[i]

		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		if p.Date.IsZero() {
			p.Date = now
		}

		if p.CategoryID == nil || checked[*p.CategoryID] {
			continue
		}

		if err := s.checkCategory(ctx, userID, p.CategoryID); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		checked[*p.CategoryID] = true
	}

	return params, nil
}

func paramsToExpenses(userID string, params []CreateExpenseParams) []*Expense {
	es := make([]*Expense, len(params))
	for i, p := range params {
		es[i] = &Expense{
			UserID:         userID,
			Amount:         p.Amount,
			Description:    p.Description,
			RawDescription: p.RawDescription,
			Date:           p.Date,
			CategoryID:     p.CategoryID,
		}
	}

	return es
}
