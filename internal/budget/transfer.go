package budget

import (
	"context"
	"fmt"
	"log/slog"
)

// MoveBudget moves part of one category's limit to another. Both limits
// change in one transaction, or neither does.
func (s *Service) MoveBudget(ctx context.Context, userID string, params MoveParams) error {
	if err := params.validate(); err != nil {
		return err
	}

	err := withRetry(ctx, s.retry, "move budget", func() error {
		return s.moveBudget(ctx, userID, params)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "budget moved",
		"user_id", userID,
		"from", params.FromCategoryID,
		"to", params.ToCategoryID,
		"amount", params.Amount.StringFixed(2))

	return nil
}

func (s *Service) moveBudget(ctx context.Context, userID string, params MoveParams) error {
	ttx, err := s.repo.BeginTransfer(ctx, userID)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer ttx.Rollback()

	cats, err := ttx.LockCategories(ctx, params.FromCategoryID, params.ToCategoryID)
	if err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}

	var from, to *Category

	for _, c := range cats {
		switch c.ID {
		case params.FromCategoryID:
			from = c
		case params.ToCategoryID:
			to = c
		}
	}

	if from == nil || to == nil {
		return fmt.Errorf("category not found: %w", ErrNotFound)
	}

	newFrom := from.BudgetLimit.Sub(params.Amount)
	if newFrom.IsNegative() {
		return ErrInsufficientFunds
	}

	if err := ttx.SetBudgetLimit(ctx, from.ID, newFrom); err != nil {
		return fmt.Errorf("debit source: %w", err)
	}

	if err := ttx.SetBudgetLimit(ctx, to.ID, to.BudgetLimit.Add(params.Amount)); err != nil {
		return fmt.Errorf("credit target: %w", err)
	}

	if err := ttx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	return nil
}
