package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

// State is the rollover state of a user.
type State string

const (
	StateUpToDate    State = "up_to_date"
	StateRolloverDue State = "rollover_due"
	StateNoSettings  State = "no_settings"
)

// FixedExpensePrefix starts the description of every injected expense.
const FixedExpensePrefix = "Fixed expense: "

// Publisher is notified after a rollover commits.
type Publisher interface {
	PublishRollover(ctx context.Context, event RolloverEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishRollover(context.Context, RolloverEvent) error { return nil }

// RolloverEvent describes a committed rollover.
type RolloverEvent struct {
	UserID        string          `json:"user_id"`
	ArchivedMonth cycle.Month     `json:"archived_month"`
	TotalBudget   decimal.Decimal `json:"total_budget"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	Injected      int             `json:"injected"`
	Archived      bool            `json:"archived"`
	CycleStart    time.Time       `json:"cycle_start"`
	CycleEnd      time.Time       `json:"cycle_end"`
	At            time.Time       `json:"at"`
}

// Rollover is the result of a rollover performed by Check. Archived is false
// when the previous cycle's month already had a history entry, which happens
// after the reset day moved forward; History then is the stored entry.
type Rollover struct {
	Period   cycle.Period
	History  *HistoryEntry
	Archived bool
	Injected []*Expense
	At       time.Time
}

// Engine closes finished cycles. It runs lazily from the read paths and
// performs at most one rollover per user and cycle.
type Engine struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
	retry     RetryOptions
}

// Status reports whether a rollover is due, without performing it.
func (e *Engine) Status(ctx context.Context, userID string) (State, error) {
	settings, err := e.repo.GetSettings(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return StateNoSettings, nil
	}

	if err != nil {
		return "", err
	}

	if rolledOver(settings, cycle.Current(e.now(), settings.ResetDay)) {
		return StateUpToDate, nil
	}

	return StateRolloverDue, nil
}

// Check performs the rollover for the current cycle if it has not happened
// yet. It returns nil when there was nothing to do.
func (e *Engine) Check(ctx context.Context, userID string) (*Rollover, error) {
	state, err := e.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rollover status: %w", err)
	}

	if state != StateRolloverDue {
		return nil, nil
	}

	var result *Rollover

	err = withRetry(ctx, e.retry, "rollover", func() error {
		var err error
		result, err = e.rollover(ctx, userID)

		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	slog.InfoContext(ctx, "budget cycle rolled over",
		"user_id", userID,
		"archived_month", result.History.Month.String(),
		"total_spent", result.History.TotalSpent.StringFixed(2),
		"archived", result.Archived,
		"injected", len(result.Injected))

	event := RolloverEvent{
		UserID:        userID,
		ArchivedMonth: result.History.Month,
		TotalBudget:   result.History.TotalBudget,
		TotalSpent:    result.History.TotalSpent,
		Injected:      len(result.Injected),
		Archived:      result.Archived,
		CycleStart:    result.Period.Start,
		CycleEnd:      result.Period.End,
		At:            result.At,
	}
	if err := e.publisher.PublishRollover(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish rollover event", "user_id", userID, "error", err)
	}

	return result, nil
}

// rollover runs one attempt inside a transaction holding the user's lock.
// The watermark is re-checked under the lock, so a concurrent rollover that
// committed first turns this one into a no-op.
func (e *Engine) rollover(ctx context.Context, userID string) (*Rollover, error) {
	rtx, err := e.repo.BeginRollover(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin rollover: %w", err)
	}
	defer rtx.Rollback()

	settings, err := rtx.LockSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("lock settings: %w", err)
	}

	now := e.now()
	current := cycle.Current(now, settings.ResetDay)

	if rolledOver(settings, current) {
		return nil, nil
	}

	previous := current.Previous(settings.ResetDay)

	history, err := rtx.GetHistory(ctx, previous.Month())

	archived := errors.Is(err, ErrNotFound)
	if err != nil && !archived {
		return nil, fmt.Errorf("get history %s: %w", previous.Month(), err)
	}

	if archived {
		if history, err = e.archive(ctx, rtx, userID, previous); err != nil {
			return nil, err
		}
	} else {
		slog.WarnContext(ctx, "cycle month already archived, keeping the stored entry",
			"user_id", userID, "month", previous.Month().String())
	}

	fixed, err := rtx.ListFixedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}

	injected := make([]*Expense, 0, len(fixed))
	for _, fe := range fixed {
		injected = append(injected, &Expense{
			UserID:      userID,
			Amount:      fe.Amount,
			Description: FixedExpensePrefix + fe.Name,
			Date:        now,
			CategoryID:  fe.CategoryID,
			Recurring:   true,
		})
	}

	if len(injected) > 0 {
		if err := rtx.CreateExpenses(ctx, injected); err != nil {
			return nil, fmt.Errorf("inject fixed expenses: %w", err)
		}
	}

	if err := rtx.SetLastReset(ctx, now); err != nil {
		return nil, fmt.Errorf("advance watermark: %w", err)
	}

	if err := rtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rollover: %w", err)
	}

	return &Rollover{
		Period:   current,
		History:  history,
		Archived: archived,
		Injected: injected,
		At:       now,
	}, nil
}

// archive stores the totals of the finished cycle.
func (e *Engine) archive(ctx context.Context, rtx RolloverTx, userID string, previous cycle.Period) (*HistoryEntry, error) {
	cats, err := rtx.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	expenses, err := rtx.ListExpenses(ctx, previous)
	if err != nil {
		return nil, fmt.Errorf("list previous cycle expenses: %w", err)
	}

	summary := Summarize(cats, expenses)

	history := &HistoryEntry{
		UserID:      userID,
		Month:       previous.Month(),
		TotalBudget: summary.TotalBudget,
		TotalSpent:  summary.TotalSpent,
	}
	if err := rtx.InsertHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("archive %s: %w", history.Month, err)
	}

	return history, nil
}

// rolledOver reports whether the watermark already covers the cycle.
func rolledOver(s *Settings, current cycle.Period) bool {
	return s.LastResetDate != nil && !s.LastResetDate.Before(current.Start)
}
