package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

// DefaultColor is used for categories created without a color.
const DefaultColor = "#3b82f6"

// DefaultResetDay is the reset day of a user who never saved settings.
const DefaultResetDay = 1

// Category is a monthly spending allowance.
type Category struct {
	ID          uuid.UUID
	UserID      string
	Name        string
	BudgetLimit decimal.Decimal
	Color       string
	CreatedAt   time.Time
}

// CategorySet reports whether an id belongs to cats.
func CategorySet(cats []*Category) func(uuid.UUID) bool {
	ids := make(map[uuid.UUID]bool, len(cats))
	for _, c := range cats {
		ids[c.ID] = true
	}

	return func(id uuid.UUID) bool { return ids[id] }
}

// Expense is a single spending entry. A nil CategoryID means uncategorized.
type Expense struct {
	ID             uuid.UUID
	UserID         string
	Amount         decimal.Decimal
	Description    string
	RawDescription string // Statement text, set on imported expenses
	Date           time.Time
	CategoryID     *uuid.UUID
	CategoryName   *string // Loaded via JOIN
	Recurring      bool    // Injected from a fixed expense at rollover
	CreatedAt      time.Time
}

// Settings is the per-user cycle configuration.
type Settings struct {
	UserID        string
	ResetDay      int
	LastResetDate *time.Time
}

// DefaultSettings returns the settings used for a user with no stored row.
func DefaultSettings(userID string) *Settings {
	return &Settings{UserID: userID, ResetDay: DefaultResetDay}
}

// FixedExpense is a recurring-charge template injected at every rollover.
type FixedExpense struct {
	ID         uuid.UUID
	UserID     string
	Name       string
	Amount     decimal.Decimal
	CategoryID *uuid.UUID
	CreatedAt  time.Time
}

// HistoryEntry archives the totals of one closed cycle.
type HistoryEntry struct {
	ID          uuid.UUID
	UserID      string
	Month       cycle.Month
	TotalBudget decimal.Decimal
	TotalSpent  decimal.Decimal
	CreatedAt   time.Time
}
