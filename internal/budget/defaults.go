package budget

import "github.com/shopspring/decimal"

// DefaultCategories returns the categories seeded for a new user.
func DefaultCategories(userID string) []*Category {
	defaults := []struct {
		name  string
		limit int64
		color string
	}{
		{"Rent", 4000, "#ef4444"},
		{"Groceries", 2500, "#f97316"},
		{"Bills", 1000, "#eab308"},
		{"Fuel & Transport", 800, "#22c55e"},
		{"Entertainment", 500, "#a855f7"},
	}

	cats := make([]*Category, len(defaults))
	for i, d := range defaults {
		cats[i] = &Category{
			UserID:      userID,
			Name:        d.name,
			BudgetLimit: decimal.NewFromInt(d.limit),
			Color:       d.color,
		}
	}

	return cats
}
