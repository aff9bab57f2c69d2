package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

type demoExpense struct {
	daysAgo     int
	amount      string
	description string
	category    string
}

var demoExpenses = []demoExpense{
	{0, "245.90", "Shufersal", "Groceries"},
	{1, "310.00", "Paz fuel", "Fuel & Transport"},
	{2, "45.99", "Netflix", "Entertainment"},
	{3, "1820.00", "Big shop before the holidays", "Groceries"},
	{4, "38.00", "Parking", ""},
	{6, "612.40", "Electricity", "Bills"},
}

// seedDemo fills an empty user with the default categories, a fixed rent
// expense and a few expenses of the current cycle.
func seedDemo(ctx context.Context, svc *budget.Service, userID string, now time.Time) error {
	if _, err := svc.UpdateSettings(ctx, userID, budget.UpdateSettingsParams{ResetDay: 1}); err != nil {
		return err
	}

	cats, err := svc.ListCategories(ctx, userID)
	if err != nil {
		return err
	}

	byName := make(map[string]*budget.Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}

	if rent, ok := byName["Rent"]; ok {
		_, err := svc.CreateFixedExpense(ctx, userID, budget.CreateFixedExpenseParams{
			Name:       "Rent",
			Amount:     decimal.NewFromInt(4000),
			CategoryID: &rent.ID,
		})
		if err != nil {
			return err
		}
	}

	for _, e := range demoExpenses {
		params := budget.CreateExpenseParams{
			Amount:      decimal.RequireFromString(e.amount),
			Description: e.description,
			Date:        now.AddDate(0, 0, -e.daysAgo),
		}
		if c, ok := byName[e.category]; ok {
			params.CategoryID = &c.ID
		}

		if _, err := svc.CreateExpense(ctx, userID, params); err != nil {
			return err
		}
	}

	return nil
}
