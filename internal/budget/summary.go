package budget

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategorySummary is a category with its spending in one cycle.
type CategorySummary struct {
	*Category
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// OverBudget reports whether spending exceeded the limit.
func (c CategorySummary) OverBudget() bool {
	return c.Remaining.IsNegative()
}

// Summary holds the totals of one cycle.
//
// TotalSpent counts every expense in the cycle, including uncategorized
// ones, so it can exceed the sum of the per-category Spent values. The
// difference is reported in Uncategorized.
type Summary struct {
	TotalBudget   decimal.Decimal
	TotalSpent    decimal.Decimal
	Remaining     decimal.Decimal
	Uncategorized decimal.Decimal
	Categories    []CategorySummary
}

// Summarize computes cycle totals. The expenses must already be filtered to
// the cycle.
func Summarize(categories []*Category, expenses []*Expense) Summary {
	spentBy := make(map[uuid.UUID]decimal.Decimal, len(categories))
	totalSpent := decimal.Zero

	for _, e := range expenses {
		totalSpent = totalSpent.Add(e.Amount)

		if e.CategoryID != nil {
			spentBy[*e.CategoryID] = spentBy[*e.CategoryID].Add(e.Amount)
		}
	}

	totalBudget := decimal.Zero
	assigned := decimal.Zero
	summaries := make([]CategorySummary, 0, len(categories))

	for _, c := range categories {
		totalBudget = totalBudget.Add(c.BudgetLimit)

		spent := spentBy[c.ID]
		assigned = assigned.Add(spent)

		summaries = append(summaries, CategorySummary{
			Category:  c,
			Spent:     spent,
			Remaining: c.BudgetLimit.Sub(spent),
		})
	}

	return Summary{
		TotalBudget:   totalBudget,
		TotalSpent:    totalSpent,
		Remaining:     totalBudget.Sub(totalSpent),
		Uncategorized: totalSpent.Sub(assigned),
		Categories:    summaries,
	}
}
