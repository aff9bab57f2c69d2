package respond

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

// Amounts are encoded as decimal strings.

type Category struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	BudgetLimit decimal.Decimal `json:"budgetLimit"`
	Color       string          `json:"color"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func ToCategory(c *budget.Category) Category {
	return Category{
		ID:          c.ID,
		Name:        c.Name,
		BudgetLimit: c.BudgetLimit,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
	}
}

func ToCategories(cs []*budget.Category) []Category {
	resp := make([]Category, len(cs))
	for i, c := range cs {
		resp[i] = ToCategory(c)
	}

	return resp
}

type Expense struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	RawDescription string          `json:"rawDescription,omitempty"`
	Date           time.Time       `json:"date"`
	CategoryID     *uuid.UUID      `json:"categoryId"`
	CategoryName   *string         `json:"categoryName"`
	IsRecurring    bool            `json:"isRecurring"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func ToExpense(e *budget.Expense) Expense {
	return Expense{
		ID:             e.ID,
		Amount:         e.Amount,
		Description:    e.Description,
		RawDescription: e.RawDescription,
		Date:           e.Date,
		CategoryID:     e.CategoryID,
		CategoryName:   e.CategoryName,
		IsRecurring:    e.Recurring,
		CreatedAt:      e.CreatedAt,
	}
}

func ToExpenses(es []*budget.Expense) []Expense {
	resp := make([]Expense, len(es))
	for i, e := range es {
		resp[i] = ToExpense(e)
	}

	return resp
}

// ExpenseInput is the body of an expense creation, also used for the rows
// of a confirmed import.
type ExpenseInput struct {
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	RawDescription string          `json:"rawDescription,omitempty"`
	Date           *time.Time      `json:"date,omitempty"`
	CategoryID     *uuid.UUID      `json:"categoryId,omitempty"`
}

func (in ExpenseInput) Params() budget.CreateExpenseParams {
	p := budget.CreateExpenseParams{
		Amount:         in.Amount,
		Description:    in.Description,
		RawDescription: in.RawDescription,
		CategoryID:     in.CategoryID,
	}
	if in.Date != nil {
		p.Date = *in.Date
	}

	return p
}

func ToExpenseInput(p budget.CreateExpenseParams) ExpenseInput {
	in := ExpenseInput{
		Amount:         p.Amount,
		Description:    p.Description,
		RawDescription: p.RawDescription,
		CategoryID:     p.CategoryID,
	}
	if !p.Date.IsZero() {
		in.Date = new(p.Date)
	}

	return in
}
