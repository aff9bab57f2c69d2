package budget

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type CreateCategoryParams struct {
	Name        string
	BudgetLimit decimal.Decimal
	Color       string
}

func (p *CreateCategoryParams) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("name", "name is required")
	}

	if err := validateLimit("budgetLimit", p.BudgetLimit); err != nil {
		return err
	}

	if p.Color == "" {
		p.Color = DefaultColor
	}

	if !colorPattern.MatchString(p.Color) {
		return invalid("color", "color must be a hex value like #3b82f6")
	}

	return nil
}

// UpdateCategoryParams carries a partial update; nil fields are left as is.
// Repositories write only the non-nil columns, so a rename never rewrites a
// budget limit that a concurrent transfer just changed.
type UpdateCategoryParams struct {
	Name        *string
	BudgetLimit *decimal.Decimal
	Color       *string
}

// normalize validates the set fields and trims the name in place.
func (p *UpdateCategoryParams) normalize() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return invalid("name", "name cannot be empty")
		}

		p.Name = &name
	}

	if p.BudgetLimit != nil {
		if err := validateLimit("budgetLimit", *p.BudgetLimit); err != nil {
			return err
		}
	}

	if p.Color != nil && !colorPattern.MatchString(*p.Color) {
		return invalid("color", "color must be a hex value like #3b82f6")
	}

	return nil
}

// Apply copies the set fields onto c.
func (p UpdateCategoryParams) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}

	if p.BudgetLimit != nil {
		c.BudgetLimit = *p.BudgetLimit
	}

	if p.Color != nil {
		c.Color = *p.Color
	}
}

type CreateExpenseParams struct {
	Amount         decimal.Decimal
	Description    string
	RawDescription string
	Date           time.Time // Zero means now
	CategoryID     *uuid.UUID
}

func (p *CreateExpenseParams) validate() error {
	if err := validateCents("amount", p.Amount); err != nil {
		return err
	}

	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return invalid("description", "description is required")
	}

	return nil
}

// ExpenseFilter narrows an expense listing. A nil Month lists every cycle.
type ExpenseFilter struct {
	Month      *cycle.Month
	CategoryID *uuid.UUID
}

// ListFilter is the storage-level expense query.
type ListFilter struct {
	UserID     string
	Period     *cycle.Period
	CategoryID *uuid.UUID
}

type UpdateSettingsParams struct {
	ResetDay int
}

func (p UpdateSettingsParams) validate() error {
	if !cycle.ValidResetDay(p.ResetDay) {
		return invalid("resetDay", "reset day must be between %d and %d", cycle.MinResetDay, cycle.MaxResetDay)
	}

	return nil
}

type CreateFixedExpenseParams struct {
	Name       string
	Amount     decimal.Decimal
	CategoryID *uuid.UUID
}

func (p *CreateFixedExpenseParams) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("name", "name is required")
	}

	return validateLimit("amount", p.Amount)
}

type MoveParams struct {
	FromCategoryID uuid.UUID
	ToCategoryID   uuid.UUID
	Amount         decimal.Decimal
}

func (p MoveParams) validate() error {
	if !p.Amount.IsPositive() {
		return invalid("amount", "amount must be greater than zero")
	}

	if err := validateCents("amount", p.Amount); err != nil {
		return err
	}

	if p.FromCategoryID == p.ToCategoryID {
		return invalid("toCategoryId", "source and target category must differ")
	}

	return nil
}

// validateLimit accepts non-negative amounts with at most two decimals.
func validateLimit(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "must not be negative")
	}

	return validateCents(field, d)
}

func validateCents(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(2)) {
		return invalid(field, "must have at most two decimal places")
	}

	return nil
}
