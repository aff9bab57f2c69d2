package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

// Source is the part of the budget service an export reads from.
type Source interface {
	MonthlyStats(ctx context.Context, userID string, month *cycle.Month) (*budget.Stats, error)
	ListExpenses(ctx context.Context, userID string, filter budget.ExpenseFilter) ([]*budget.Expense, error)
}

// Cycle is everything exported for one budget cycle.
type Cycle struct {
	Stats    *budget.Stats
	Expenses []*budget.Expense
}

// Filename is the suggested name of the zip archive.
func (c *Cycle) Filename() string {
	return fmt.Sprintf("budget_%s.zip", c.Stats.Period.Month())
}

// Service handles the export of a cycle's expenses and summary.
type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Export loads the cycle of month, or the current cycle when month is nil.
func (s *Service) Export(ctx context.Context, userID string, month *cycle.Month) (*Cycle, error) {
	stats, err := s.source.MonthlyStats(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}

	label := stats.Period.Month()

	expenses, err := s.source.ListExpenses(ctx, userID, budget.ExpenseFilter{Month: &label})
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	return &Cycle{Stats: stats, Expenses: expenses}, nil
}

// WriteZip writes expenses.csv and summary.txt into a zip archive.
func (s *Service) WriteZip(w io.Writer, c *Cycle) error {
	zw := zip.NewWriter(w)

	f, err := zw.Create("expenses.csv")
	if err != nil {
		return fmt.Errorf("creating expenses.csv: %w", err)
	}

	if err := WriteExpensesCSV(f, c.Expenses); err != nil {
		return err
	}

	f, err = zw.Create("summary.txt")
	if err != nil {
		return fmt.Errorf("creating summary.txt: %w", err)
	}

	if _, err := io.WriteString(f, GenerateSummary(c.Stats)); err != nil {
		return fmt.Errorf("writing summary.txt: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zip: %w", err)
	}

	return nil
}

func WriteExpensesCSV(w io.Writer, expenses []*budget.Expense) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "description", "category", "amount", "recurring", "raw_description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range expenses {
		category := ""
		if e.CategoryName != nil {
			category = *e.CategoryName
		}

		record := []string{
			e.Date.Format(time.DateOnly),
			e.Description,
			category,
			e.Amount.StringFixed(2),
			fmt.Sprint(e.Recurring),
			e.RawDescription,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing expense %s: %w", e.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// GenerateSummary renders the cycle totals as plain text.
func GenerateSummary(stats *budget.Stats) string {
	var sb strings.Builder

	last := stats.Period.End.AddDate(0, 0, -1)
	fmt.Fprintf(&sb, "Cycle %s (%s to %s)\n\n", stats.Period.Month(),
		stats.Period.Start.Format(time.DateOnly), last.Format(time.DateOnly))

	for _, c := range stats.Categories {
		flag := ""
		if c.OverBudget() {
			flag = " OVER"
		}

		fmt.Fprintf(&sb, "* %s | %s / %s | left %s%s\n", c.Name,
			c.Spent.StringFixed(2), c.BudgetLimit.StringFixed(2), c.Remaining.StringFixed(2), flag)
	}

	if !stats.Uncategorized.IsZero() {
		fmt.Fprintf(&sb, "* Uncategorized | %s\n", stats.Uncategorized.StringFixed(2))
	}

	fmt.Fprintf(&sb, "\nBudget %s | Spent %s | Left %s\n",
		stats.TotalBudget.StringFixed(2), stats.TotalSpent.StringFixed(2), stats.Remaining.StringFixed(2))

	return sb.String()
}
