package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const dbTimeout = 5 * time.Second

// Currency prefixes every rendered amount.
var Currency = "₪"

func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + Currency + d.Neg().StringFixed(2)
	}

	return Currency + d.StringFixed(2)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
