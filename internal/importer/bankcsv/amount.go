package bankcsv

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errNoDigits = errors.New("no digits")

// parseAmount parses a localized amount. Currency symbols and spaces are
// ignored and a trailing minus ("120.00-") is accepted.
// Examples: "1.234,56" (comma) -> 1234.56, "₪ 1,234.56" (point) -> 1234.56.
func parseAmount(s string, mark decimalMark) (decimal.Decimal, error) {
	var b strings.Builder

	digits := false

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true

			b.WriteRune(r)
		case r == '-' || r == ',' || r == '.':
			b.WriteRune(r)
		}
	}

	if !digits {
		return decimal.Zero, errNoDigits
	}

	clean := b.String()
	if strings.HasSuffix(clean, "-") {
		clean = "-" + strings.TrimSuffix(clean, "-")
	}

	switch mark {
	case decimalComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case decimalPoint:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
