package importer

import (
	"io"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// Importer parses a bank statement into expense params for its outflows.
type Importer interface {
	Parse(r io.Reader) ([]budget.CreateExpenseParams, error)
}
