package bankcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	enc "github.com/MrJamesThe3rd/budget/internal/encoding"
)

// ErrUnrecognized is returned when no header row matches a known profile.
var ErrUnrecognized = errors.New("unrecognized statement layout")

var delimiters = []rune{';', ',', '\t'}

// Parser reads bank CSV exports and produces expense params for the
// outflows. It auto-detects the export format by matching column headers
// against known profiles, trying each delimiter in turn. Credits (salary,
// refunds, incoming transfers) are skipped.
type Parser struct {
	loc *time.Location
}

type Option func(*Parser)

// WithLocation sets the zone statement dates are read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{loc: time.UTC}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Parser) Parse(r io.Reader) ([]budget.CreateExpenseParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	for _, comma := range delimiters {
		rows, err := readRows(data, comma)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(rows)
		if profile == nil {
			continue
		}

		return p.parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
	}

	return nil, ErrUnrecognized
}

func readRows(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

// colIndex maps normalized column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := normalize(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

func normalize(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// parseRows extracts expenses from data rows using the matched profile.
// headerRowNum is the 0-based index of the header (for error messages).
func (p *Parser) parseRows(prof *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]budget.CreateExpenseParams, error) {
	dateIdx := cols[prof.DateCol]
	descIdx := cols[prof.DescCol]

	params := []budget.CreateExpenseParams{}

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		date, ok := p.parseDate(prof, cellValue(row, dateIdx))
		if !ok {
			continue
		}

		amount, ok := outflow(prof, cols, row)
		if !ok {
			continue
		}

		desc := cellValue(row, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		params = append(params, budget.CreateExpenseParams{
			Amount:         amount,
			Description:    desc,
			RawDescription: desc,
			Date:           date,
		})
	}

	return params, nil
}

// parseDate returns false for empty cells or unparseable values (footer rows, etc).
func (p *Parser) parseDate(prof *Profile, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range prof.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// outflow returns the positive amount spent in a row, or false when the row
// is a credit or carries no amount.
func outflow(p *Profile, cols colIndex, row []string) (decimal.Decimal, bool) {
	switch p.AmountMode {
	case amountSigned:
		v, ok := amountCell(p, row, cols[p.AmountCol])
		if !ok || !v.IsNegative() {
			return decimal.Zero, false
		}

		return v.Neg(), true
	case amountCharge:
		v, ok := amountCell(p, row, cols[p.AmountCol])
		if !ok || !v.IsPositive() {
			return decimal.Zero, false
		}

		return v, true
	case amountSplit:
		v, ok := amountCell(p, row, cols[p.DebitCol])
		if !ok || v.IsZero() {
			return decimal.Zero, false
		}

		return v.Abs(), true
	}

	return decimal.Zero, false
}

func amountCell(p *Profile, row []string, idx int) (decimal.Decimal, bool) {
	s := cellValue(row, idx)
	if s == "" {
		return decimal.Zero, false
	}

	v, err := parseAmount(s, p.Decimal)
	if err != nil {
		return decimal.Zero, false
	}

	return v, true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
