package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads OFX/QFX bank and credit card statements and produces expense
// params for the debits.
type Parser struct {
	loc *time.Location
}

type Option func(*Parser)

// WithLocation sets the zone posted dates are pinned to. Defaults to UTC.
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
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	params := []budget.CreateExpenseParams{}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			params = p.appendDebits(params, stmt.BankTranList.Transactions)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			params = p.appendDebits(params, stmt.BankTranList.Transactions)
		}
	}

	return params, nil
}

// preprocess fixes formatting issues common in bank-generated SGML files.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)

	return openTagPattern.ReplaceAllString(content, "$1>")
}

func (p *Parser) appendDebits(params []budget.CreateExpenseParams, txs []ofxgo.Transaction) []budget.CreateExpenseParams {
	for _, tx := range txs {
		amount := decimal.NewFromBigRat(&tx.TrnAmt.Rat, 2)
		if !amount.IsNegative() {
			continue
		}

		raw := rawDescription(tx)
		if raw == "" {
			continue
		}

		y, m, d := tx.DtPosted.Date()

		params = append(params, budget.CreateExpenseParams{
			Amount:         amount.Neg(),
			Description:    displayName(tx, raw),
			RawDescription: raw,
			Date:           time.Date(y, m, d, 0, 0, 0, 0, p.loc),
		})
	}

	return params
}

// rawDescription is the statement text used for duplicate detection and
// matching: NAME, falling back to PAYEE and then MEMO.
func rawDescription(tx ofxgo.Transaction) string {
	if name := strings.TrimSpace(string(tx.Name)); name != "" {
		return name
	}

	if tx.Payee != nil {
		if name := strings.TrimSpace(string(tx.Payee.Name)); name != "" {
			return name
		}
	}

	return strings.TrimSpace(string(tx.Memo))
}

// displayName prefers the payee, which banks fill with the clean merchant
// name, and uses the memo when NAME is only the transaction kind.
func displayName(tx ofxgo.Transaction, raw string) string {
	if tx.Payee != nil && strings.TrimSpace(string(tx.Payee.Name)) != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && isGeneric(raw) {
		return memo
	}

	return raw
}

func isGeneric(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}

	return false
}
