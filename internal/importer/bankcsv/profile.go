package bankcsv

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSigned means one signed column where outflows are negative
	// (e.g. "Montante" with value "-10,00").
	amountSigned amountMode = iota
	// amountSplit means separate debit and credit columns (e.g. "חובה"/"זכות").
	amountSplit
	// amountCharge means one column of card charges where outflows are
	// positive and refunds negative.
	amountCharge
)

type decimalMark int

const (
	decimalComma decimalMark = iota // 1.234,56
	decimalPoint                    // 1,234.56
)

// Profile describes the column layout of a bank CSV export.
// Adding a new format is just adding a new Profile to the profiles slice.
type Profile struct {
	Name        string
	DateCol     string
	DescCol     string
	AmountMode  amountMode
	AmountCol   string // amountSigned and amountCharge
	DebitCol    string // amountSplit
	CreditCol   string // amountSplit
	DateLayouts []string
	Decimal     decimalMark
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSigned, amountCharge:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

var (
	dayFirstDash  = []string{"02-01-2006"}
	dayFirstSlash = []string{"02/01/2006", "02/01/06", "2/1/2006"}
)

// profiles is the ordered list of formats to try during auto-detection.
// More specific profiles come first to avoid false matches.
var profiles = []Profile{
	{
		Name:        "cgd-cartao",
		DateCol:     "data",
		DescCol:     "descrição",
		AmountMode:  amountSplit,
		DebitCol:    "débito",
		CreditCol:   "crédito",
		DateLayouts: dayFirstDash,
		Decimal:     decimalComma,
	},
	{
		Name:        "cgd-extrato",
		DateCol:     "data mov.",
		DescCol:     "descrição",
		AmountMode:  amountSigned,
		AmountCol:   "movimento",
		DateLayouts: dayFirstDash,
		Decimal:     decimalComma,
	},
	{
		Name:        "cgd-conta",
		DateCol:     "data mov.",
		DescCol:     "descrição",
		AmountMode:  amountSigned,
		AmountCol:   "montante",
		DateLayouts: dayFirstDash,
		Decimal:     decimalComma,
	},
	{
		Name:        "il-card",
		DateCol:     "תאריך רכישה",
		DescCol:     "שם בית עסק",
		AmountMode:  amountCharge,
		AmountCol:   "סכום חיוב",
		DateLayouts: dayFirstSlash,
		Decimal:     decimalPoint,
	},
	{
		Name:        "il-bank",
		DateCol:     "תאריך",
		DescCol:     "תיאור הפעולה",
		AmountMode:  amountSplit,
		DebitCol:    "חובה",
		CreditCol:   "זכות",
		DateLayouts: dayFirstSlash,
		Decimal:     decimalPoint,
	},
	{
		Name:        "generic",
		DateCol:     "date",
		DescCol:     "description",
		AmountMode:  amountSigned,
		AmountCol:   "amount",
		DateLayouts: []string{"2006-01-02", "02/01/2006"},
		Decimal:     decimalPoint,
	},
}
