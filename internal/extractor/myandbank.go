package extractor

import (
	"regexp"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/textutils"

	"github.com/shopspring/decimal"
)

var (
	myAndBankMarkers = textutils.NewMarkerSet("ANDORRA BANC AGRÍCOL REIG", "ANDORRA BANC")

	isoDateAnywhere   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	myAndBankRowStart = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
	myAndBankValue    = regexp.MustCompile(`\s{2,}(\d{4}-\d{2}-\d{2})`)
	myAndBankBalance  = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*$`)
	myAndBankSpaced   = regexp.MustCompile(`\s{2,}(-?\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*$`)
	myAndBankAmount   = regexp.MustCompile(`(-?\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*$`)
	myAndBankRegistry = regexp.MustCompile(`^MYB\d+`)

	myAndBankConcepts = []keyword{
		{"Bizum", []string{"bizum"}},
		{"Tasa", []string{"taxa", "tasa"}},
		{"Interés", []string{"int.", "interés", "interes", "crèdit", "credit", "cr è dit"}},
		{"Compra", []string{"càrrec", "cargo", "targeta", "tarjeta"}},
		{"Transferencia", []string{"transferència", "transferencia"}},
		{"Recibo", []string{"recibo", "rebut"}},
	}
)

// MyAndBank reads MyAndBank (Andorra Banc Agrícol Reig) statements: one row
// per line, ISO dates, amount and balance at the end of the line.
type MyAndBank struct{}

// NewMyAndBank creates the MyAndBank extractor.
func NewMyAndBank() *MyAndBank { return &MyAndBank{} }

func (*MyAndBank) Name() string { return "myandbank" }

// Detect reports whether the text names the bank or carries its Catalan header with ISO dates.
func (*MyAndBank) Detect(doc *reflow.Document) bool {
	if strings.Contains(strings.ToLower(doc.Text), "myandbank") || myAndBankMarkers.Any(doc.Text) {
		return true
	}
	normalized := textutils.CollapseSpaces(doc.Text)
	return textutils.ContainsAny(normalized, "Data operació", "Data operaci ó") &&
		textutils.ContainsAny(normalized, "Operació", "Operaci ó") &&
		textutils.ContainsAll(normalized, "Concepte", "Import", "Saldo") &&
		isoDateAnywhere.MatchString(doc.Text)
}

func (b *MyAndBank) Extract(doc *reflow.Document) []models.Transaction {
	if !b.Detect(doc) {
		return nil
	}
	lines := doc.Lines
	if h := myAndBankHeaderIndex(lines); h >= 0 {
		lines = lines[h+1:]
	}
	rows := Scanner{Start: TableHeaderSeen, Step: myAndBankStep}.Run(lines)
	return FilterAndSort(rowTransactions(rows))
}

// myAndBankHeaderIndex finds the header, which the reflow may spread over
// three lines. It returns -1 when there is none.
func myAndBankHeaderIndex(lines []string) int {
	for i := range lines {
		var window []string
		if i > 0 {
			window = append(window, strings.TrimSpace(lines[i-1]))
		} else {
			window = append(window, "")
		}
		window = append(window, strings.TrimSpace(lines[i]))
		if i < len(lines)-1 {
			window = append(window, strings.TrimSpace(lines[i+1]))
		} else {
			window = append(window, "")
		}
		combined := textutils.CollapseSpaces(strings.ToLower(strings.Join(window, " ")))
		if textutils.ContainsAny(combined, "data operació", "data operaci ó") &&
			textutils.ContainsAny(combined, "operació", "operaci ó") &&
			textutils.ContainsAll(combined, "data valor", "concepte", "import", "saldo") {
			return i
		}
	}
	return -1
}

func isMyAndBankEnd(line string) bool {
	return (strings.Contains(line, "ANDORRA BANC AGRÍCOL REIG") && runeLen(line) > 100) ||
		strings.Contains(line, "NRT A-") ||
		strings.Contains(line, "Registre") ||
		myAndBankRegistry.MatchString(line)
}

func myAndBankStep(m Machine, raw string) Machine {
	if !m.State.InTable() {
		return m
	}
	line := strings.TrimSpace(raw)
	if isMyAndBankEnd(line) {
		m = m.Flush()
		m.State = TableEnded
		return m
	}
	row, ok := parseMyAndBankRow(line)
	if !ok {
		return m
	}
	m.Row = row
	m.State = AccumulatingRow
	return m.Flush()
}

// parseMyAndBankRow reads a line such as
// "2025-12-31   2025-12-31   99900000251231   TAXA IRPF   -0,17   5.340,39"
// from the right: balance, amount, then the two dates and the free text.
func parseMyAndBankRow(line string) (Row, bool) {
	if !myAndBankRowStart.MatchString(line) {
		return Row{}, false
	}

	rest := line
	var balanceText string
	if loc := myAndBankBalance.FindStringSubmatchIndex(rest); loc != nil {
		balanceText = rest[loc[2]:loc[3]]
		rest = strings.TrimSpace(rest[:loc[0]])
	}

	var amountText string
	if loc := myAndBankSpaced.FindStringSubmatchIndex(rest); loc != nil {
		amountText = rest[loc[2]:loc[3]]
		rest = strings.TrimSpace(rest[:loc[0]])
	} else if loc := myAndBankAmount.FindStringSubmatchIndex(rest); loc != nil {
		amountText = rest[loc[2]:loc[3]]
		rest = strings.TrimSpace(rest[:loc[0]])
	}

	opLoc := myAndBankRowStart.FindStringSubmatchIndex(rest)
	if opLoc == nil || amountText == "" {
		return Row{}, false
	}
	opDate := rest[opLoc[2]:opLoc[3]]
	dataStart := opLoc[1]

	var valueDate string
	if vLoc := myAndBankValue.FindStringSubmatchIndex(rest); vLoc != nil {
		valueDate = dateutils.ISOToDisplay(rest[vLoc[2]:vLoc[3]])
		dataStart = vLoc[1]
	}

	amount, ok := currencyutils.ParseAmount(amountText)
	if !ok {
		return Row{}, false
	}

	var code, operation string
	parts := textutils.SplitColumns(strings.TrimSpace(rest[dataStart:]))
	switch {
	case len(parts) >= 2:
		code = strings.TrimSpace(parts[0])
		operation = strings.Join(parts[1:], " ")
	case len(parts) == 1:
		operation = parts[0]
	}

	concept := lookupKeyword(strings.ToLower(operation), myAndBankConcepts, defaultConcept)
	detail := textutils.CollapseSpaces(operation)
	if detail == "" {
		detail = code
	}
	if detail == "" {
		detail = concept
	}

	row := Row{
		DateText:  dateutils.ISOToDisplay(opDate),
		ValueDate: valueDate,
		Desc:      []string{detail},
		Amount:    amount,
		HasAmount: true,
		Concept:   concept,
	}
	if balanceText != "" {
		if b, ok := currencyutils.ParseAmount(balanceText); ok {
			row.Balance = decimal.NullDecimal{Decimal: b, Valid: true}
		}
	}
	return row, true
}

// rowTransactions materializes rows that carry their own concept.
func rowTransactions(rows []Row) []models.Transaction {
	txs := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		tx := newTransaction(r.DateText, r.Concept, r.Description(), r.Amount)
		tx.ValueDate = r.ValueDate
		tx.Balance = r.Balance
		txs = append(txs, tx)
	}
	return txs
}
