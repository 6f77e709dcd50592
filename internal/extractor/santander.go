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
	santanderMarkers = textutils.NewMarkerSet("Santander", "Moviments del teu compte", "Moviments del cuenta")
	santanderFooters = textutils.NewMarkerSet("Document a data", "Per a cerques genèriques", "P à gina", "Página")

	santanderDate      = regexp.MustCompile(`(?i)(\d{1,2}\s+(?:de\s+|d['’]\s*)\p{L}+\.?\s+\d{4})`)
	santanderValueDate = regexp.MustCompile(`(?i)D\.\s*valor:\s*(\d{1,2}\s+(?:de\s+|d['’]\s*)\p{L}+\.?\s+\d{4})`)
	santanderAmount    = regexp.MustCompile(`(-?\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*€`)
	santanderBalance   = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*(?:,\d{2})?`)

	santanderConcepts = []keyword{
		{"Compra", []string{"compra"}},
		{"Bizum", []string{"bizum"}},
		{"Transferencia", []string{"transferencia"}},
		{"Recibo", []string{"recibo"}},
		{"Reintegro", []string{"reintegro"}},
	}
)

// Santander reads Banco Santander statements in Catalan or Spanish, with
// month-name dates and amounts suffixed by "€".
type Santander struct{}

// NewSantander creates the Santander extractor.
func NewSantander() *Santander { return &Santander{} }

func (*Santander) Name() string { return "santander" }

// Detect reports whether the text carries a Santander marker or its full header vocabulary.
func (*Santander) Detect(doc *reflow.Document) bool {
	return santanderMarkers.Any(doc.Text) ||
		textutils.ContainsAll(doc.Text, "Data operació", "Operació", "Import", "Saldo")
}

func (s *Santander) Extract(doc *reflow.Document) []models.Transaction {
	if !s.Detect(doc) {
		return nil
	}
	return FilterAndSort(santanderTransactions(santanderScanner(OutsideTable).Run(doc.Lines)))
}

func santanderScanner(start State) Scanner {
	return Scanner{Start: start, Step: santanderStep}
}

func isSantanderHeader(line string) bool {
	return textutils.ContainsAny(line, "Data operació", "Data operaci") &&
		textutils.ContainsAny(line, "Import", "Saldo")
}

func santanderStep(m Machine, raw string) Machine {
	line := strings.TrimSpace(raw)

	if isSantanderHeader(line) {
		m = m.Flush()
		m.State = TableHeaderSeen
		return m
	}
	if m.State.InTable() && santanderFooters.Any(line) {
		m = m.Flush()
		m.State = TableEnded
		return m
	}
	if !m.State.InTable() {
		return m
	}

	// "D. valor:" carries a date too, so it is checked before row dates.
	if vd := santanderValueDate.FindStringSubmatch(line); vd != nil {
		if m.Row.Started() {
			m.Row.ValueDate, _ = dateutils.ParseMonthNameDate(vd[1])
		}
		return m
	}
	if date := santanderDate.FindString(line); date != "" {
		m = m.Flush()
		text, _ := dateutils.ParseMonthNameDate(date)
		m.Row = Row{DateText: text}
		m.State = AccumulatingRow
		return m
	}
	if !m.Row.Started() {
		return m
	}

	tokens := santanderAmount.FindAllStringSubmatch(line, -1)
	if len(tokens) == 0 {
		if runeLen(line) > 3 && !strings.Contains(line, "D. valor:") && !santanderDate.MatchString(line) {
			m.Row = m.Row.WithDesc(line)
		}
		return m
	}

	if amount, ok := currencyutils.ParseAmount(tokens[0][1]); ok && !amount.IsZero() {
		m.Row.Amount = amount
		m.Row.HasAmount = true
	}
	if len(tokens) >= 2 {
		if b, ok := currencyutils.ParseAmount(santanderBalance.FindString(tokens[1][0])); ok {
			m.Row.Balance = decimal.NullDecimal{Decimal: b, Valid: true}
		}
	}
	if rest := strings.TrimSpace(santanderAmount.ReplaceAllString(line, "")); runeLen(rest) > 3 {
		m.Row = m.Row.WithDesc(rest)
	}
	return m
}

// santanderTransactions materializes rows; rows without operation text are dropped.
func santanderTransactions(rows []Row) []models.Transaction {
	var txs []models.Transaction
	for _, r := range rows {
		desc := r.Description()
		if desc == "" {
			continue
		}
		concept := lookupKeyword(strings.ToLower(desc), santanderConcepts, defaultConcept)
		tx := newTransaction(r.DateText, concept, desc, r.Amount)
		tx.ValueDate = r.ValueDate
		tx.Balance = r.Balance
		txs = append(txs, tx)
	}
	return txs
}
