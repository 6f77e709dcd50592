package extractor

import (
	"regexp"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/textutils"

	"github.com/shopspring/decimal"
)

var (
	pipeHeaderWords  = []string{"Date", "Libellé", "Détail", "Montant"}
	tableHeaderWords = []string{
		"Data operació", "Data operaci", "Fecha operación", "Date opération",
		"Date operation", "Data valor", "Date valeur", "Concepte",
		"Detall", "Détail", "Libellé", "Import", "Montant", "Concepto",
	}
	tableFooterWords = []string{"Extracció parcial", "Extraction de données", "Saldo anterior", "Solde précédent"}
	tablePageFooter  = regexp.MustCompile(`(?i)(?:Pàgina|Page)\s+\d+\s+de\s+\d+`)

	pipeAmountBound   = absBetween(0, 100000, false)
	columnAmountBound = absBetween(0, 1000000, false)
)

// Table reads tabular statements: pipe-delimited tables after a pipe header,
// and whitespace-aligned rows after a column-header line.
type Table struct{}

// NewTable creates the table extractor.
func NewTable() *Table { return &Table{} }

func (*Table) Name() string { return "table" }

func (*Table) Extract(doc *reflow.Document) []models.Transaction {
	return extractTable(doc.Text)
}

func isPipeHeader(line string) bool {
	return strings.Contains(line, "|") && textutils.ContainsAny(line, pipeHeaderWords...)
}

func isTableFooter(line string) bool {
	return textutils.ContainsAny(line, tableFooterWords...) || tablePageFooter.MatchString(line)
}

func extractTable(text string) []models.Transaction {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); runeLen(l) > 2 {
			lines = append(lines, l)
		}
	}

	var txs []models.Transaction
	inSection, started := false, false
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if isPipeHeader(line) {
			inSection, started = true, true
			j := i + 1
			for ; j < len(lines) && strings.Contains(lines[j], "|"); j++ {
				if tx, ok := parsePipeRow(lines[j]); ok {
					txs = append(txs, tx)
				}
			}
			i = j - 1
			continue
		}
		if !started && textutils.ContainsAny(line, tableHeaderWords...) {
			inSection, started = true, true
			continue
		}
		if isTableFooter(line) {
			inSection = false
			continue
		}
		if !inSection {
			continue
		}
		if tx, ok := parseColumnRow(line); ok {
			txs = append(txs, tx)
		}
	}
	return FilterAndSort(txs)
}

// parsePipeRow reads "Date op | Date valeur | Libellé | Détail | Montant | Solde".
func parsePipeRow(line string) (models.Transaction, bool) {
	if !slashDateAnywhere.MatchString(line) {
		return models.Transaction{}, false
	}
	cols := splitCells(line)
	if len(cols) < 4 {
		return models.Transaction{}, false
	}

	dateIdx := -1
	var date string
	for k := 0; k < 2 && k < len(cols); k++ {
		if d := slashDateAnywhere.FindString(cols[k]); d != "" {
			date, dateIdx = d, k
			break
		}
	}
	if dateIdx < 0 {
		return models.Transaction{}, false
	}

	// The date index does not shift the text columns: both layouts put the
	// label in the third cell and the detail in the fourth.
	concept, detail := cols[2], cols[3]

	var amount decimal.Decimal
	found := false
	for _, col := range cols[:len(cols)-1] {
		m := eurAmountPattern.FindStringSubmatch(col)
		if m == nil {
			continue
		}
		if v, ok := currencyutils.ParseAmount(m[1]); ok && pipeAmountBound(v) {
			amount, found = v, true
			break
		}
	}
	if !found {
		return models.Transaction{}, false
	}

	tx := newTransaction(date, concept, detail, amount)
	if balance, ok := pipeBalance(cols[len(cols)-1]); ok {
		tx.SetBalance(balance)
	}
	return tx, true
}

// pipeBalance takes the largest non-negative number of the last cell, falling
// back to an "amount EUR" token.
func pipeBalance(cell string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, n := range bareNumberPattern.FindAllString(cell, -1) {
		v, ok := currencyutils.ParseAmount(n)
		if !ok || v.IsNegative() {
			continue
		}
		if !found || v.GreaterThan(best) {
			best, found = v, true
		}
	}
	if found && !best.IsZero() {
		return best, true
	}
	if m := eurUnsignedPattern.FindStringSubmatch(cell); m != nil {
		if v, ok := currencyutils.ParseAmount(m[1]); ok && !v.IsNegative() {
			return v, true
		}
	}
	return best, found
}

// parseColumnRow reads a whitespace-aligned row holding a date and at least
// one "amount EUR" token.
func parseColumnRow(line string) (models.Transaction, bool) {
	dates := slashDatePattern.FindAllString(line, -1)
	amounts := eurAmountPattern.FindAllStringSubmatch(line, -1)
	if len(dates) == 0 || len(amounts) == 0 {
		return models.Transaction{}, false
	}

	amountText := amounts[0][1]
	if len(amounts) > 1 {
		for _, a := range amounts {
			digits := strings.NewReplacer(".", "", "-", "").Replace(a[1])
			if len(digits) < 8 {
				amountText = a[1]
				break
			}
		}
	}
	amount, ok := currencyutils.ParseAmount(amountText)
	if !ok || !columnAmountBound(amount) {
		return models.Transaction{}, false
	}

	rest := line
	for _, d := range dates {
		rest = strings.Replace(rest, d, "", 1)
	}
	rest = collapse(eurAmountPattern.ReplaceAllString(rest, ""))

	concept, detail, ok := matchConcept(rest, sharedConcepts)
	if ok {
		detail = strings.TrimSpace(eurUnsignedPattern.ReplaceAllString(detail, ""))
	} else {
		concept, detail = firstTextCell(rest)
	}
	detail = stripDetail(detail)
	if concept == "" {
		concept = defaultConcept
	}
	if detail == "" {
		detail = concept
	}
	return newTransaction(dates[0], concept, detail, amount), true
}

// firstTextCell splits rest into cells and picks the first one not starting
// with a digit as the concept; the other cells form the detail.
func firstTextCell(rest string) (concept, detail string) {
	var parts []string
	for _, p := range cellSplitPattern.Split(rest, -1) {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", rest
	}
	concept = parts[0]
	for _, p := range parts {
		if !leadingDigit.MatchString(strings.TrimSpace(p)) {
			concept = p
			break
		}
	}
	var others []string
	for _, p := range parts {
		if p != concept {
			others = append(others, p)
		}
	}
	return concept, strings.TrimSpace(strings.Join(others, " "))
}
