package extractor

import (
	"regexp"
	"sort"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/shopspring/decimal"
)

const flexibleMinLine = 10

var (
	flexibleAmountPatterns = []*regexp.Regexp{
		eurAmountPattern,
		regexp.MustCompile(`(?i)EUR\s*(-?\d{1,3}(?:\.\d{3})*(?:[.,]\d{2})?)`),
		regexp.MustCompile(`(?i)(-?\d+[.,]\d{2})\s*EUR`),
	}
	flexibleAmountBound = absBetween(0.01, 100000, true)
	duplicateTolerance  = decimal.NewFromFloat(0.01)
)

// Flexible is the last resort: every date on a line becomes a transaction
// carrying the smallest amount found by any of the currency patterns.
type Flexible struct{}

// NewFlexible creates the flexible extractor.
func NewFlexible() *Flexible { return &Flexible{} }

func (*Flexible) Name() string { return "flexible" }

func (*Flexible) Extract(doc *reflow.Document) []models.Transaction {
	var txs []models.Transaction
	for _, line := range doc.Lines {
		if runeLen(line) < flexibleMinLine {
			continue
		}
		dates := slashDatePattern.FindAllString(line, -1)
		if len(dates) == 0 {
			continue
		}
		amounts := flexibleCandidates(line)
		if len(amounts) == 0 {
			continue
		}
		sort.SliceStable(amounts, func(i, j int) bool {
			return amounts[i].Abs().LessThan(amounts[j].Abs())
		})
		amount := amounts[0]

		for _, date := range dates {
			if isDuplicate(txs, date, amount) {
				continue
			}
			concept, detail := flexibleText(line, date)
			txs = append(txs, newTransaction(date, concept, detail, amount))
		}
	}
	return FilterAndSort(txs)
}

func flexibleCandidates(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, p := range flexibleAmountPatterns {
		for _, m := range p.FindAllStringSubmatch(line, -1) {
			if v, ok := currencyutils.ParseAmount(m[1]); ok && flexibleAmountBound(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func flexibleText(line, date string) (concept, detail string) {
	rest := strings.ReplaceAll(line, date, "")
	for _, p := range flexibleAmountPatterns {
		rest = p.ReplaceAllString(rest, "")
	}
	rest = collapse(rest)

	concept, detail, ok := matchConcept(rest, flexibleConcepts)
	if !ok {
		concept, detail = "", rest
		var parts []string
		for _, p := range cellSplitPattern.Split(rest, -1) {
			if strings.TrimSpace(p) != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			concept = strings.TrimSpace(parts[0])
			detail = strings.TrimSpace(strings.Join(parts[1:], " "))
		}
	}
	detail = stripDetail(detail)
	if concept == "" {
		concept = defaultConcept
	}
	if detail == "" {
		detail = concept
	}
	return concept, detail
}

// isDuplicate reports whether txs already holds date with an amount within 0.01.
func isDuplicate(txs []models.Transaction, date string, amount decimal.Decimal) bool {
	for _, t := range txs {
		if t.DateText == date && t.Amount.Sub(amount).Abs().LessThan(duplicateTolerance) {
			return true
		}
	}
	return false
}
