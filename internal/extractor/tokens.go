package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
)

const defaultConcept = "Transacción"

var (
	slashDatePattern   = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	slashDateAnywhere  = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	dateOnlyLine       = regexp.MustCompile(`^\s*(\d{2}/\d{2}/\d{4})\s*$`)
	eurAmountPattern   = regexp.MustCompile(`(?i)(-?\d{1,3}(?:\.\d{3})*(?:[.,]\d{2})?)\s*EUR`)
	eurUnsignedPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*(?:[.,]\d{2})?)\s*EUR`)
	bareNumberPattern  = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*(?:[.,]\d{2})?`)
	cellSplitPattern   = regexp.MustCompile(`\s{2,}|\t|[|]`)
	leadingDigit       = regexp.MustCompile(`^\d`)
)

// Concept vocabularies, tried in order. The first hit names the concept.
var (
	catalanSpanishConcepts = []string{
		`Targeta\s+dèbit`, `Targeta\s+solidària`, `Rebut\s+domiciliat`,
		`Abon\.?\s+domiciliat`, `Abon\.?\s+nòmina`, `Carrec\s+Bizum`,
		`Abonam\.?\s+Bizum`, `Reintegr\.?\s+caixer`, `Com\.\s+custòdia`,
		`Transf\.?\s+nòmina`, `Liquidació`, `Tarjeta`, `Tarjeta\s+débito`,
		`Reintegro`, `Abono`,
	}
	frenchConcepts = []string{
		`Carte\s+Electron`, `Carte\s+électron`, `Carte\s+de\s+débit`,
		`Versement`, `Versement\s+domicilié`, `Versement\s+Bizum`,
		`Prelevements`, `Prelevements\s+Bizum`, `Prélèvements`,
		`Virement`, `Virem\.?\s+paie`, `Virem\.?\s+paie\s+autres`,
		`Ret\.\s+carte`, `Retrait`,
	}
	flexibleExtraConcepts = []string{`Transferencia`, `Pago`, `Recibo`, `Domiciliaci`}

	sharedConcepts   = compileFold(catalanSpanishConcepts, frenchConcepts)
	flexibleConcepts = compileFold(catalanSpanishConcepts, flexibleExtraConcepts, frenchConcepts)
)

func compileFold(groups ...[]string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, g := range groups {
		for _, expr := range g {
			out = append(out, regexp.MustCompile(`(?i)`+expr))
		}
	}
	return out
}

// matchConcept returns the first vocabulary hit in text and the text after it.
func matchConcept(text string, patterns []*regexp.Regexp) (concept, after string, ok bool) {
	for _, p := range patterns {
		if loc := p.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[loc[0]:loc[1]]), strings.TrimSpace(text[loc[1]:]), true
		}
	}
	return "", "", false
}

// keyword is one entry of a substring vocabulary.
type keyword struct {
	label   string
	needles []string
}

// lookupKeyword returns the label of the first keyword whose needle occurs in lower.
func lookupKeyword(lower string, vocabulary []keyword, fallback string) string {
	for _, k := range vocabulary {
		for _, n := range k.needles {
			if strings.Contains(lower, n) {
				return k.label
			}
		}
	}
	return fallback
}

// amountCandidate is a parsed amount token.
type amountCandidate struct {
	value decimal.Decimal
}

// eurCandidates returns the parsed "amount EUR" tokens of line whose
// magnitude satisfies keep.
func eurCandidates(line string, keep func(decimal.Decimal) bool) []amountCandidate {
	var out []amountCandidate
	for _, m := range eurAmountPattern.FindAllStringSubmatch(line, -1) {
		v, ok := currencyutils.ParseAmount(m[1])
		if ok && keep(v) {
			out = append(out, amountCandidate{value: v})
		}
	}
	return out
}

// stripDetail removes amount tokens, slash dates and extra whitespace from a detail.
func stripDetail(s string) string {
	s = strings.TrimSpace(eurUnsignedPattern.ReplaceAllString(s, ""))
	s = strings.TrimSpace(slashDateAnywhere.ReplaceAllString(s, ""))
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// splitCells splits a pipe-delimited line, trimming cells and dropping empty ones.
func splitCells(line string) []string {
	var cols []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// newTransaction builds a transaction from a dd/mm/yyyy date.
func newTransaction(dateText, concept, detail string, amount decimal.Decimal) models.Transaction {
	return models.NewTransaction(dateutils.ParseDate(dateText), dateText, concept, detail, amount)
}

func absBetween(lo, hi float64, inclusiveLo bool) func(decimal.Decimal) bool {
	low := decimal.NewFromFloat(lo)
	high := decimal.NewFromFloat(hi)
	return func(v decimal.Decimal) bool {
		a := v.Abs()
		if inclusiveLo {
			return a.GreaterThanOrEqual(low) && a.LessThan(high)
		}
		return a.GreaterThan(low) && a.LessThan(high)
	}
}
