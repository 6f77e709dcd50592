package extractor

import (
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/shopspring/decimal"
)

const (
	multilineBlockLimit = 20
	multilineMinLines   = 3
	multilineHeaderScan = 5
)

var (
	multilineAmountBound = absBetween(0, 10000, false)
	multilineMinBalance  = decimal.NewFromInt(100)
)

// Multiline reads statements where each movement is a block of lines opened
// by a line holding only its date.
type Multiline struct{}

// NewMultiline creates the multiline block extractor.
func NewMultiline() *Multiline { return &Multiline{} }

func (*Multiline) Name() string { return "multiline" }

func (*Multiline) Extract(doc *reflow.Document) []models.Transaction {
	lines := doc.Lines
	var txs []models.Transaction
	i := 0
	for i < len(lines) {
		m := dateOnlyLine.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			i++
			continue
		}

		block := []string{strings.TrimSpace(lines[i])}
		j := i + 1
		for j < len(lines) && len(block) < multilineBlockLimit {
			next := strings.TrimSpace(lines[j])
			if dateOnlyLine.MatchString(next) {
				break
			}
			block = append(block, next)
			j++
		}

		var filled []string
		for _, l := range block {
			if l != "" {
				filled = append(filled, l)
			}
		}
		if len(filled) >= multilineMinLines {
			if tx, ok := parseBlock(filled, m[1]); ok {
				txs = append(txs, tx)
			}
		}
		i = j
	}
	return FilterAndSort(txs)
}

// blockColumns are the header positions of a pipe table inside a block.
type blockColumns struct {
	label, detail, amount int
}

func findBlockColumns(lines []string) (blockColumns, bool) {
	for i := 0; i < len(lines) && i < multilineHeaderScan; i++ {
		if !strings.Contains(lines[i], "|") {
			continue
		}
		cols := splitCells(lines[i])
		c := blockColumns{
			label:  indexContaining(cols, "libellé", "concepte", "concepto"),
			detail: indexContaining(cols, "détail", "detall", "detalle"),
			amount: indexContaining(cols, "montant", "import"),
		}
		if c.label != -1 || c.detail != -1 {
			return c, true
		}
	}
	return blockColumns{}, false
}

func indexContaining(cols []string, needles ...string) int {
	for i, c := range cols {
		lower := strings.ToLower(c)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return i
			}
		}
	}
	return -1
}

func cellAt(cols []string, i int) string {
	if i < 0 || i >= len(cols) {
		return ""
	}
	return cols[i]
}

// parseBlockTable reads the first dated pipe row of a block using the header positions.
func parseBlockTable(lines []string, date string, c blockColumns) (models.Transaction, bool) {
	for _, line := range lines[1:] {
		if !strings.Contains(line, "|") {
			continue
		}
		cols := splitCells(line)
		if len(cols) <= 3 || !slashDateAnywhere.MatchString(cols[0]) {
			continue
		}
		label, detail := cellAt(cols, c.label), cellAt(cols, c.detail)

		var amount decimal.Decimal
		if m := eurAmountPattern.FindStringSubmatch(cellAt(cols, c.amount)); m != nil {
			amount, _ = currencyutils.ParseAmount(m[1])
		}
		if amount.IsZero() {
			for _, col := range cols {
				m := eurAmountPattern.FindStringSubmatch(col)
				if m == nil {
					continue
				}
				if v, ok := currencyutils.ParseAmount(m[1]); ok && multilineAmountBound(v) {
					amount = v
					break
				}
			}
		}
		if amount.IsZero() {
			continue
		}

		concept := label
		if concept == "" {
			concept = defaultConcept
		}
		if detail == "" {
			detail = label
		}
		return newTransaction(date, concept, detail, amount), true
	}
	return models.Transaction{}, false
}

// parseBlock turns one date block into a transaction.
func parseBlock(lines []string, date string) (models.Transaction, bool) {
	if cols, ok := findBlockColumns(lines); ok {
		if tx, ok := parseBlockTable(lines, date, cols); ok {
			return tx, true
		}
	}

	var concept, detail string
	var amount decimal.Decimal
	vocabHit, haveAmount := false, false

	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if dateOnlyLine.MatchString(line) {
			continue
		}
		hasAmount := eurAmountPattern.MatchString(line)

		matched := false
		if !vocabHit {
			if c, _, ok := matchConcept(line, sharedConcepts); ok {
				concept, vocabHit, matched = c, true, true
				if i+1 < len(lines) {
					next := lines[i+1]
					if !dateOnlyLine.MatchString(next) && !eurAmountPattern.MatchString(next) {
						detail = next
					}
				}
			}
		}
		if !matched && !hasAmount && concept == "" && !leadingDigit.MatchString(line) {
			concept = line
		}

		if hasAmount && !haveAmount {
			m := eurAmountPattern.FindStringSubmatch(line)
			if v, ok := currencyutils.ParseAmount(m[1]); ok && multilineAmountBound(v) {
				amount, haveAmount = v, true
			}
		}
	}
	if !haveAmount {
		return models.Transaction{}, false
	}

	if concept == "" {
		concept = defaultConcept
	}
	if detail == "" {
		detail = concept
	}
	tx := newTransaction(date, concept, detail, amount)
	if balance, ok := blockBalance(lines); ok {
		tx.SetBalance(balance)
	}
	return tx, true
}

// blockBalance scans the block from the end for an unsigned "amount EUR" of at least 100.
func blockBalance(lines []string) (decimal.Decimal, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		m := eurUnsignedPattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if v, ok := currencyutils.ParseAmount(m[1]); ok && v.GreaterThanOrEqual(multilineMinBalance) {
			return v, true
		}
	}
	return decimal.Zero, false
}
