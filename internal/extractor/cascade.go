// Package extractor turns reflowed statement text into transactions. Bank
// specific extractors run first; generic heuristics follow in a fixed order
// until one of them yields at least one transaction.
package extractor

import (
	"sort"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
)

// Extractor pulls transactions out of a document. A document it does not
// recognize yields an empty result, never an error.
type Extractor interface {
	Name() string
	Extract(doc *reflow.Document) []models.Transaction
}

// BankFormat is an Extractor dedicated to one bank's layout.
type BankFormat interface {
	Extractor
	Detect(doc *reflow.Document) bool
}

// Cascade tries extractors in order and keeps the first non-empty result.
type Cascade struct {
	extractors []Extractor
	logger     logging.Logger
}

// NewCascade creates a Cascade over the given extractors.
func NewCascade(logger logging.Logger, extractors ...Extractor) *Cascade {
	return &Cascade{extractors: extractors, logger: logging.OrDefault(logger)}
}

// BankFormats returns the dedicated extractors in priority order.
func BankFormats() []BankFormat {
	return []BankFormat{NewSantander(), NewMyAndBank(), NewCreand()}
}

// DefaultCascade returns the bank formats followed by the generic extractors.
func DefaultCascade(logger logging.Logger) *Cascade {
	var extractors []Extractor
	for _, b := range BankFormats() {
		extractors = append(extractors, b)
	}
	extractors = append(extractors,
		NewTable(),
		NewAggressive(),
		NewAlternative(),
		NewMultiline(),
		NewFlexible(),
	)
	return NewCascade(logger, extractors...)
}

// Names lists the extractors in the order they are tried.
func (c *Cascade) Names() []string {
	names := make([]string, len(c.extractors))
	for i, e := range c.extractors {
		names[i] = e.Name()
	}
	return names
}

// Run returns the first non-empty result and the name of the extractor that
// produced it. Both are empty when nothing matched.
func (c *Cascade) Run(doc *reflow.Document) ([]models.Transaction, string) {
	for _, e := range c.extractors {
		start := time.Now()
		txs := e.Extract(doc)
		c.logger.Debug("Extractor finished",
			logging.F(logging.FieldExtractor, e.Name()),
			logging.F(logging.FieldCount, len(txs)),
			logging.F(logging.FieldDuration, time.Since(start).String()))
		if len(txs) > 0 {
			return txs, e.Name()
		}
	}
	return nil, ""
}

// DetectBank returns the name of the first bank format recognizing doc, or "".
func DetectBank(doc *reflow.Document) string {
	for _, b := range BankFormats() {
		if b.Detect(doc) {
			return b.Name()
		}
	}
	return ""
}

// FilterAndSort drops zero amounts and orders the rest by date, newest first.
// Equal dates keep their input order.
func FilterAndSort(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsZero() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
