// Package batch merges the transactions of several statements into one list
// and flags the transactions that overlapping statements report twice.
package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
)

// DateRange represents a date range with start and end dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the date range in the format "YYYY-MM-DD_YYYY-MM-DD"
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s", dateutils.ToISODate(dr.Start), dateutils.ToISODate(dr.End))
}

// Merge combines this date range with another, returning the overall range
func (dr DateRange) Merge(other DateRange) DateRange {
	start := dr.Start
	end := dr.End

	if dr.Start.IsZero() {
		start = other.Start
	} else if !other.Start.IsZero() && other.Start.Before(start) {
		start = other.Start
	}

	if dr.End.IsZero() {
		end = other.End
	} else if !other.End.IsZero() && other.End.After(end) {
		end = other.End
	}

	return DateRange{Start: start, End: end}
}

// StatementResult is the outcome of processing one statement file.
type StatementResult struct {
	File         string
	Extractor    string
	Transactions []models.Transaction
	Err          error
}

// Duplicate is a transaction found in more than one statement.
type Duplicate struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Files       []string
}

// Merged is the combined view of several statements.
type Merged struct {
	Transactions []models.Transaction
	Duplicates   []Duplicate
	Files        []string
	Failed       []string
	DateRange    DateRange
}

// Aggregator merges statement results.
type Aggregator struct {
	logger logging.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(logger logging.Logger) *Aggregator {
	return &Aggregator{logger: logging.OrDefault(logger)}
}

// Merge combines the successful results, newest first, keeping every
// transaction. Results with an error are listed in Failed.
func (a *Aggregator) Merge(results []StatementResult) Merged {
	var m Merged
	var origins []string

	for _, r := range results {
		name := filepath.Base(r.File)
		if r.Err != nil {
			a.logger.WithError(r.Err).WithField(logging.FieldFile, r.File).Warn("Skipping statement that failed to process")
			m.Failed = append(m.Failed, name)
			continue
		}
		m.Files = append(m.Files, name)
		for _, tx := range r.Transactions {
			m.Transactions = append(m.Transactions, tx)
			origins = append(origins, name)
		}
	}

	order := make([]int, len(m.Transactions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return m.Transactions[order[i]].Date.After(m.Transactions[order[j]].Date)
	})
	sortedTx := make([]models.Transaction, len(order))
	sortedOrigins := make([]string, len(order))
	for i, idx := range order {
		sortedTx[i] = m.Transactions[idx]
		sortedOrigins[i] = origins[idx]
	}
	m.Transactions = sortedTx

	m.Duplicates = a.detectDuplicates(m.Transactions, sortedOrigins)
	m.DateRange = CalculateDateRange(m.Transactions)

	a.logger.WithFields(
		logging.F(logging.FieldCount, len(m.Transactions)),
		logging.F("statements", len(m.Files)),
		logging.F("duplicates", len(m.Duplicates)),
	).Info("Merged statements")
	return m
}

// duplicateKey identifies the same movement across statements: same date,
// same amount and same description ignoring case and spacing.
func duplicateKey(tx models.Transaction) string {
	return dateutils.ToISODate(tx.Date) + "|" + tx.Amount.String() + "|" +
		strings.ToLower(strings.Join(strings.Fields(tx.Description), " "))
}

// detectDuplicates reports keys seen in at least two different files. Repeats
// within a single statement are genuine movements and are not reported.
func (a *Aggregator) detectDuplicates(txs []models.Transaction, origins []string) []Duplicate {
	files := make(map[string][]string)
	first := make(map[string]models.Transaction)
	var keys []string

	for i, tx := range txs {
		key := duplicateKey(tx)
		if _, ok := first[key]; !ok {
			first[key] = tx
			keys = append(keys, key)
		}
		if !contains(files[key], origins[i]) {
			files[key] = append(files[key], origins[i])
		}
	}

	var dups []Duplicate
	for _, key := range keys {
		if len(files[key]) < 2 {
			continue
		}
		tx := first[key]
		dups = append(dups, Duplicate{Date: tx.Date, Amount: tx.Amount, Description: tx.Description, Files: files[key]})
		a.logger.WithFields(
			logging.F("date", dateutils.ToISODate(tx.Date)),
			logging.F("amount", tx.Amount.String()),
			logging.F(logging.FieldDescription, tx.Description),
			logging.F("files", strings.Join(files[key], ", ")),
		).Warn("Potential duplicate transaction")
	}
	return dups
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Deduplicated returns the merged transactions keeping only the first
// occurrence of every cross-statement duplicate.
func (m Merged) Deduplicated() []models.Transaction {
	dup := make(map[string]bool, len(m.Duplicates))
	for _, d := range m.Duplicates {
		dup[duplicateKey(models.Transaction{Date: d.Date, Amount: d.Amount, Description: d.Description})] = true
	}
	seen := make(map[string]bool)
	out := make([]models.Transaction, 0, len(m.Transactions))
	for _, tx := range m.Transactions {
		key := duplicateKey(tx)
		if dup[key] {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, tx)
	}
	return out
}

// CalculateDateRange calculates the overall date range from a set of transactions
func CalculateDateRange(transactions []models.Transaction) DateRange {
	if len(transactions) == 0 {
		return DateRange{}
	}

	start := transactions[0].Date
	end := transactions[0].Date
	for _, tx := range transactions {
		if tx.Date.Before(start) {
			start = tx.Date
		}
		if tx.Date.After(end) {
			end = tx.Date
		}
	}
	return DateRange{Start: start, End: end}
}

// OutputFilename names the merged output file: {prefix}_{start}_{end}.{ext}
func OutputFilename(prefix string, dateRange DateRange, ext string) string {
	if prefix == "" {
		prefix = "statements"
	}
	if r := dateRange.String(); r != "" {
		return fmt.Sprintf("%s_%s.%s", prefix, r, ext)
	}
	return fmt.Sprintf("%s.%s", prefix, ext)
}
