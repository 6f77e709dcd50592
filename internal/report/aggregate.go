// Package report derives totals, per-date series and category flows from a
// list of transactions, and renders them as JSON, XML or text.
package report

import (
	"sort"

	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
)

// TotalExpensesLabel is the source node of every category flow.
const TotalExpensesLabel = "Total expenses"

// SeriesKind selects what SeriesByDate accumulates.
type SeriesKind string

const (
	SeriesExpense SeriesKind = "expense"
	SeriesBalance SeriesKind = "balance"
)

// Series is a per-date sequence, ascending by date.
type Series struct {
	Dates  []string          `json:"dates" xml:"Date"`
	Values []decimal.Decimal `json:"values" xml:"Value"`
}

// Flow is one edge of the expense Sankey diagram.
type Flow struct {
	Source string          `json:"source" xml:"source,attr"`
	Target string          `json:"target" xml:"target,attr"`
	Value  decimal.Decimal `json:"value" xml:",chardata"`
}

// TotalsByCategory sums the absolute amount of expenses per category. An
// unset category counts as Other.
func TotalsByCategory(txs []models.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		c := tx.CategoryOrDefault()
		totals[c] = totals[c].Add(tx.Amount.Abs())
	}
	return totals
}

// CategoryFlows returns one flow from TotalExpensesLabel to each category,
// largest first. Ties are ordered by category name.
func CategoryFlows(txs []models.Transaction) []Flow {
	totals := TotalsByCategory(txs)
	flows := make([]Flow, 0, len(totals))
	for c, v := range totals {
		if v.IsZero() {
			continue
		}
		flows = append(flows, Flow{Source: TotalExpensesLabel, Target: c, Value: v})
	}
	sort.Slice(flows, func(i, j int) bool {
		if cmp := flows[i].Value.Cmp(flows[j].Value); cmp != 0 {
			return cmp > 0
		}
		return flows[i].Target < flows[j].Target
	})
	return flows
}

// ascending returns a stable ascending-by-date copy of txs.
func ascending(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// SeriesByDate builds a per-date series keyed by DateText.
//
// SeriesExpense sums absolute expenses per date. SeriesBalance takes the first
// stated balance of each date when any transaction states one; otherwise it
// is the running sum of amounts as of the last transaction of each date.
func SeriesByDate(txs []models.Transaction, kind SeriesKind) Series {
	sorted := ascending(txs)
	var s Series
	index := make(map[string]int)

	switch kind {
	case SeriesExpense:
		for _, tx := range sorted {
			if !tx.IsExpense() {
				continue
			}
			if i, ok := index[tx.DateText]; ok {
				s.Values[i] = s.Values[i].Add(tx.Amount.Abs())
				continue
			}
			index[tx.DateText] = len(s.Dates)
			s.Dates = append(s.Dates, tx.DateText)
			s.Values = append(s.Values, tx.Amount.Abs())
		}

	case SeriesBalance:
		if hasAnyBalance(sorted) {
			for _, tx := range sorted {
				if !tx.HasBalance() {
					continue
				}
				if _, ok := index[tx.DateText]; ok {
					continue
				}
				index[tx.DateText] = len(s.Dates)
				s.Dates = append(s.Dates, tx.DateText)
				s.Values = append(s.Values, tx.Balance.Decimal)
			}
			break
		}
		running := decimal.Zero
		for _, tx := range sorted {
			running = running.Add(tx.Amount)
			if i, ok := index[tx.DateText]; ok {
				s.Values[i] = running
				continue
			}
			index[tx.DateText] = len(s.Dates)
			s.Dates = append(s.Dates, tx.DateText)
			s.Values = append(s.Values, running)
		}
	}
	return s
}

func hasAnyBalance(txs []models.Transaction) bool {
	for _, tx := range txs {
		if tx.HasBalance() {
			return true
		}
	}
	return false
}

// ComputeAggregates derives the totals stored with a batch. The final balance
// is the stated balance of the latest transaction, else the latest stated
// balance, else the sum of all amounts. It is null only for an empty list.
func ComputeAggregates(txs []models.Transaction) models.Aggregates {
	agg := models.Aggregates{
		TransactionCount: len(txs),
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
		switch {
		case tx.Amount.IsPositive():
			agg.TotalIncome = agg.TotalIncome.Add(tx.Amount)
		case tx.Amount.IsNegative():
			agg.TotalExpenses = agg.TotalExpenses.Add(tx.Amount.Abs())
		}
	}
	if len(txs) == 0 {
		return agg
	}

	newest := make([]models.Transaction, len(txs))
	copy(newest, txs)
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].Date.After(newest[j].Date)
	})
	for _, tx := range newest {
		if tx.HasBalance() {
			agg.FinalBalance = decimal.NewNullDecimal(tx.Balance.Decimal)
			return agg
		}
	}
	agg.FinalBalance = decimal.NewNullDecimal(sum)
	return agg
}
