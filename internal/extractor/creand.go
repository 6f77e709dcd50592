package extractor

import (
	"regexp"
	"sort"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/textutils"

	"github.com/shopspring/decimal"
)

const creandDefaultConcept = "Transaction"

var (
	creandMarkers     = textutils.NewMarkerSet("Crédit Andorrà", "Credit Andorra", "Creand")
	creandHeaderWords = []string{"Balance in EUR", "Credit", "Debit", "Transaction", "Date"}

	creandRowStart = regexp.MustCompile(`^(\d{1,3}(?:\.\d{3})*(?:,\d{2})?|\d{2}\.\d{2}\.\d{2}|-?\d+)`)
	creandDate     = regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{2})\b`)
	creandNumber   = regexp.MustCompile(`-?\d{1,3}(?:\.\d{3})*(?:,\d{2})?`)
	creandLongRef  = regexp.MustCompile(`^\d{10,}\s*-\s*`)
	creandShortRef = regexp.MustCompile(`^\d+\s*-\s*`)

	creandConcepts = []keyword{
		{"Payment", []string{"payment"}},
		{"Transfer", []string{"transfer"}},
		{"Direct Debit", []string{"direct debit"}},
		{"Withdrawal", []string{"withdrawal"}},
		{"Interest", []string{"interest"}},
		{"Previous balance", []string{"previous balance"}},
		{"Cybercard", []string{"cybercard"}},
		{"Recepció transferència", []string{"recepció", "recepcio"}},
		{"Money Transfer", []string{"money transfer"}},
		{"Comissió", []string{"comissió"}},
		{"Descobert", []string{"descobert"}},
	}
)

// Creand reads Crèdit Andorrà / Creand statements with English headers:
// Balance in EUR, Credit, Debit, Value date, Transaction, Date.
type Creand struct{}

// NewCreand creates the Creand extractor.
func NewCreand() *Creand { return &Creand{} }

func (*Creand) Name() string { return "creand" }

// Detect reports whether the text names the bank or carries its English column headers.
func (*Creand) Detect(doc *reflow.Document) bool {
	return creandMarkers.Any(doc.Text) || textutils.ContainsAll(doc.Text, creandHeaderWords...)
}

func (c *Creand) Extract(doc *reflow.Document) []models.Transaction {
	if !c.Detect(doc) {
		return nil
	}
	rows := Scanner{Start: OutsideTable, Step: creandStep, Finish: creandFlush}.Run(doc.Lines)
	return FilterAndSort(rowTransactions(rows))
}

func isCreandEnd(line string) bool {
	return strings.Contains(line, "Sum of bookings") ||
		strings.Contains(line, "www.creand.ad") ||
		(strings.Contains(line, "IBAN:") && runeLen(line) > 50)
}

// creandStep merges wrapped rows: a line starting with a number or a date
// opens a row, any other line continues it.
func creandStep(m Machine, raw string) Machine {
	line := strings.TrimSpace(raw)

	if textutils.ContainsAll(line, creandHeaderWords...) {
		m = creandFlush(m)
		m.State = TableHeaderSeen
		return m
	}
	if m.State.InTable() && isCreandEnd(line) {
		m = creandFlush(m)
		m.State = TableEnded
		return m
	}
	if !m.State.InTable() {
		return m
	}

	if creandRowStart.MatchString(line) {
		m = creandFlush(m)
		m.Row = Row{Desc: []string{line}}
		m.State = AccumulatingRow
		return m
	}
	if len(m.Row.Desc) > 0 {
		m.Row = m.Row.WithDesc(line)
	}
	return m
}

// creandFlush parses the merged row text and flushes it.
func creandFlush(m Machine) Machine {
	if len(m.Row.Desc) > 0 {
		m.Row = parseCreandRow(m.Row.Description())
	}
	return m.Flush()
}

type positioned struct {
	text  string
	index int
}

// parseCreandRow reads a merged row. Numbers before the first date are
// balance, credit and debit; the last date is the booking date.
func parseCreandRow(line string) Row {
	if strings.Contains(strings.ToLower(line), "sum of bookings") {
		return Row{}
	}
	dates := creandDate.FindAllString(line, -1)
	if len(dates) == 0 {
		return Row{}
	}

	datePositions := make([]positioned, 0, len(dates))
	for _, d := range dates {
		if i := strings.Index(line, d); i >= 0 {
			datePositions = append(datePositions, positioned{text: d, index: i})
		}
	}
	sort.SliceStable(datePositions, func(i, j int) bool { return datePositions[i].index < datePositions[j].index })
	firstDate := len(line)
	if len(datePositions) > 0 {
		firstDate = datePositions[0].index
	}

	var before []positioned
	var values []decimal.Decimal
	for _, loc := range creandNumber.FindAllStringIndex(line, -1) {
		if loc[0] >= firstDate {
			continue
		}
		v, ok := currencyutils.ParseAmount(line[loc[0]:loc[1]])
		if !ok {
			continue
		}
		before = append(before, positioned{text: line[loc[0]:loc[1]], index: loc[0]})
		values = append(values, v)
	}

	row := Row{DateText: dateutils.ExpandShortYear(dates[len(dates)-1])}
	switch {
	case len(values) == 1:
		row.Balance = decimal.NullDecimal{Decimal: values[0], Valid: true}
		row.HasAmount = true
	case len(values) == 2:
		row.Balance = decimal.NullDecimal{Decimal: values[0], Valid: true}
		row.Amount = values[1]
		row.HasAmount = true
	case len(values) >= 3:
		row.Balance = decimal.NullDecimal{Decimal: values[0], Valid: true}
		credit, debit := values[1], values[2].Abs()
		switch {
		case credit.IsPositive():
			row.Amount = credit
			row.HasAmount = true
		case !debit.IsZero():
			row.Amount = debit.Neg()
			row.HasAmount = true
		}
	}
	if strings.Contains(strings.ToLower(line), "previous balance") {
		row.Amount = decimal.Zero
		row.HasAmount = true
	}

	text := line
	if len(before) > 0 {
		last := before[len(before)-1]
		text = strings.TrimSpace(text[last.index+len(last.text):])
	}
	for _, d := range datePositions {
		text = strings.TrimSpace(strings.Replace(text, d.text, "", 1))
	}
	text = creandLongRef.ReplaceAllString(text, "")
	text = textutils.CollapseSpaces(text)

	var concept, detail string
	if text != "" {
		text = creandShortRef.ReplaceAllString(text, "")
		if parts := strings.Split(text, " - "); len(parts) > 1 {
			concept = strings.TrimSpace(parts[0])
			detail = strings.TrimSpace(strings.Join(parts[1:], " - "))
		} else {
			detail = text
			concept = lookupKeyword(strings.ToLower(text), creandConcepts, creandDefaultConcept)
		}
	}
	if concept == "" {
		concept = creandDefaultConcept
	}
	if detail == "" {
		detail = concept
	}
	row.Concept = concept
	row.Desc = []string{detail}
	return row
}
