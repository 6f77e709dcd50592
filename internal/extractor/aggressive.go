package extractor

import (
	"sort"
	"strings"

	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/textutils"
)

var aggressiveAmountBound = absBetween(0.01, 100000, false)

// Aggressive reads any line holding a date and an "amount EUR" token. Running
// totals tend to be larger than the movement, so the smallest amount wins.
type Aggressive struct{}

// NewAggressive creates the aggressive single-line extractor.
func NewAggressive() *Aggressive { return &Aggressive{} }

func (*Aggressive) Name() string { return "aggressive" }

func (*Aggressive) Extract(doc *reflow.Document) []models.Transaction {
	var txs []models.Transaction
	for _, raw := range strings.Split(doc.Text, "\n") {
		line := strings.TrimSpace(raw)
		if runeLen(line) <= 5 {
			continue
		}
		dates := slashDatePattern.FindAllString(line, -1)
		amounts := eurCandidates(line, aggressiveAmountBound)
		if len(dates) == 0 || len(amounts) == 0 {
			continue
		}
		sort.SliceStable(amounts, func(i, j int) bool {
			return amounts[i].value.Abs().LessThan(amounts[j].value.Abs())
		})

		rest := line
		for _, d := range dates {
			rest = strings.Replace(rest, d, "", 1)
		}
		rest = collapse(eurAmountPattern.ReplaceAllString(rest, ""))

		concept, detail, ok := matchConcept(rest, sharedConcepts)
		if !ok {
			parts := textutils.SplitColumns(rest)
			concept = defaultConcept
			if len(parts) > 0 {
				concept = parts[0]
				detail = strings.TrimSpace(strings.Join(parts[1:], " "))
			}
		}
		detail = stripDetail(detail)
		if detail == "" {
			detail = concept
		}
		txs = append(txs, newTransaction(dates[0], concept, detail, amounts[0].value))
	}
	return FilterAndSort(txs)
}
