package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string          `json:"category" xml:"name,attr"`
	Total    decimal.Decimal `json:"total" xml:",chardata"`
}

// Report gathers every derived view of a transaction list.
type Report struct {
	XMLName    xml.Name          `json:"-" xml:"Report"`
	Source     string            `json:"source,omitempty" xml:"source,attr,omitempty"`
	Aggregates models.Aggregates `json:"aggregates" xml:"Aggregates"`
	Categories []CategoryTotal   `json:"categories" xml:"Categories>Category"`
	Flows      []Flow            `json:"flows" xml:"Flows>Flow"`
	Expenses   Series            `json:"expenses_by_date" xml:"ExpensesByDate"`
	Balance    Series            `json:"balance_by_date" xml:"BalanceByDate"`
}

// Build computes a Report from txs.
func Build(source string, txs []models.Transaction) *Report {
	totals := TotalsByCategory(txs)
	categories := make([]CategoryTotal, 0, len(totals))
	for c, v := range totals {
		categories = append(categories, CategoryTotal{Category: c, Total: v})
	}
	sort.Slice(categories, func(i, j int) bool {
		if cmp := categories[i].Total.Cmp(categories[j].Total); cmp != 0 {
			return cmp > 0
		}
		return categories[i].Category < categories[j].Category
	})

	return &Report{
		Source:     source,
		Aggregates: ComputeAggregates(txs),
		Categories: categories,
		Flows:      CategoryFlows(txs),
		Expenses:   SeriesByDate(txs, SeriesExpense),
		Balance:    SeriesByDate(txs, SeriesBalance),
	}
}

// ReportGenerator renders reports in various formats.
type ReportGenerator struct {
	logger   logging.Logger
	currency string
}

// NewReportGenerator creates a ReportGenerator. Text reports display amounts
// in currency (EUR when empty).
func NewReportGenerator(logger logging.Logger, currency string) *ReportGenerator {
	if currency == "" {
		currency = currencyutils.DefaultCurrency
	}
	return &ReportGenerator{logger: logging.OrDefault(logger), currency: currency}
}

// GenerateReport renders report as json, xml or text.
func (g *ReportGenerator) GenerateReport(report *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return g.generateJSONReport(report)
	case "xml":
		return g.generateXMLReport(report)
	case "text", "txt":
		return g.generateTextReport(report), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *ReportGenerator) generateJSONReport(report *Report) ([]byte, error) {
	jsonReport, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return jsonReport, nil
}

func (g *ReportGenerator) generateXMLReport(report *Report) ([]byte, error) {
	xmlReport, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal XML report")
		return nil, fmt.Errorf("failed to marshal XML report: %w", err)
	}
	return []byte(xml.Header + string(xmlReport)), nil
}

func (g *ReportGenerator) generateTextReport(report *Report) []byte {
	var b strings.Builder
	if report.Source != "" {
		fmt.Fprintf(&b, "Statement: %s\n", report.Source)
	}
	agg := report.Aggregates
	fmt.Fprintf(&b, "Transactions:   %d\n", agg.TransactionCount)
	fmt.Fprintf(&b, "Total income:   %s\n", currencyutils.FormatAmount(agg.TotalIncome, g.currency))
	fmt.Fprintf(&b, "Total expenses: %s\n", currencyutils.FormatAmount(agg.TotalExpenses, g.currency))
	if agg.FinalBalance.Valid {
		fmt.Fprintf(&b, "Final balance:  %s\n", currencyutils.FormatAmount(agg.FinalBalance.Decimal, g.currency))
	} else {
		b.WriteString("Final balance:  N/A\n")
	}

	if len(report.Categories) > 0 {
		b.WriteString("\nExpenses by category:\n")
		for _, c := range report.Categories {
			fmt.Fprintf(&b, "  %-12s %s\n", c.Category, currencyutils.FormatAmount(c.Total, g.currency))
		}
	}
	return []byte(b.String())
}
