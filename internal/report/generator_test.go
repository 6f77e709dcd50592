package report

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(day int, description, amount, category string) models.Transaction {
	d := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
	tx := models.NewTransaction(d, d.Format("02/01/2006"), "Compra", description, decimal.RequireFromString(amount))
	tx.Category = category
	return tx
}

func withBalance(tx models.Transaction, balance string) models.Transaction {
	tx.SetBalance(decimal.RequireFromString(balance))
	return tx
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimals(t *testing.T, expected []string, actual []decimal.Decimal) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.True(t, dec(expected[i]).Equal(actual[i]), "index %d: want %s, got %s", i, expected[i], actual[i])
	}
}

func statement() []models.Transaction {
	return []models.Transaction{
		newTx(20, "EMPRESA SL", "1500.00", models.CategorySalary),
		newTx(15, "MERCADONA", "-45.20", models.CategoryGroceries),
		newTx(15, "FARMACIA", "-12.00", models.CategoryHealth),
		newTx(10, "LIDL", "-30.00", models.CategoryGroceries),
		newTx(10, "XYZ", "-5.00", ""),
	}
}

func TestTotalsByCategory(t *testing.T) {
	totals := TotalsByCategory(statement())

	assert.Len(t, totals, 3)
	assert.True(t, dec("75.20").Equal(totals[models.CategoryGroceries]))
	assert.True(t, dec("12").Equal(totals[models.CategoryHealth]))
	assert.True(t, dec("5").Equal(totals[models.CategoryOther]))
	_, hasSalary := totals[models.CategorySalary]
	assert.False(t, hasSalary, "income is not an expense")
}

func TestCategoryFlows(t *testing.T) {
	flows := CategoryFlows(statement())

	require.Len(t, flows, 3)
	assert.Equal(t, []string{models.CategoryGroceries, models.CategoryHealth, models.CategoryOther},
		[]string{flows[0].Target, flows[1].Target, flows[2].Target})
	for _, f := range flows {
		assert.Equal(t, TotalExpensesLabel, f.Source)
	}
	assert.Empty(t, CategoryFlows(nil))
}

func TestSeriesByDate_Expense(t *testing.T) {
	s := SeriesByDate(statement(), SeriesExpense)

	assert.Equal(t, []string{"10/03/2024", "15/03/2024"}, s.Dates)
	assertDecimals(t, []string{"35", "57.20"}, s.Values)
}

func TestSeriesByDate_BalanceRunningSum(t *testing.T) {
	s := SeriesByDate(statement(), SeriesBalance)

	assert.Equal(t, []string{"10/03/2024", "15/03/2024", "20/03/2024"}, s.Dates)
	// 10th: -35, 15th: -92.20, 20th: +1407.80
	assertDecimals(t, []string{"-35", "-92.20", "1407.80"}, s.Values)
}

func TestSeriesByDate_BalanceStated(t *testing.T) {
	txs := []models.Transaction{
		withBalance(newTx(20, "EMPRESA SL", "1500.00", ""), "2000.00"),
		withBalance(newTx(15, "MERCADONA", "-45.20", ""), "500.00"),
		withBalance(newTx(15, "FARMACIA", "-12.00", ""), "488.00"),
		newTx(10, "LIDL", "-30.00", ""),
	}
	s := SeriesByDate(txs, SeriesBalance)

	assert.Equal(t, []string{"15/03/2024", "20/03/2024"}, s.Dates, "dates without a stated balance are skipped")
	assertDecimals(t, []string{"500", "2000"}, s.Values)
}

func TestComputeAggregates(t *testing.T) {
	t.Run("running sum without balances", func(t *testing.T) {
		agg := ComputeAggregates(statement())
		assert.Equal(t, 5, agg.TransactionCount)
		assert.True(t, dec("1500").Equal(agg.TotalIncome))
		assert.True(t, dec("92.20").Equal(agg.TotalExpenses))
		require.True(t, agg.FinalBalance.Valid)
		assert.True(t, dec("1407.80").Equal(agg.FinalBalance.Decimal))
	})

	t.Run("latest transaction balance", func(t *testing.T) {
		txs := statement()
		txs[0] = withBalance(txs[0], "2100.50")
		txs[1] = withBalance(txs[1], "600.00")
		agg := ComputeAggregates(txs)
		assert.True(t, dec("2100.50").Equal(agg.FinalBalance.Decimal))
	})

	t.Run("latest stated balance when newest has none", func(t *testing.T) {
		txs := statement()
		txs[3] = withBalance(txs[3], "100.00")
		txs[1] = withBalance(txs[1], "600.00")
		agg := ComputeAggregates(txs)
		assert.True(t, dec("600").Equal(agg.FinalBalance.Decimal))
	})

	t.Run("empty", func(t *testing.T) {
		agg := ComputeAggregates(nil)
		assert.Zero(t, agg.TransactionCount)
		assert.False(t, agg.FinalBalance.Valid)
		assert.True(t, agg.TotalIncome.IsZero())
	})
}

func TestBuild(t *testing.T) {
	r := Build("marzo.pdf", statement())

	assert.Equal(t, "marzo.pdf", r.Source)
	require.Len(t, r.Categories, 3)
	assert.Equal(t, models.CategoryGroceries, r.Categories[0].Category)
	assert.Len(t, r.Flows, 3)
	assert.Len(t, r.Expenses.Dates, 2)
	assert.Len(t, r.Balance.Dates, 3)
}

func TestReportGenerator_GenerateReport_JSON(t *testing.T) {
	generator := NewReportGenerator(logging.NewMockLogger(), "")

	out, err := generator.GenerateReport(Build("marzo.pdf", statement()), "json")
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "marzo.pdf", decoded.Source)
	assert.Equal(t, 5, decoded.Aggregates.TransactionCount)
	assert.True(t, dec("92.2").Equal(decoded.Aggregates.TotalExpenses))
	require.Len(t, decoded.Flows, 3)
	assert.Equal(t, models.CategoryGroceries, decoded.Flows[0].Target)
}

func TestReportGenerator_GenerateReport_XML(t *testing.T) {
	generator := NewReportGenerator(logging.NewMockLogger(), "")

	out, err := generator.GenerateReport(Build("marzo.pdf", statement()), "XML")
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, xml.Header))
	assert.Contains(t, text, `<Report source="marzo.pdf">`)
	assert.Contains(t, text, `<Category name="Groceries">75.2</Category>`)
	assert.Contains(t, text, `<Flow source="Total expenses" target="Health">12</Flow>`)
}

func TestReportGenerator_GenerateReport_Text(t *testing.T) {
	generator := NewReportGenerator(nil, "EUR")

	out, err := generator.GenerateReport(Build("", statement()), "text")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Transactions:   5")
	assert.Contains(t, text, "€")
	assert.Contains(t, text, "Expenses by category:")
	assert.NotContains(t, text, "Statement:")

	empty, err := generator.GenerateReport(Build("", nil), "text")
	require.NoError(t, err)
	assert.Contains(t, string(empty), "Final balance:  N/A")
}

func TestReportGenerator_UnsupportedFormat(t *testing.T) {
	_, err := NewReportGenerator(nil, "").GenerateReport(Build("", nil), "pdf")
	assert.EqualError(t, err, "unsupported report format: pdf")
}
