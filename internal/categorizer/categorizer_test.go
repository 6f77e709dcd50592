package categorizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(description, concept, amount string) models.Transaction {
	return models.NewTransaction(
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "15/03/2024",
		concept, description, decimal.RequireFromString(amount))
}

// stubStrategy is a CategorizationStrategy with a fixed answer.
type stubStrategy struct {
	name     string
	category string
	found    bool
	err      error
	calls    int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Categorize(_ context.Context, _ models.Transaction) (string, bool, error) {
	s.calls++
	return s.category, s.found, s.err
}

func TestLearnedKey(t *testing.T) {
	assert.Equal(t, "mercadona valencia compra", LearnedKey("  MERCADONA   Valencia", "Compra "))
	assert.Equal(t, "netflix.com", LearnedKey("NETFLIX.COM", ""))
	assert.Equal(t, "", LearnedKey("", ""))
}

func TestClassify(t *testing.T) {
	learned := map[string]string{
		"mercadona":                  models.CategoryLeisure,
		"mercadona valencia":         models.CategoryHome,
		"abc":                        models.CategoryDining,
		"netflix.com recibo mensual": models.CategoryEducation,
	}

	tests := []struct {
		name     string
		tx       models.Transaction
		learned  map[string]string
		expected string
		source   Source
	}{
		{"rules groceries", tx("MERCADONA VALENCIA", "Compra", "-45.20"), nil, models.CategoryGroceries, SourceRules},
		{"rules health", tx("FARMACIA CENTRAL", "Tarjeta", "-12.00"), nil, models.CategoryHealth, SourceRules},
		{"rules transport", tx("TAXI MADRID", "Pago", "-18.50"), nil, models.CategoryTransport, SourceRules},
		{"rules leisure", tx("NETFLIX.COM", "Recibo", "-13.99"), nil, models.CategoryLeisure, SourceRules},
		{"no rule matches", tx("XYZ 123", "Varios", "-5.00"), nil, models.CategoryOther, SourceRules},
		{"salary", tx("EMPRESA SL", "Abon. nòmina", "1500.00"), nil, models.CategorySalary, SourceRules},
		{"refund", tx("VIREMENT SEPA", "Virement", "40.00"), nil, models.CategoryRefund, SourceRules},
		{"other income", tx("Bizum recibido", "Bizum", "20.00"), nil, models.CategoryIncome, SourceRules},
		{"learned longest substring", tx("MERCADONA VALENCIA", "Compra", "-45.20"), learned, models.CategoryHome, SourceLearned},
		{"learned key contains lookup key", tx("NETFLIX.COM", "Recibo", "-13.99"), learned, models.CategoryEducation, SourceLearned},
		{"learned exact", tx("MERCADONA  Valencia", "Compra", "-3.00"),
			map[string]string{"mercadona valencia compra": models.CategoryBeauty}, models.CategoryBeauty, SourceLearned},
		{"short learned key ignored", tx("BAR PACO", "Compra", "-3.00"),
			map[string]string{"bar": models.CategoryHome}, models.CategoryDining, SourceRules},
		{"empty learned value ignored", tx("TAXI MADRID", "Pago", "-3.00"),
			map[string]string{"taxi madrid pago": ""}, models.CategoryTransport, SourceRules},
		{"tie resolved by sorted key", tx("aaaaa zzzzz", "", "-1.00"),
			map[string]string{"zzzzz": models.CategoryHome, "aaaaa": models.CategoryDining}, models.CategoryDining, SourceLearned},
	}

	c := NewClassifier(nil, logging.NewMockLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, source := ClassifyWithSource(tt.tx, tt.learned)
			assert.Equal(t, tt.expected, category)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.expected, c.Classify(tt.tx, tt.learned))
		})
	}
}

func TestClassify_EmptyKeyNeverMatchesLearned(t *testing.T) {
	category, source := ClassifyWithSource(tx("", "", "-1.00"), map[string]string{"anything": models.CategoryHome})
	assert.Equal(t, models.CategoryOther, category)
	assert.Equal(t, SourceRules, source)
}

func TestClassifyAll(t *testing.T) {
	input := []models.Transaction{
		tx("MERCADONA VALENCIA", "Compra", "-45.20"),
		tx("EMPRESA SL", "Abon. nòmina", "1500.00"),
		tx("XYZ 123", "Varios", "-5.00"),
	}
	learned := map[string]string{"xyz 123 varios": models.CategoryTechnology}

	c := NewClassifier(nil, logging.NewMockLogger())
	out, counts := c.ClassifyAll(input, learned)

	require.Len(t, out, 3)
	assert.Equal(t, models.CategoryGroceries, out[0].Category)
	assert.Equal(t, models.CategorySalary, out[1].Category)
	assert.Equal(t, models.CategoryTechnology, out[2].Category)
	assert.Equal(t, 2, counts[SourceRules])
	assert.Equal(t, 1, counts[SourceLearned])

	for _, in := range input {
		assert.Empty(t, in.Category, "input must not be modified")
	}
}

func TestClassifier_Categorize(t *testing.T) {
	t.Run("learned before rules", func(t *testing.T) {
		learned := NewLearnedStrategy(map[string]string{"mercadona valencia compra": models.CategoryHome}, nil)
		c := NewClassifier(learned, logging.NewMockLogger())

		category, found, err := c.Categorize(context.Background(), tx("MERCADONA VALENCIA", "Compra", "-1.00"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, models.CategoryHome, category)
	})

	t.Run("failing strategy is logged and skipped", func(t *testing.T) {
		logger := logging.NewMockLogger()
		failing := &stubStrategy{name: "Broken", err: errors.New("boom")}
		fallback := &stubStrategy{name: "Fallback", category: models.CategoryTechnology, found: true}
		c := NewClassifier(nil, logger, failing, fallback)

		category, found, err := c.Categorize(context.Background(), tx("XYZ 123", "Varios", "-5.00"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, models.CategoryTechnology, category)
		assert.Equal(t, 1, failing.calls)
		assert.True(t, logger.HasEntry("WARN", "Categorization strategy failed, trying the next one"))
	})

	t.Run("rules hit stops the chain", func(t *testing.T) {
		extra := &stubStrategy{name: "Extra", category: models.CategoryBeauty, found: true}
		c := NewClassifier(nil, logging.NewMockLogger(), extra)

		category, found, err := c.Categorize(context.Background(), tx("FARMACIA CENTRAL", "Tarjeta", "-12.00"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, models.CategoryHealth, category)
		assert.Zero(t, extra.calls)
	})

	t.Run("nothing matches", func(t *testing.T) {
		c := NewClassifier(nil, logging.NewMockLogger())
		category, found, err := c.Categorize(context.Background(), tx("XYZ 123", "Varios", "-5.00"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, models.CategoryOther, category)
	})
}

func TestClassifier_Explain(t *testing.T) {
	learned := NewLearnedStrategy(nil, nil)
	broken := &stubStrategy{name: "Broken", err: errors.New("boom")}
	c := NewClassifier(learned, logging.NewMockLogger(), broken)

	results := c.Explain(context.Background(), tx("XYZ 123", "Varios", "-5.00"))

	assert.Equal(t, "Learned:no_match, Keyword:no_match, Broken:failed", results.Summary())
	category, ok := results.Best()
	assert.False(t, ok)
	assert.Equal(t, models.CategoryOther, category)
	require.Len(t, results.Errors(), 1)
	assert.Contains(t, results.Errors()[0].Error(), "Broken strategy")
}

func TestStrategyResults_Best(t *testing.T) {
	results := StrategyResults{Results: []StrategyResult{
		{Strategy: "A", Category: models.CategoryHome, Found: true, Error: errors.New("bad")},
		{Strategy: "B"},
		{Strategy: "C", Category: models.CategoryDining, Found: true},
	}}
	category, ok := results.Best()
	assert.True(t, ok)
	assert.Equal(t, models.CategoryDining, category)
	assert.Equal(t, "A:failed, B:no_match, C:success(Dining)", results.Summary())
}
