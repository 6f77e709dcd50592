package categorizer

import (
	"context"
	"testing"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRulesCategory_RuleOrder(t *testing.T) {
	// "metro" is listed under both Health and Transport; Health comes first.
	category, matched := RulesCategory(tx("METRO LINEA 5", "Pago", "-2.40"))
	assert.True(t, matched)
	assert.Equal(t, models.CategoryHealth, category)
}

func TestRulesCategory_IncomeAlwaysMatches(t *testing.T) {
	tests := []struct {
		name     string
		tx       models.Transaction
		expected string
	}{
		{"salary in concept", tx("EMPRESA SL", "Abon. nòmina", "1500.00"), models.CategorySalary},
		{"salary in detail", tx("PAIE MARS", "Crédit", "2100.00"), models.CategorySalary},
		{"accented word only counts in concept", tx("NÒMINA", "Ingreso", "10.00"), models.CategoryIncome},
		{"refund", tx("ORANGE", "Retour domiciliat", "9.90"), models.CategoryRefund},
		{"zero amount is income", tx("AJUSTE", "Varios", "0.00"), models.CategoryIncome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, matched := RulesCategory(tt.tx)
			assert.True(t, matched)
			assert.Equal(t, tt.expected, category)
		})
	}
}

func TestKeywordStrategy(t *testing.T) {
	logger := logging.NewMockLogger()
	s := NewKeywordStrategy(logger)
	assert.Equal(t, "Keyword", s.Name())

	category, found, err := s.Categorize(context.Background(), tx("NETFLIX.COM", "Recibo", "-13.99"))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.CategoryLeisure, category)
	assert.True(t, logger.HasEntry("DEBUG", "Transaction categorized using keyword matching"))

	logger.Clear()
	category, found, err = s.Categorize(context.Background(), tx("XYZ 123", "Varios", "-5.00"))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.CategoryOther, category)
	assert.Empty(t, logger.GetEntries())
}
