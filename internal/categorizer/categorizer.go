// Package categorizer assigns a spending category to each transaction:
//  1. learned classifications saved by the user, exact then by substring
//  2. built-in keyword rules for income and expenses
//  3. optionally a remote classifier (Gemini), run in rate-limited rounds
package categorizer

import (
	"context"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/parsererror"
)

// Classifier chains categorization strategies. The pure entry point is
// Classify; Categorize and Explain run the configured strategy chain.
type Classifier struct {
	strategies []CategorizationStrategy
	logger     logging.Logger
}

// NewClassifier creates a Classifier that tries learned (when non-nil), then
// the keyword rules, then any extra strategies in order.
func NewClassifier(learned *LearnedStrategy, logger logging.Logger, extra ...CategorizationStrategy) *Classifier {
	logger = logging.OrDefault(logger)
	var strategies []CategorizationStrategy
	if learned != nil {
		strategies = append(strategies, learned)
	}
	strategies = append(strategies, NewKeywordStrategy(logger))
	strategies = append(strategies, extra...)
	return &Classifier{strategies: strategies, logger: logger}
}

// Classify returns the category of tx given a learned snapshot. It reads only
// its arguments and the compiled rules.
func (c *Classifier) Classify(tx models.Transaction, learned map[string]string) string {
	category, _ := ClassifyWithSource(tx, learned)
	return category
}

// ClassifyWithSource is Classify reporting which step decided.
func ClassifyWithSource(tx models.Transaction, learned map[string]string) (string, Source) {
	if category, ok := lookupLearned(LearnedKey(tx.Description, tx.Concept), learned); ok {
		return category, SourceLearned
	}
	category, _ := RulesCategory(tx)
	return category, SourceRules
}

// ClassifyAll returns a copy of txs with every Category set, and how many
// categories each source decided.
func (c *Classifier) ClassifyAll(txs []models.Transaction, learned map[string]string) ([]models.Transaction, map[Source]int) {
	out := make([]models.Transaction, len(txs))
	counts := make(map[Source]int)
	for i, tx := range txs {
		category, source := ClassifyWithSource(tx, learned)
		tx.Category = category
		out[i] = tx
		counts[source]++
	}
	return out, counts
}

// Name returns the name of this strategy for logging and debugging.
func (c *Classifier) Name() string {
	return "Classifier"
}

// Categorize returns the first category a strategy recognizes. Strategy
// errors are logged and skipped; with no hit the result is CategoryOther.
func (c *Classifier) Categorize(ctx context.Context, tx models.Transaction) (string, bool, error) {
	for _, s := range c.strategies {
		category, found, err := s.Categorize(ctx, tx)
		if err != nil {
			c.logger.WithError(&parsererror.CategorizationError{
				Transaction: tx.Description,
				Strategy:    s.Name(),
				Err:         err,
			}).Warn("Categorization strategy failed, trying the next one")
			continue
		}
		if found {
			return category, true, nil
		}
	}
	return models.CategoryOther, false, nil
}

// Explain runs every strategy and collects each outcome.
func (c *Classifier) Explain(ctx context.Context, tx models.Transaction) StrategyResults {
	results := StrategyResults{Results: make([]StrategyResult, 0, len(c.strategies))}
	for _, s := range c.strategies {
		category, found, err := s.Categorize(ctx, tx)
		results.Results = append(results.Results, StrategyResult{
			Strategy: s.Name(),
			Category: category,
			Found:    found,
			Error:    err,
		})
	}
	return results
}
