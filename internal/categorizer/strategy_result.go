package categorizer

import (
	"fmt"
	"strings"

	"fjacquet/statement-csv/internal/models"
)

// StrategyResult represents the result of a categorization strategy attempt
type StrategyResult struct {
	Strategy string
	Category string
	Found    bool
	Error    error
}

// StrategyResults aggregates results from multiple strategies
type StrategyResults struct {
	Results []StrategyResult
}

// Best returns the first successful result, or CategoryOther when none succeeded.
func (sr StrategyResults) Best() (string, bool) {
	for _, r := range sr.Results {
		if r.Found && r.Error == nil {
			return r.Category, true
		}
	}
	return models.CategoryOther, false
}

// Errors returns all errors encountered during strategy execution
func (sr StrategyResults) Errors() []error {
	var errs []error
	for _, r := range sr.Results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s strategy: %w", r.Strategy, r.Error))
		}
	}
	return errs
}

// Summary returns a human-readable summary of all strategy attempts
func (sr StrategyResults) Summary() string {
	parts := make([]string, 0, len(sr.Results))
	for _, r := range sr.Results {
		status := "failed"
		switch {
		case r.Found && r.Error == nil:
			status = "success(" + r.Category + ")"
		case r.Error == nil:
			status = "no_match"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", r.Strategy, status))
	}
	return strings.Join(parts, ", ")
}
