package categorizer

import (
	"context"

	"fjacquet/statement-csv/internal/models"
)

// Source records which step assigned a category.
type Source string

const (
	SourceLearned Source = "learned"
	SourceRules   Source = "rules"
	SourceRemote  Source = "remote"
)

// CategorizationStrategy defines one way of naming the category of a transaction.
type CategorizationStrategy interface {
	// Categorize returns the category and whether this strategy recognized the
	// transaction. A miss is (_, false, nil); errors are reserved for failures.
	Categorize(ctx context.Context, tx models.Transaction) (string, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}
