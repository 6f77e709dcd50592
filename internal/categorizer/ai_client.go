package categorizer

import (
	"context"

	"fjacquet/statement-csv/internal/models"
)

// RemoteClassifier asks an external service for the category of a transaction.
// The answer must be one of allowed; implementations resolve near misses with
// ResolveCategory.
type RemoteClassifier interface {
	ClassifyRemote(ctx context.Context, tx models.Transaction, allowed []string) (string, error)
}

// Connectivity describes whether the remote classifier can be used. It is
// evaluated by the caller for every batch and passed in explicitly.
type Connectivity struct {
	Available     bool
	Authenticated bool
}

// Ready reports whether remote calls should be attempted.
func (c Connectivity) Ready() bool {
	return c.Available && c.Authenticated
}
