package categorizer

import (
	"context"
	"strings"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
)

// RemoteStrategy implements categorization through a RemoteClassifier.
type RemoteStrategy struct {
	remote  RemoteClassifier
	allowed []string
	logger  logging.Logger
}

// NewRemoteStrategy creates a RemoteStrategy restricted to allowed. A nil
// allowed list means every known category.
func NewRemoteStrategy(remote RemoteClassifier, allowed []string, logger logging.Logger) *RemoteStrategy {
	if len(allowed) == 0 {
		allowed = models.AllCategories
	}
	return &RemoteStrategy{remote: remote, allowed: allowed, logger: logging.OrDefault(logger)}
}

// Name returns the name of this strategy for logging and debugging.
func (s *RemoteStrategy) Name() string {
	return "Remote"
}

// Categorize asks the remote classifier. Without a client it always misses.
func (s *RemoteStrategy) Categorize(ctx context.Context, tx models.Transaction) (string, bool, error) {
	if s.remote == nil {
		s.logger.WithField("strategy", s.Name()).Debug("Remote classifier not configured, skipping")
		return "", false, nil
	}
	if strings.TrimSpace(tx.Description) == "" && strings.TrimSpace(tx.Concept) == "" {
		return "", false, nil
	}

	category, err := s.remote.ClassifyRemote(ctx, tx, s.allowed)
	if err != nil {
		return "", false, err
	}
	s.logger.WithFields(
		logging.F("strategy", s.Name()),
		logging.F(logging.FieldDescription, tx.Description),
		logging.F(logging.FieldCategory, category),
	).Debug("Transaction categorized by remote classifier")
	return category, category != "", nil
}
