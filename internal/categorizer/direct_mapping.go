package categorizer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/textutils"
)

// minLearnedKeyLen is the shortest learned key allowed to match by substring.
const minLearnedKeyLen = 5

// LearnedKey builds the lookup key of a learned classification: detail and
// concept joined by a space, lowercased, trimmed, whitespace collapsed.
func LearnedKey(description, concept string) string {
	return textutils.CollapseSpaces(strings.ToLower(description + " " + concept))
}

// lookupLearned resolves key against learned. An exact entry wins; otherwise
// the longest key of at least minLearnedKeyLen runes that contains key or is
// contained in it. Keys are visited in sorted order, so among keys of equal
// length the smallest one wins.
func lookupLearned(key string, learned map[string]string) (string, bool) {
	if key == "" || len(learned) == 0 {
		return "", false
	}
	if category := learned[key]; category != "" {
		return category, true
	}

	keys := make([]string, 0, len(learned))
	for k := range learned {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestLen := "", 0
	for _, k := range keys {
		n := utf8.RuneCountInString(k)
		if n < minLearnedKeyLen || n <= bestLen || learned[k] == "" {
			continue
		}
		if strings.Contains(key, k) || strings.Contains(k, key) {
			best, bestLen = learned[k], n
		}
	}
	return best, best != ""
}

// LearnedStrategy categorizes from the learned classifications of one user.
// The entries are a private copy guarded by a RWMutex.
type LearnedStrategy struct {
	entries map[string]string
	logger  logging.Logger
	mu      sync.RWMutex
}

// NewLearnedStrategy creates a LearnedStrategy over a copy of entries.
func NewLearnedStrategy(entries map[string]string, logger logging.Logger) *LearnedStrategy {
	s := &LearnedStrategy{logger: logging.OrDefault(logger)}
	s.Replace(entries)
	return s
}

// Name returns the name of this strategy for logging and debugging.
func (s *LearnedStrategy) Name() string {
	return "Learned"
}

// Categorize looks the transaction up by its learned key.
func (s *LearnedStrategy) Categorize(_ context.Context, tx models.Transaction) (string, bool, error) {
	key := LearnedKey(tx.Description, tx.Concept)

	s.mu.RLock()
	category, found := lookupLearned(key, s.entries)
	s.mu.RUnlock()

	if found {
		s.logger.WithFields(
			logging.F("strategy", s.Name()),
			logging.F(logging.FieldLearnedKey, key),
			logging.F(logging.FieldCategory, category),
		).Debug("Transaction categorized from learned classification")
	}
	return category, found, nil
}

// Update adds or replaces one learned entry.
func (s *LearnedStrategy) Update(key, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = category
}

// Replace swaps the whole snapshot, as after reloading it from the store.
func (s *LearnedStrategy) Replace(entries map[string]string) {
	fresh := make(map[string]string, len(entries))
	for k, v := range entries {
		fresh[k] = v
	}
	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()
}

// Snapshot returns a copy of the current entries.
func (s *LearnedStrategy) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
