package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fjacquet/statement-csv/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Persistence for tests and --no-save runs.
type MemoryStore struct {
	mu      sync.Mutex
	learned map[string]map[string]string
	batches map[string][]models.Batch

	// Error flags for testing error conditions
	SaveBatchError       error
	GetHistoryError      error
	GetLearnedMapError   error
	SetLearnedEntryError error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		learned: make(map[string]map[string]string),
		batches: make(map[string][]models.Batch),
	}
}

// SaveBatch records the batch in memory.
func (m *MemoryStore) SaveBatch(_ context.Context, userID, fileName string, txs []models.Transaction, agg models.Aggregates) (string, error) {
	if m.SaveBatchError != nil {
		return "", m.SaveBatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	copied := make([]models.Transaction, len(txs))
	copy(copied, txs)
	m.batches[userID] = append(m.batches[userID], models.Batch{
		BatchSummary: models.BatchSummary{
			ID:         id,
			UserID:     userID,
			FileName:   fileName,
			CreatedAt:  time.Now().UTC(),
			Aggregates: agg,
		},
		Transactions: copied,
	})
	return id, nil
}

// GetHistory returns the saved summaries, newest first.
func (m *MemoryStore) GetHistory(_ context.Context, userID string) ([]models.BatchSummary, error) {
	if m.GetHistoryError != nil {
		return nil, m.GetHistoryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	batches := m.batches[userID]
	out := make([]models.BatchSummary, 0, len(batches))
	for i := len(batches) - 1; i >= 0; i-- {
		out = append(out, batches[i].BatchSummary)
	}
	return out, nil
}

// Batches returns every saved batch of userID in insertion order.
func (m *MemoryStore) Batches(userID string) []models.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Batch(nil), m.batches[userID]...)
}

// GetLearnedMap returns a copy of the learned map.
func (m *MemoryStore) GetLearnedMap(_ context.Context, userID string) (map[string]string, error) {
	if m.GetLearnedMapError != nil {
		return nil, m.GetLearnedMapError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Return a copy to avoid external modifications
	result := make(map[string]string, len(m.learned[userID]))
	for k, v := range m.learned[userID] {
		result[k] = v
	}
	return result, nil
}

// SetLearnedEntry updates the learned map.
func (m *MemoryStore) SetLearnedEntry(_ context.Context, userID, key, category string) error {
	if m.SetLearnedEntryError != nil {
		return m.SetLearnedEntryError
	}
	if !models.IsValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.learned[userID] == nil {
		m.learned[userID] = make(map[string]string)
	}
	m.learned[userID][key] = category
	return nil
}

// GetBatch returns one saved batch with its transactions.
func (m *MemoryStore) GetBatch(_ context.Context, userID, id string) (models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches[userID] {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
}
