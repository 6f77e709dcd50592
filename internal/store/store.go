// Package store persists learned classifications and the history of saved
// statement batches, one directory per user.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	learnedFile = "learned.yaml"
	historyFile = "history.yaml"
)

// ErrBatchNotFound is returned by GetBatch for an unknown batch ID.
var ErrBatchNotFound = errors.New("batch not found")

// Persistence is the storage contract used by the pipeline and the CLI.
type Persistence interface {
	SaveBatch(ctx context.Context, userID, fileName string, txs []models.Transaction, agg models.Aggregates) (string, error)
	GetHistory(ctx context.Context, userID string) ([]models.BatchSummary, error)
	GetLearnedMap(ctx context.Context, userID string) (map[string]string, error)
	SetLearnedEntry(ctx context.Context, userID, key, category string) error
}

// BatchReader loads a saved batch with its transactions.
type BatchReader interface {
	GetBatch(ctx context.Context, userID, id string) (models.Batch, error)
}

// YAMLStore implements Persistence with YAML files under a root directory:
// <dir>/<user>/learned.yaml and <dir>/<user>/history.yaml.
type YAMLStore struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
	mu     sync.RWMutex
}

// NewYAMLStore creates a store rooted at dir. The directory is created lazily.
func NewYAMLStore(dir string, logger logging.Logger) *YAMLStore {
	return &YAMLStore{dir: dir, logger: logging.OrDefault(logger), now: time.Now}
}

// Dir returns the root directory of the store.
func (s *YAMLStore) Dir() string {
	return s.dir
}

// userDir resolves the directory of userID, refusing anything that could
// escape the root.
func (s *YAMLStore) userDir(userID string) (string, error) {
	if err := validation.IsValidUserID(userID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, strings.TrimSpace(userID)), nil
}

// GetLearnedMap returns the learned classifications of userID. A missing
// file is an empty map.
func (s *YAMLStore) GetLearnedMap(ctx context.Context, userID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	learned := make(map[string]string)
	if err := readYAML(filepath.Join(dir, learnedFile), &learned); err != nil {
		return nil, fmt.Errorf("error reading learned classifications: %w", err)
	}
	if learned == nil {
		learned = make(map[string]string)
	}
	return learned, nil
}

// SetLearnedEntry adds or replaces one learned classification.
func (s *YAMLStore) SetLearnedEntry(ctx context.Context, userID, key, category string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("learned key must not be empty")
	}
	if !models.IsValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(dir, learnedFile)
	learned := make(map[string]string)
	if err := readYAML(path, &learned); err != nil {
		return fmt.Errorf("error reading learned classifications: %w", err)
	}
	if learned == nil {
		learned = make(map[string]string)
	}
	learned[key] = category

	if err := writeYAML(path, learned); err != nil {
		return fmt.Errorf("error writing learned classifications: %w", err)
	}
	s.logger.WithFields(
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldLearnedKey, key),
		logging.F(logging.FieldCategory, category),
	).Debug("Saved learned classification")
	return nil
}

// SaveBatch appends a batch to the history of userID and returns its new ID.
func (s *YAMLStore) SaveBatch(ctx context.Context, userID, fileName string, txs []models.Transaction, agg models.Aggregates) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(dir, historyFile)
	var history []batchRecord
	if err := readYAML(path, &history); err != nil {
		return "", fmt.Errorf("error reading history: %w", err)
	}

	id := uuid.NewString()
	history = append(history, newBatchRecord(models.Batch{
		BatchSummary: models.BatchSummary{
			ID:         id,
			UserID:     userID,
			FileName:   fileName,
			CreatedAt:  s.now().UTC(),
			Aggregates: agg,
		},
		Transactions: txs,
	}))

	if err := writeYAML(path, history); err != nil {
		return "", fmt.Errorf("error writing history: %w", err)
	}
	s.logger.WithFields(
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldBatchID, id),
		logging.F(logging.FieldCount, len(txs)),
	).Info("Saved statement batch")
	return id, nil
}

// GetHistory returns the batch summaries of userID, newest first.
func (s *YAMLStore) GetHistory(ctx context.Context, userID string) ([]models.BatchSummary, error) {
	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.BatchSummary, 0, len(history))
	for _, r := range history {
		summaries = append(summaries, r.toBatch(userID).BatchSummary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// GetBatch returns one saved batch with its transactions.
func (s *YAMLStore) GetBatch(ctx context.Context, userID, id string) (models.Batch, error) {
	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return models.Batch{}, err
	}
	for _, r := range history {
		if r.ID == id {
			return r.toBatch(userID), nil
		}
	}
	return models.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
}

func (s *YAMLStore) loadHistory(ctx context.Context, userID string) ([]batchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var history []batchRecord
	if err := readYAML(filepath.Join(dir, historyFile), &history); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	return history, nil
}

// readYAML decodes path into out. A missing or empty file leaves out untouched.
func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the store root
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, out)
}

// writeYAML writes v to a temporary file next to path and renames it over path.
func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, models.PermissionConfigFile); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// batchRecord is the on-disk form of a batch. Amounts are kept as decimal
// strings so that no precision is lost.
type batchRecord struct {
	ID               string              `yaml:"id"`
	FileName         string              `yaml:"file_name"`
	CreatedAt        time.Time           `yaml:"created_at"`
	TransactionCount int                 `yaml:"transaction_count"`
	TotalIncome      string              `yaml:"total_income"`
	TotalExpenses    string              `yaml:"total_expenses"`
	FinalBalance     string              `yaml:"final_balance,omitempty"`
	Transactions     []transactionRecord `yaml:"transactions"`
}

type transactionRecord struct {
	Date        string `yaml:"date"`
	DateText    string `yaml:"date_text"`
	ValueDate   string `yaml:"value_date,omitempty"`
	Concept     string `yaml:"concept"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Balance     string `yaml:"balance,omitempty"`
	Category    string `yaml:"category,omitempty"`
}

func newBatchRecord(b models.Batch) batchRecord {
	r := batchRecord{
		ID:               b.ID,
		FileName:         b.FileName,
		CreatedAt:        b.CreatedAt,
		TransactionCount: b.Aggregates.TransactionCount,
		TotalIncome:      b.Aggregates.TotalIncome.String(),
		TotalExpenses:    b.Aggregates.TotalExpenses.String(),
		Transactions:     make([]transactionRecord, 0, len(b.Transactions)),
	}
	if b.Aggregates.FinalBalance.Valid {
		r.FinalBalance = b.Aggregates.FinalBalance.Decimal.String()
	}
	for _, tx := range b.Transactions {
		tr := transactionRecord{
			Date:        dateutils.ToISODate(tx.Date),
			DateText:    tx.DateText,
			ValueDate:   tx.ValueDate,
			Concept:     tx.Concept,
			Description: tx.Description,
			Amount:      tx.Amount.String(),
			Category:    tx.Category,
		}
		if tx.HasBalance() {
			tr.Balance = tx.Balance.Decimal.String()
		}
		r.Transactions = append(r.Transactions, tr)
	}
	return r
}

func (r batchRecord) toBatch(userID string) models.Batch {
	b := models.Batch{
		BatchSummary: models.BatchSummary{
			ID:        r.ID,
			UserID:    userID,
			FileName:  r.FileName,
			CreatedAt: r.CreatedAt,
			Aggregates: models.Aggregates{
				TransactionCount: r.TransactionCount,
				TotalIncome:      parseStored(r.TotalIncome),
				TotalExpenses:    parseStored(r.TotalExpenses),
			},
		},
		Transactions: make([]models.Transaction, 0, len(r.Transactions)),
	}
	if r.FinalBalance != "" {
		b.Aggregates.FinalBalance = decimal.NewNullDecimal(parseStored(r.FinalBalance))
	}
	for _, tr := range r.Transactions {
		tx := models.NewTransaction(dateutils.ParseDate(tr.Date), tr.DateText, tr.Concept, tr.Description, parseStored(tr.Amount))
		tx.ValueDate = tr.ValueDate
		tx.Category = tr.Category
		if tr.Balance != "" {
			tx.SetBalance(parseStored(tr.Balance))
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return b
}

// parseStored reads a decimal written by this package. Corrupt values read as zero.
func parseStored(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
