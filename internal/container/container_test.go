package container

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/config"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/pdfparser"
	"fjacquet/statement-csv/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statementLines = []string{
	"Banco Santander",
	"Data operació  Operació  Import  Saldo",
	"26 de des. 2025",
	"Compra targeta SUPERMERCAT",
	"-13,99 €   12,62 €",
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.CSV.Delimiter = ";"
	cfg.Extraction.LineThreshold = 3
	cfg.Extraction.LooseLineThreshold = 5
	cfg.AI.Model = categorizer.DefaultGeminiModel
	cfg.AI.TimeoutSeconds = 30
	cfg.AI.BatchSize = 5
	cfg.AI.FallbackCategory = models.CategoryOther
	cfg.Data.Directory = t.TempDir()
	cfg.Data.User = "ana"
	return cfg
}

type constantRemote struct{}

func (constantRemote) ClassifyRemote(_ context.Context, _ models.Transaction, _ []string) (string, error) {
	return models.CategoryLeisure, nil
}

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name        string
		config      func(t *testing.T) *config.Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "nil config",
			config:      func(*testing.T) *config.Config { return nil },
			expectError: true,
			errorMsg:    "configuration cannot be nil",
		},
		{
			name:   "valid config without AI",
			config: testConfig,
		},
		{
			name: "AI enabled without key",
			config: func(t *testing.T) *config.Config {
				cfg := testConfig(t)
				cfg.AI.Enabled = true
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContainer(tt.config(t), WithLogger(logging.NewMockLogger()))
			if tt.expectError {
				assert.ErrorContains(t, err, tt.errorMsg)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c.GetLogger())
			assert.NotNil(t, c.GetConfig())
			assert.NotNil(t, c.GetMetrics())
			assert.IsType(t, &store.YAMLStore{}, c.GetStore())
		})
	}
}

func TestContainer_MissingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Enabled = true
	logger := logging.NewMockLogger()

	c, err := NewContainer(cfg, WithLogger(logger))
	require.NoError(t, err)

	assert.ErrorIs(t, c.RemoteError(), categorizer.ErrMissingAPIKey)
	assert.Nil(t, c.GetRemote())
	assert.False(t, c.Connectivity(context.Background()).Ready())
	assert.True(t, logger.HasEntry("WARN", "AI categorization unavailable, using the local rules"))
}

func TestContainer_ProcessorWithoutRemoteReportsUnavailable(t *testing.T) {
	c, err := NewContainer(testConfig(t), WithLogger(logging.NewMockLogger()), WithStore(store.NewMemoryStore()))
	require.NoError(t, err)

	res, err := c.NewProcessor(ProcessorOptions{UseAI: true}).ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(statementLines...))
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, categorizer.ServiceUnavailable, res.Outcome.Diagnostic)
	assert.Contains(t, res.Outcome.Message(), "GEMINI_API_KEY")
	assert.Equal(t, models.CategoryGroceries, res.Transactions[0].Category)
}

func TestContainer_ProcessorWithRemote(t *testing.T) {
	mem := store.NewMemoryStore()
	path := filepath.Join(t.TempDir(), "extracte.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0600))

	c, err := NewContainer(testConfig(t),
		WithLogger(logging.NewMockLogger()),
		WithStore(mem),
		WithRemote(constantRemote{}),
		WithGlyphSource(pdfparser.NewMockGlyphSource(pdfparser.RunsFromLines(statementLines...), nil)),
	)
	require.NoError(t, err)
	assert.True(t, c.Connectivity(context.Background()).Ready())

	res, err := c.NewProcessor(ProcessorOptions{UseAI: true, Save: true}).Process(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryLeisure, res.Transactions[0].Category)
	assert.Len(t, mem.Batches("ana"), 1, "user defaults to data.user")

	learned, err := mem.GetLearnedMap(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryLeisure, learned["compra targeta supermercat compra"])
}

func TestContainer_NewClassifier(t *testing.T) {
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SetLearnedEntry(context.Background(), "ana", "compra targeta supermercat compra", models.CategoryHome))
	c, err := NewContainer(testConfig(t), WithLogger(logging.NewMockLogger()), WithStore(mem))
	require.NoError(t, err)

	classifier, err := c.NewClassifier(context.Background(), "ana")
	require.NoError(t, err)

	res, err := c.NewProcessor(ProcessorOptions{}).ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(statementLines...))
	require.NoError(t, err)
	category, found, err := classifier.Categorize(context.Background(), res.Transactions[0])
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.CategoryHome, category)
}

func TestContainer_CSVWriterUsesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.CSV.BOM = false
	c, err := NewContainer(cfg, WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.CSVWriter().Write(&buf, []models.Transaction{}))
	assert.True(t, strings.HasPrefix(buf.String(), "Date;Concept;Detail"))
}

func TestContainer_CloseWritesMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "statement.prom")
	c, err := NewContainer(cfg, WithLogger(logging.NewMockLogger()), WithStore(store.NewMemoryStore()))
	require.NoError(t, err)

	_, err = c.NewProcessor(ProcessorOptions{}).ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(statementLines...))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `statement_extractions_total{extractor="santander"} 1`)
}
