package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/extractor"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/metrics"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/parsererror"
	"fjacquet/statement-csv/internal/pdfparser"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var santanderLines = []string{
	"Banco Santander",
	"Moviments del teu compte",
	"Data operació  Operació  Import  Saldo",
	"26 de des. 2025",
	"Compra targeta SUPERMERCAT",
	"-13,99 €   12,62 €",
	"27 d'oct. 2025",
	"Bizum recibido",
	"50,00 €   26,61 €",
	"2 de gen. 2025",
	"Transferencia nómina",
	"1.500,00 €   1.526,61 €",
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extracte.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%stub\n"), 0600))
	return path
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedRemote struct {
	category string
}

func (f fixedRemote) ClassifyRemote(_ context.Context, _ models.Transaction, _ []string) (string, error) {
	return f.category, nil
}

// zeroExtractor recognizes every document but only finds zero amounts.
type zeroExtractor struct{}

func (zeroExtractor) Name() string { return "zeros" }

func (zeroExtractor) Extract(_ *reflow.Document) []models.Transaction {
	d := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return []models.Transaction{models.NewTransaction(d, "02/01/2025", "Comisión", "Comisión mantenimiento", decimal.Zero)}
}

// blockingSource holds ExtractRuns until release is closed.
type blockingSource struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) ExtractRuns(ctx context.Context, _ string) ([][]reflow.GlyphRun, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return pdfparser.RunsFromLines(santanderLines...), nil
}

func TestProcessor_Process(t *testing.T) {
	logger := logging.NewMockLogger()
	mem := store.NewMemoryStore()
	rec := metrics.NewRecorder()
	source := pdfparser.NewMockGlyphSource(pdfparser.RunsFromLines(santanderLines...), nil)
	p := NewProcessor(source, mem, Options{UserID: "ana", Save: true, Metrics: rec}, logger)

	res, err := p.Process(context.Background(), writePDF(t))
	require.NoError(t, err)

	assert.Equal(t, "santander", res.Bank)
	assert.Equal(t, "santander", res.Extractor)
	require.Len(t, res.Transactions, 3)

	first := res.Transactions[0]
	assert.Equal(t, "26/12/2025", first.DateText)
	assert.True(t, dec("-13.99").Equal(first.Amount))
	require.True(t, first.Balance.Valid)
	assert.True(t, dec("12.62").Equal(first.Balance.Decimal))
	assert.Equal(t, models.KindExpense, first.Kind)
	assert.Contains(t, first.Concept, "Compra")
	assert.Equal(t, models.CategoryGroceries, first.Category)

	assert.Equal(t, models.CategoryIncome, res.Transactions[1].Category)
	assert.Equal(t, 3, res.Sources[categorizer.SourceRules])
	assert.Nil(t, res.Outcome)

	assert.Equal(t, 3, res.Aggregates.TransactionCount)
	assert.True(t, dec("1550").Equal(res.Aggregates.TotalIncome))
	assert.True(t, dec("13.99").Equal(res.Aggregates.TotalExpenses))
	require.True(t, res.Aggregates.FinalBalance.Valid)
	assert.True(t, dec("12.62").Equal(res.Aggregates.FinalBalance.Decimal))

	assert.NotEmpty(t, res.BatchID)
	batches := mem.Batches("ana")
	require.Len(t, batches, 1)
	assert.Equal(t, "extracte.pdf", batches[0].FileName)

	assert.Equal(t, 1, source.Calls)
	assert.True(t, logger.HasEntry("INFO", "Processed statement"))

	expected := `
# HELP statement_transactions_total Transactions kept after filtering.
# TYPE statement_transactions_total counter
statement_transactions_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "statement_transactions_total"))
}

func TestProcessor_Idempotent(t *testing.T) {
	p := NewProcessor(nil, nil, Options{}, logging.NewMockLogger())
	pages := pdfparser.RunsFromLines(santanderLines...)

	a, err := p.ProcessRuns(context.Background(), "a.pdf", pages)
	require.NoError(t, err)
	b, err := p.ProcessRuns(context.Background(), "a.pdf", pages)
	require.NoError(t, err)

	assert.Equal(t, a.Transactions, b.Transactions)
	assert.Equal(t, a.Document.Text, b.Document.Text)
}

func TestProcessor_LearnedEntriesWin(t *testing.T) {
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SetLearnedEntry(context.Background(), "ana", "bizum recibido bizum", models.CategoryLeisure))
	p := NewProcessor(nil, mem, Options{UserID: "ana"}, nil)

	res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(santanderLines...))
	require.NoError(t, err)

	assert.Equal(t, models.CategoryLeisure, res.Transactions[1].Category)
	assert.Equal(t, 1, res.Sources[categorizer.SourceLearned])
	assert.Equal(t, 2, res.Sources[categorizer.SourceRules])
	assert.Empty(t, mem.Batches("ana"), "saving is off")
}

func TestProcessor_StoreFailuresDoNotFail(t *testing.T) {
	logger := logging.NewMockLogger()
	mem := store.NewMemoryStore()
	mem.GetLearnedMapError = errors.New("disk gone")
	mem.SaveBatchError = errors.New("disk gone")
	p := NewProcessor(nil, mem, Options{UserID: "ana", Save: true}, logger)

	res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(santanderLines...))
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 3)
	assert.Empty(t, res.BatchID)
	assert.True(t, logger.HasEntry("WARN", "Failed to load learned classifications, using the local rules only"))
	assert.True(t, logger.HasEntry("WARN", "Failed to save statement batch"))
}

func TestProcessor_Remote(t *testing.T) {
	mem := store.NewMemoryStore()
	runner := categorizer.NewBatchRunner(fixedRemote{category: models.CategoryLeisure}, mem,
		categorizer.BatchConfig{UserID: "ana"}, logging.NewMockLogger())
	rec := metrics.NewRecorder()

	p := NewProcessor(nil, mem, Options{UserID: "ana", Remote: runner, Metrics: rec}, nil)
	res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(santanderLines...))
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.Equal(t, categorizer.DiagnosticOK, res.Outcome.Diagnostic)
	assert.Equal(t, 3, res.Outcome.Processed)
	assert.Equal(t, 3, res.Sources[categorizer.SourceRemote])
	for _, tx := range res.Transactions {
		assert.Equal(t, models.CategoryLeisure, tx.Category)
	}

	learned, err := mem.GetLearnedMap(context.Background(), "ana")
	require.NoError(t, err)
	assert.Len(t, learned, 3)
}

func TestProcessor_RemoteNotReady(t *testing.T) {
	runner := categorizer.NewBatchRunner(fixedRemote{category: models.CategoryLeisure}, nil,
		categorizer.BatchConfig{}, nil)
	p := NewProcessor(nil, nil, Options{
		Remote: runner,
		Connectivity: func(context.Context) categorizer.Connectivity {
			return categorizer.Connectivity{Available: true}
		},
	}, nil)

	res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines(santanderLines...))
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.Equal(t, categorizer.ServiceUnavailable, res.Outcome.Diagnostic)
	assert.Equal(t, models.CategoryGroceries, res.Transactions[0].Category, "local rules still apply")
}

func TestProcessor_Errors(t *testing.T) {
	t.Run("not a pdf", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fake.pdf")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))
		source := pdfparser.NewMockGlyphSource(nil, nil)

		_, err := NewProcessor(source, nil, Options{}, nil).Process(context.Background(), path)
		var formatErr *parsererror.InvalidFormatError
		assert.ErrorAs(t, err, &formatErr)
		assert.Equal(t, 0, source.Calls)
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("broken xref")
		source := pdfparser.NewMockGlyphSource(nil, boom)

		_, err := NewProcessor(source, nil, Options{}, nil).Process(context.Background(), writePDF(t))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nothing recognized", func(t *testing.T) {
		rec := metrics.NewRecorder()
		p := NewProcessor(nil, nil, Options{Metrics: rec}, nil)

		res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines("Relevé de compte", "aucune opération"))
		assert.ErrorIs(t, err, parsererror.ErrNoTransactions)
		require.NotNil(t, res)
		assert.Contains(t, res.Document.Text, "aucune opération")

		expected := `
# HELP statement_failures_total Statements that produced no result, by reason.
# TYPE statement_failures_total counter
statement_failures_total{reason="no_transactions"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "statement_failures_total"))
	})

	t.Run("only zero amounts", func(t *testing.T) {
		p := NewProcessor(nil, nil, Options{Extractors: []extractor.Extractor{zeroExtractor{}}}, nil)

		res, err := p.ProcessRuns(context.Background(), "a.pdf", pdfparser.RunsFromLines("anything"))
		assert.ErrorIs(t, err, parsererror.ErrOnlyZeroAmounts)
		assert.Equal(t, "zeros", res.Extractor)
	})
}

func TestProcessor_RejectsConcurrentRunsOfSameFile(t *testing.T) {
	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	p := NewProcessor(source, nil, Options{}, nil)
	path := writePDF(t)

	done := make(chan error, 1)
	go func() {
		_, err := p.Process(context.Background(), path)
		done <- err
	}()
	<-source.started

	_, err := p.Process(context.Background(), path)
	assert.ErrorIs(t, err, parsererror.ErrAlreadyProcessing)

	close(source.release)
	require.NoError(t, <-done)

	_, err = p.Process(context.Background(), path)
	assert.NoError(t, err, "the path is released once the first run ends")
}

func TestProcessor_Reclassify(t *testing.T) {
	mem := store.NewMemoryStore()
	logger := logging.NewMockLogger()
	p := NewProcessor(nil, mem, Options{UserID: "ana"}, logger)
	pages := pdfparser.RunsFromLines(santanderLines...)

	res, err := p.ProcessRuns(context.Background(), "a.pdf", pages)
	require.NoError(t, err)

	updated, err := p.Reclassify(context.Background(), "ana", res.Transactions[0], models.CategoryHome)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHome, updated.Category)
	assert.Equal(t, models.CategoryGroceries, res.Transactions[0].Category, "input is not modified")
	assert.True(t, logger.HasEntry("INFO", "Learned classification updated"))

	again, err := p.ProcessRuns(context.Background(), "a.pdf", pages)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHome, again.Transactions[0].Category)

	_, err = p.Reclassify(context.Background(), "ana", res.Transactions[0], "Crypto")
	assert.ErrorContains(t, err, "unknown category")

	_, err = NewProcessor(nil, nil, Options{}, nil).Reclassify(context.Background(), "ana", res.Transactions[0], models.CategoryHome)
	assert.ErrorIs(t, err, ErrNoStore)
}
