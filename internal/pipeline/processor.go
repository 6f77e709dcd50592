// Package pipeline runs a statement through every stage: PDF validation,
// glyph extraction, reflow, the extractor cascade, classification, metrics
// and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/extractor"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/metrics"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/parsererror"
	"fjacquet/statement-csv/internal/pdfparser"
	"fjacquet/statement-csv/internal/reflow"
	"fjacquet/statement-csv/internal/report"
	"fjacquet/statement-csv/internal/store"
)

// Options configures a Processor.
type Options struct {
	UserID        string
	LineThreshold float64
	// Save stores every processed statement as a batch.
	Save bool
	// Remote enables the remote classification rounds. When nil, only the
	// learned entries and the local rules are used.
	Remote *categorizer.BatchRunner
	// Connectivity is evaluated before every remote batch. It defaults to
	// ready whenever Remote is set.
	Connectivity func(ctx context.Context) categorizer.Connectivity
	Metrics      *metrics.Recorder
	// Extractors replaces the default cascade when set.
	Extractors []extractor.Extractor
}

// Result is one processed statement.
type Result struct {
	File         string
	Bank         string
	Extractor    string
	Document     reflow.Document
	Transactions []models.Transaction
	Aggregates   models.Aggregates
	Sources      map[categorizer.Source]int
	// Outcome is set when the remote classification ran.
	Outcome *categorizer.BatchOutcome
	BatchID string
}

// Processor turns statement files into classified transactions.
type Processor struct {
	source     pdfparser.GlyphSource
	store      store.Persistence
	cascade    *extractor.Cascade
	classifier *categorizer.Classifier
	opts       Options
	logger     logging.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewProcessor creates a Processor. persistence may be nil, in which case no
// learned entries are read and nothing is saved.
func NewProcessor(source pdfparser.GlyphSource, persistence store.Persistence, opts Options, logger logging.Logger) *Processor {
	logger = logging.OrDefault(logger)
	if opts.LineThreshold <= 0 {
		opts.LineThreshold = reflow.DefaultThreshold
	}
	cascade := extractor.DefaultCascade(logger)
	if len(opts.Extractors) > 0 {
		cascade = extractor.NewCascade(logger, opts.Extractors...)
	}
	return &Processor{
		source:     source,
		store:      persistence,
		cascade:    cascade,
		classifier: categorizer.NewClassifier(nil, logger),
		opts:       opts,
		logger:     logger,
		inFlight:   make(map[string]struct{}),
	}
}

func (p *Processor) acquire(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[path]; busy {
		return fmt.Errorf("%s: %w", path, parsererror.ErrAlreadyProcessing)
	}
	p.inFlight[path] = struct{}{}
	return nil
}

func (p *Processor) release(path string) {
	p.mu.Lock()
	delete(p.inFlight, path)
	p.mu.Unlock()
}

// Process reads the PDF at path and returns its classified transactions.
// A second call for a path still in flight fails with ErrAlreadyProcessing.
// When extraction yields nothing, the Result is still returned alongside the
// error so the reflowed text can be inspected.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	key := filepath.Clean(path)
	if err := p.acquire(key); err != nil {
		return nil, err
	}
	defer p.release(key)

	if err := pdfparser.ValidatePDF(path); err != nil {
		p.opts.Metrics.Failure("invalid_pdf")
		return nil, err
	}

	p.logger.Info("Parsing PDF file", logging.F(logging.FieldFile, path))
	pages, err := p.source.ExtractRuns(ctx, path)
	if err != nil {
		p.opts.Metrics.Failure("extraction")
		return nil, fmt.Errorf("error extracting text from %s: %w", path, err)
	}
	return p.ProcessRuns(ctx, path, pages)
}

// ProcessRuns runs the pipeline on glyph runs already in memory. name is
// only used for logging and as the saved batch file name.
func (p *Processor) ProcessRuns(ctx context.Context, name string, pages [][]reflow.GlyphRun) (*Result, error) {
	start := time.Now()
	doc := reflow.Reflow(pages, p.opts.LineThreshold)
	res := &Result{File: name, Document: doc, Bank: extractor.DetectBank(&doc)}

	p.logger.Debug("Reflowed statement text",
		logging.F(logging.FieldFile, name),
		logging.F(logging.FieldPages, len(pages)),
		logging.F(logging.FieldLines, len(doc.Lines)))

	raw, used := p.cascade.Run(&doc)
	if len(raw) == 0 {
		p.opts.Metrics.Failure("no_transactions")
		return res, parsererror.ErrNoTransactions
	}
	res.Extractor = used

	txs := extractor.FilterAndSort(raw)
	if len(txs) == 0 {
		p.opts.Metrics.Failure("only_zero_amounts")
		return res, parsererror.ErrOnlyZeroAmounts
	}

	learned := p.learnedSnapshot(ctx)
	if p.opts.Remote != nil {
		outcome := p.opts.Remote.Run(ctx, txs, learned, p.connectivity(ctx))
		res.Outcome = &outcome
		res.Transactions = outcome.Transactions
		res.Sources = outcome.Sources
		p.opts.Metrics.RemoteErrors(outcome.Errors)
	} else {
		res.Transactions, res.Sources = p.classifier.ClassifyAll(txs, learned)
	}
	res.Aggregates = report.ComputeAggregates(res.Transactions)

	p.opts.Metrics.Extraction(used, len(res.Transactions))
	bySource := make(map[string]int, len(res.Sources))
	for source, n := range res.Sources {
		bySource[string(source)] = n
	}
	p.opts.Metrics.Classifications(bySource)

	if p.opts.Save && p.store != nil {
		id, err := p.store.SaveBatch(ctx, p.opts.UserID, filepath.Base(name), res.Transactions, res.Aggregates)
		if err != nil {
			p.logger.WithError(err).WithField(logging.FieldFile, name).Warn("Failed to save statement batch")
		} else {
			res.BatchID = id
		}
	}

	p.logger.WithFields(
		logging.F(logging.FieldFile, name),
		logging.F(logging.FieldExtractor, used),
		logging.F(logging.FieldCount, len(res.Transactions)),
		logging.F(logging.FieldDuration, time.Since(start).String()),
	).Info("Processed statement")
	return res, nil
}

func (p *Processor) learnedSnapshot(ctx context.Context) map[string]string {
	if p.store == nil || p.opts.UserID == "" {
		return map[string]string{}
	}
	learned, err := p.store.GetLearnedMap(ctx, p.opts.UserID)
	if err != nil {
		p.logger.WithError(err).WithField(logging.FieldUser, p.opts.UserID).Warn("Failed to load learned classifications, using the local rules only")
		return map[string]string{}
	}
	return learned
}

func (p *Processor) connectivity(ctx context.Context) categorizer.Connectivity {
	if p.opts.Connectivity != nil {
		return p.opts.Connectivity(ctx)
	}
	return categorizer.Connectivity{Available: true, Authenticated: true}
}

// ErrNoStore is returned by Reclassify when the Processor has no persistence.
var ErrNoStore = errors.New("no store configured for learned classifications")

// Reclassify records category as the learned classification of tx for userID
// and returns tx with the new category, ready to be re-aggregated.
func (p *Processor) Reclassify(ctx context.Context, userID string, tx models.Transaction, category string) (models.Transaction, error) {
	if !models.IsValidCategory(category) {
		return tx, fmt.Errorf("unknown category %q", category)
	}
	if p.store == nil {
		return tx, ErrNoStore
	}
	key := categorizer.LearnedKey(tx.Description, tx.Concept)
	if err := p.store.SetLearnedEntry(ctx, userID, key, category); err != nil {
		return tx, fmt.Errorf("error saving learned classification: %w", err)
	}
	p.logger.WithFields(
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldLearnedKey, key),
		logging.F(logging.FieldCategory, category),
	).Info("Learned classification updated")
	tx.Category = category
	return tx, nil
}
