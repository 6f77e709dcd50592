// Package container provides dependency injection for the statement-csv application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/config"
	"fjacquet/statement-csv/internal/export"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/metrics"
	"fjacquet/statement-csv/internal/pdfparser"
	"fjacquet/statement-csv/internal/pipeline"
	"fjacquet/statement-csv/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
// Fields are private and only reachable through getter methods.
type Container struct {
	logger  logging.Logger
	config  *config.Config
	store   store.Persistence
	source  pdfparser.GlyphSource
	metrics *metrics.Recorder

	// remote is nil when AI is disabled or the client could not be created.
	remoteOnce sync.Once
	remote     categorizer.RemoteClassifier
	remoteErr  error
}

// Option overrides a dependency, mostly for tests.
type Option func(*Container)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithStore replaces the YAML store under the data directory.
func WithStore(s store.Persistence) Option {
	return func(c *Container) { c.store = s }
}

// WithGlyphSource replaces the PDF glyph reader.
func WithGlyphSource(source pdfparser.GlyphSource) Option {
	return func(c *Container) { c.source = source }
}

// WithRemote replaces the Gemini client.
func WithRemote(remote categorizer.RemoteClassifier) Option {
	return func(c *Container) { c.remote = remote }
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Container{config: cfg, metrics: metrics.NewRecorder()}
	for _, opt := range opts {
		opt(c)
	}

	// Create logger first as it's needed by other components
	if c.logger == nil {
		c.logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}
	if c.store == nil {
		c.store = store.NewYAMLStore(cfg.DataDir(), c.logger)
	}
	if c.source == nil {
		c.source = pdfparser.NewLedongthucSource(c.logger)
	}

	if cfg.AI.Enabled {
		_ = c.EnableRemote()
	}

	c.logger.Debug("Container initialized successfully",
		logging.F("ai_enabled", cfg.AI.Enabled),
		logging.F("data_dir", cfg.DataDir()))
	return c, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the persistence used for batches and learned entries.
func (c *Container) GetStore() store.Persistence {
	return c.store
}

// GetMetrics returns the metrics recorder.
func (c *Container) GetMetrics() *metrics.Recorder {
	return c.metrics
}

// EnableRemote creates the Gemini client once, unless one was injected, and
// returns why it could not be created.
func (c *Container) EnableRemote() error {
	c.remoteOnce.Do(func() {
		if c.remote != nil {
			return
		}
		remote, err := categorizer.NewGeminiClassifier(context.Background(), categorizer.GeminiConfig{
			APIKey:            c.config.AI.APIKey,
			Model:             c.config.AI.Model,
			RequestsPerMinute: c.config.AI.RequestsPerMinute,
			TimeoutSeconds:    c.config.AI.TimeoutSeconds,
			Fallback:          c.config.AI.FallbackCategory,
		}, c.logger)
		if err != nil {
			c.remoteErr = err
			c.logger.WithError(err).Warn("AI categorization unavailable, using the local rules")
			return
		}
		c.remote = remote
	})
	return c.remoteErr
}

// RemoteError returns why the remote classifier could not be created, if it
// was requested and failed.
func (c *Container) RemoteError() error {
	return c.remoteErr
}

// GetRemote returns the remote classifier, or nil when AI is not available.
func (c *Container) GetRemote() categorizer.RemoteClassifier {
	return c.remote
}

// Connectivity reports whether the remote classifier can be called now.
func (c *Container) Connectivity(_ context.Context) categorizer.Connectivity {
	ready := c.remote != nil
	return categorizer.Connectivity{Available: ready, Authenticated: ready}
}

// ProcessorOptions selects per-run behavior of NewProcessor.
type ProcessorOptions struct {
	UserID string
	UseAI  bool
	Save   bool
}

// NewProcessor builds a statement pipeline. With UseAI the remote rounds run
// even when the client is missing, so that the outcome reports the service
// as unavailable instead of silently skipping it.
func (c *Container) NewProcessor(opts ProcessorOptions) *pipeline.Processor {
	if opts.UserID == "" {
		opts.UserID = c.config.Data.User
	}
	po := pipeline.Options{
		UserID:        opts.UserID,
		LineThreshold: c.config.Extraction.LineThreshold,
		Save:          opts.Save,
		Metrics:       c.metrics,
	}
	if opts.UseAI {
		_ = c.EnableRemote()
		po.Remote = categorizer.NewBatchRunner(c.remote, c.store, categorizer.BatchConfig{
			UserID:     opts.UserID,
			Size:       c.config.AI.BatchSize,
			RoundPause: time.Duration(c.config.AI.RoundPauseMS) * time.Millisecond,
		}, c.logger)
		po.Connectivity = c.Connectivity
	}
	return pipeline.NewProcessor(c.source, c.store, po, c.logger)
}

// NewClassifier returns the local classifier: the user's learned entries,
// then the keyword rules, then the remote strategy when available.
func (c *Container) NewClassifier(ctx context.Context, userID string) (*categorizer.Classifier, error) {
	learned, err := c.store.GetLearnedMap(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading learned classifications: %w", err)
	}
	var extra []categorizer.CategorizationStrategy
	if c.remote != nil {
		extra = append(extra, categorizer.NewRemoteStrategy(c.remote, nil, c.logger))
	}
	return categorizer.NewClassifier(categorizer.NewLearnedStrategy(learned, c.logger), c.logger, extra...), nil
}

// CSVWriter returns a CSV writer configured from the csv section.
func (c *Container) CSVWriter() *export.CSVWriter {
	return export.NewCSVWriter(export.CSVOptions{Delimiter: c.config.Delimiter(), BOM: c.config.CSV.BOM}, c.logger)
}

// XLSXWriter returns the spreadsheet writer.
func (c *Container) XLSXWriter() *export.XLSXWriter {
	return export.NewXLSXWriter(c.logger)
}

// Close releases the remote client and writes the metrics textfile.
func (c *Container) Close() error {
	var errs []error
	if closer, ok := c.remote.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing AI client: %w", err))
		}
	}
	if err := c.metrics.WriteTextfile(c.config.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
