package categorizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/parsererror"

	"golang.org/x/sync/errgroup"
)

// Batch defaults.
const (
	DefaultBatchSize  = 5
	DefaultRoundPause = 500 * time.Millisecond
)

// Diagnostic summarizes how a remote classification batch went.
type Diagnostic string

const (
	DiagnosticOK       Diagnostic = "ok"
	DiagnosticPartial  Diagnostic = "partial_failure"
	ServiceUnavailable Diagnostic = "service_unavailable"
	ServiceRejected    Diagnostic = "service_rejected"
)

// BatchConfig configures a BatchRunner.
type BatchConfig struct {
	UserID     string
	Size       int
	RoundPause time.Duration
	Allowed    []string
}

// BatchOutcome is the result of BatchRunner.Run.
type BatchOutcome struct {
	Transactions []models.Transaction
	Processed    int
	Errors       int
	Sources      map[Source]int
	// NewEntries holds the learned entries recorded for remote answers.
	NewEntries map[string]string
	Diagnostic Diagnostic
}

// Message renders the outcome as actionable text for the user.
func (o BatchOutcome) Message() string {
	total := len(o.Transactions)
	switch o.Diagnostic {
	case ServiceUnavailable:
		return "no transaction could be classified remotely: the service is unreachable or not authenticated; check GEMINI_API_KEY and the network connection"
	case ServiceRejected:
		return "no transaction could be classified remotely: the service answered but rejected every request; check the API key quota and the model name"
	case DiagnosticPartial:
		return fmt.Sprintf("classification finished with %d errors: %d/%d transactions processed, the rest used the local rules", o.Errors, o.Processed, total)
	}
	return fmt.Sprintf("classification finished: %d transactions processed", o.Processed)
}

// BatchRunner classifies transactions remotely in bounded concurrent rounds.
// Learned entries short-circuit the remote call; failures fall back to the
// local rules without stopping the batch.
type BatchRunner struct {
	remote RemoteClassifier
	writer LearnedWriter
	cfg    BatchConfig
	logger logging.Logger
}

// NewBatchRunner creates a BatchRunner. writer may be nil.
func NewBatchRunner(remote RemoteClassifier, writer LearnedWriter, cfg BatchConfig, logger logging.Logger) *BatchRunner {
	if cfg.Size <= 0 {
		cfg.Size = DefaultBatchSize
	}
	if cfg.RoundPause < 0 {
		cfg.RoundPause = 0
	}
	if len(cfg.Allowed) == 0 {
		cfg.Allowed = models.AllCategories
	}
	return &BatchRunner{remote: remote, writer: writer, cfg: cfg, logger: logging.OrDefault(logger)}
}

// itemResult is written by exactly one goroutine, at its own index.
type itemResult struct {
	category string
	source   Source
	err      error
}

// Run classifies a copy of txs. learned is only read.
func (r *BatchRunner) Run(ctx context.Context, txs []models.Transaction, learned map[string]string, conn Connectivity) BatchOutcome {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	results := make([]itemResult, len(txs))

	for start := 0; start < len(out); start += r.cfg.Size {
		if err := ctx.Err(); err != nil {
			r.fail(out, results, start, err)
			break
		}
		end := min(start+r.cfg.Size, len(out))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = r.classifyOne(ctx, out[i], learned, conn)
				return nil
			})
		}
		_ = g.Wait()

		r.logger.WithFields(
			logging.F(logging.FieldRound, start/r.cfg.Size+1),
			logging.F(logging.FieldCount, end-start),
		).Debug("Classification round finished")

		if end < len(out) && r.cfg.RoundPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.RoundPause):
			}
		}
	}

	return r.collect(ctx, out, results, conn)
}

// fail marks every transaction from start on as failed with err.
func (r *BatchRunner) fail(out []models.Transaction, results []itemResult, start int, err error) {
	for i := start; i < len(out); i++ {
		category, _ := RulesCategory(out[i])
		results[i] = itemResult{category: category, source: SourceRules, err: err}
	}
}

func (r *BatchRunner) classifyOne(ctx context.Context, tx models.Transaction, learned map[string]string, conn Connectivity) itemResult {
	if category, ok := lookupLearned(LearnedKey(tx.Description, tx.Concept), learned); ok {
		return itemResult{category: category, source: SourceLearned}
	}

	var err error
	switch {
	case !conn.Ready():
		err = &parsererror.RemoteClassificationError{
			Kind: parsererror.RemoteUnavailable,
			Err:  errors.New("remote classifier is unreachable or not authenticated"),
		}
	case r.remote == nil:
		err = &parsererror.RemoteClassificationError{
			Kind: parsererror.RemoteUnavailable,
			Err:  errors.New("remote classifier is not configured"),
		}
	default:
		var category string
		category, err = r.remote.ClassifyRemote(ctx, tx, r.cfg.Allowed)
		if err == nil {
			return itemResult{category: category, source: SourceRemote}
		}
	}

	r.logger.WithError(err).WithField(logging.FieldDescription, tx.Description).
		Warn("Remote classification failed, using local rules")
	category, _ := RulesCategory(tx)
	return itemResult{category: category, source: SourceRules, err: err}
}

// collect applies the results, records learned entries and builds the outcome.
func (r *BatchRunner) collect(ctx context.Context, out []models.Transaction, results []itemResult, conn Connectivity) BatchOutcome {
	outcome := BatchOutcome{
		Transactions: out,
		Sources:      make(map[Source]int),
		NewEntries:   make(map[string]string),
	}
	unavailable := 0
	for i, res := range results {
		out[i].Category = res.category
		outcome.Sources[res.source]++
		if res.err != nil {
			outcome.Errors++
			var rce *parsererror.RemoteClassificationError
			if !errors.As(res.err, &rce) || rce.Kind == parsererror.RemoteUnavailable {
				unavailable++
			}
			continue
		}
		outcome.Processed++
		if res.source == SourceRemote {
			key := LearnedKey(out[i].Description, out[i].Concept)
			outcome.NewEntries[key] = res.category
			r.learn(ctx, key, res.category)
		}
	}

	switch {
	case outcome.Errors == 0:
		outcome.Diagnostic = DiagnosticOK
	case outcome.Processed == 0 && (!conn.Ready() || unavailable == outcome.Errors):
		outcome.Diagnostic = ServiceUnavailable
	case outcome.Processed == 0:
		outcome.Diagnostic = ServiceRejected
	default:
		outcome.Diagnostic = DiagnosticPartial
	}

	r.logger.WithFields(
		logging.F(logging.FieldCount, outcome.Processed),
		logging.F(logging.FieldErrors, outcome.Errors),
		logging.F("diagnostic", string(outcome.Diagnostic)),
	).Info("Remote classification batch finished")
	return outcome
}

// learn records one learned entry. Failures are logged, never returned.
func (r *BatchRunner) learn(ctx context.Context, key, category string) {
	if r.writer == nil {
		return
	}
	if err := r.writer.SetLearnedEntry(ctx, r.cfg.UserID, key, category); err != nil {
		r.logger.WithError(err).WithField(logging.FieldLearnedKey, key).Warn("Failed to save learned classification")
	}
}
