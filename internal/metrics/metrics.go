// Package metrics counts extractions and classifications with Prometheus
// collectors on a private registry, written out as a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/statement-csv/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "statement"

// Recorder holds the application counters. A nil *Recorder ignores every call.
type Recorder struct {
	registry        *prometheus.Registry
	extractions     *prometheus.CounterVec
	transactions    prometheus.Counter
	classifications *prometheus.CounterVec
	remoteErrors    prometheus.Counter
	failures        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Statements whose transactions were recognized, by extractor.",
		}, []string{"extractor"}),
		transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions kept after filtering.",
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Transactions classified, by deciding source.",
		}, []string{"source"}),
		remoteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_errors_total",
			Help:      "Remote classification calls that failed.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Statements that produced no result, by reason.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(r.extractions, r.transactions, r.classifications, r.remoteErrors, r.failures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Extraction records one statement read by extractor with count transactions.
func (r *Recorder) Extraction(extractor string, count int) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(extractor).Inc()
	r.transactions.Add(float64(count))
}

// Classifications adds per-source classification counts.
func (r *Recorder) Classifications(bySource map[string]int) {
	if r == nil {
		return
	}
	for source, n := range bySource {
		r.classifications.WithLabelValues(source).Add(float64(n))
	}
}

// RemoteErrors adds n failed remote calls.
func (r *Recorder) RemoteErrors(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.remoteErrors.Add(float64(n))
}

// Failure records a statement that yielded nothing.
func (r *Recorder) Failure(reason string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(reason).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The write is atomic, so node-exporter never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("error writing metrics textfile: %w", err)
	}
	return nil
}
