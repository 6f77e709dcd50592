package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()
	r.Extraction("santander", 12)
	r.Extraction("santander", 3)
	r.Extraction("table", 4)
	r.Classifications(map[string]int{"learned": 2, "rules": 10})
	r.RemoteErrors(3)
	r.RemoteErrors(0)
	r.Failure("no_transactions")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.extractions.WithLabelValues("santander")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.extractions.WithLabelValues("table")))
	assert.Equal(t, 19.0, testutil.ToFloat64(r.transactions))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.classifications.WithLabelValues("rules")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.remoteErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("no_transactions")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Extraction("table", 1)
		r.Classifications(map[string]int{"rules": 1})
		r.RemoteErrors(1)
		r.Failure("x")
	})
	assert.NoError(t, r.WriteTextfile("/nonexistent/metrics.prom"))
	assert.Nil(t, r.Registry())
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Extraction("creand", 2)

	path := filepath.Join(t.TempDir(), "textfile", "statement.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `statement_extractions_total{extractor="creand"} 1`)
	assert.Contains(t, text, "statement_transactions_total 2")
	assert.Contains(t, text, "# TYPE statement_remote_errors_total counter")

	assert.NoError(t, r.WriteTextfile(""), "empty path disables output")
}
