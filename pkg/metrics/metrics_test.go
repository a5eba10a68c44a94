package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSeries(t *testing.T, r *metrics.Recorder, name string, want int) {
	t.Helper()
	n, err := promtest.GatherAndCount(r.Registry, name)
	require.NoError(t, err)
	assert.Equal(t, want, n, name)
}

func TestRecorder_Operation(t *testing.T) {
	r := metrics.New()
	start := time.Now()

	r.Operation("activate", start, nil)
	r.Operation("activate", start, errors.New(errors.ErrResolution, "no"))
	r.Operation("activate", start, errors.New(errors.ErrResolution, "still no"))

	assertSeries(t, r, "extman_operations_total", 2)
	assertSeries(t, r, "extman_operation_failures_total", 1)
	assertSeries(t, r, "extman_transition_duration_seconds", 1)
}

func TestRecorder_ImportAndState(t *testing.T) {
	r := metrics.New()
	r.Import("full", false)
	r.Import("sparse", true)
	r.State(8, 2, 1, 0)

	assertSeries(t, r, "extman_import_attempts_total", 2)
	assertSeries(t, r, "extman_active_extensions", 1)
}

func TestRecorder_Nil(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.Operation("activate", time.Now(), nil)
		r.Import("full", true)
		r.State(1, 1, 0, 0)
	})
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := metrics.New()
	r.State(3, 1, 0, 2)
	path := filepath.Join(t.TempDir(), "extman.prom")

	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extman_active_extensions 3")
	assert.Contains(t, string(data), "extman_merge_errors 2")
}
