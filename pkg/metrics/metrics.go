// Package metrics counts activation, merge and import outcomes.
//
// Each Recorder owns its registry, so sessions and tests never share
// counters. The CLI can dump a registry in the node exporter textfile format.
package metrics

import (
	"time"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder holds the extman collectors.
type Recorder struct {
	Registry *prometheus.Registry

	operations    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	imports       *prometheus.CounterVec
	resolveTime   prometheus.Histogram
	active        prometheus.Gauge
	explicit      prometheus.Gauge
	mergeWarnings prometheus.Gauge
	mergeErrors   prometheus.Gauge
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extman_operations_total",
				Help: "Number of state transitions by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extman_operation_failures_total",
				Help: "Number of failed state transitions by error code.",
			},
			[]string{"code"},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extman_import_attempts_total",
				Help: "Number of import strategy attempts by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		resolveTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extman_transition_duration_seconds",
				Help:    "Time taken to resolve, order and merge one transition.",
				Buckets: prometheus.DefBuckets,
			},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extman_active_extensions",
			Help: "Number of active extensions after the last transition.",
		}),
		explicit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extman_explicit_extensions",
			Help: "Number of explicitly activated extensions after the last transition.",
		}),
		mergeWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extman_merge_warnings",
			Help: "Number of warnings in the last merged configuration.",
		}),
		mergeErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extman_merge_errors",
			Help: "Number of errors in the last merged configuration.",
		}),
	}
	r.Registry.MustRegister(
		r.operations,
		r.failures,
		r.imports,
		r.resolveTime,
		r.active,
		r.explicit,
		r.mergeWarnings,
		r.mergeErrors,
	)
	return r
}

// Operation records one transition attempt. A nil err counts as success.
func (r *Recorder) Operation(op string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.resolveTime.Observe(time.Since(started).Seconds())
	if err != nil {
		r.operations.WithLabelValues(op, OutcomeFailed).Inc()
		r.failures.WithLabelValues(string(errors.GetErrorCode(err))).Inc()
		return
	}
	r.operations.WithLabelValues(op, OutcomeOK).Inc()
}

// Import records one strategy attempt.
func (r *Recorder) Import(strategy string, ok bool) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	r.imports.WithLabelValues(strategy, outcome).Inc()
}

// State records the size of the committed state and its merge.
func (r *Recorder) State(active, explicit, warnings, errs int) {
	if r == nil {
		return
	}
	r.active.Set(float64(active))
	r.explicit.Set(float64(explicit))
	r.mergeWarnings.Set(float64(warnings))
	r.mergeErrors.Set(float64(errs))
}

// WriteTextfile dumps the registry to path in the textfile collector format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write metrics to %s", path).
			WithDetail("path", path)
	}
	return nil
}
