// Package prometheus records pipeline outcomes as Prometheus metrics and
// exports them in the node-exporter textfile format.
package prometheus

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

const namespace = "yaar"

// Recorder holds the pipeline metrics on a private registry.
type Recorder struct {
	registry *prom.Registry
	path     string

	// outcomes counts per-unit outcomes.
	// Labels: stage, outcome (OK, REJECT, BLANK, ...)
	outcomes *prom.CounterVec

	// stageDuration measures whole stage invocations.
	// Labels: stage, status (succeeded, failed)
	stageDuration *prom.HistogramVec

	// lastRun is the unix time of the last finished invocation.
	// Labels: stage
	lastRun *prom.GaugeVec

	mu sync.Mutex
}

// NewRecorder creates a recorder. When path is non-empty, Flush writes the
// registry to that file.
func NewRecorder(path string) *Recorder {
	reg := prom.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		path:     path,
		outcomes: factory.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "units_total",
			Help:      "Units processed by outcome",
		}, []string{"stage", "outcome"}),
		stageDuration: factory.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage invocation duration in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"stage", "status"}),
		lastRun: factory.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the stage last finished",
		}, []string{"stage"}),
	}
}

// ObserveOutcome counts one per-unit outcome.
func (r *Recorder) ObserveOutcome(stage domain.Stage, outcome domain.Outcome) {
	r.outcomes.WithLabelValues(stage.String(), string(outcome)).Inc()
}

// ObserveStage records a finished stage invocation.
func (r *Recorder) ObserveStage(stage domain.Stage, elapsed time.Duration, err error) {
	status := string(domain.RunStatusSucceeded)
	if err != nil {
		status = string(domain.RunStatusFailed)
	}
	r.stageDuration.WithLabelValues(stage.String(), status).Observe(elapsed.Seconds())
	r.lastRun.WithLabelValues(stage.String()).SetToCurrentTime()
}

// Flush writes the metrics to the textfile, if one was configured.
func (r *Recorder) Flush() error {
	if r.path == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := prom.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Gatherer exposes the registry for inspection.
func (r *Recorder) Gatherer() prom.Gatherer {
	return r.registry
}
