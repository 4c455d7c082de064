package driven

import (
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// ProgressReporter prints per-unit progress lines.
type ProgressReporter interface {
	Report(p domain.Progress)
	Summary(r *domain.StageReport)
}

// MetricsRecorder counts pipeline outcomes.
type MetricsRecorder interface {
	// ObserveOutcome counts one per-unit outcome.
	ObserveOutcome(stage domain.Stage, outcome domain.Outcome)

	// ObserveStage records a completed stage invocation.
	ObserveStage(stage domain.Stage, elapsed time.Duration, err error)

	// Flush exports the collected metrics, if the recorder has a sink.
	Flush() error
}
