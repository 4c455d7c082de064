package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// eachRecord decodes every line of path into T.
func eachRecord[T any](ctx context.Context, store driven.RecordStore, path string, fn func(T) error) error {
	line := 0
	return store.Each(ctx, path, func(raw json.RawMessage) error {
		line++
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: %s record %d: %w", domain.ErrCorruptRecord, path, line, err)
		}
		return fn(rec)
	})
}

// loadRecords reads every record of path into memory.
func loadRecords[T any](ctx context.Context, store driven.RecordStore, path string) ([]T, error) {
	var out []T
	err := eachRecord(ctx, store, path, func(rec T) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// loadRawText maps each raw couplet key to its text.
func loadRawText(ctx context.Context, store driven.RecordStore, path string) (map[domain.UnitKey]string, error) {
	text := make(map[domain.UnitKey]string)
	err := eachRecord(ctx, store, path, func(u domain.RawUnit) error {
		text[u.Key()] = u.Text
		return nil
	})
	return text, err
}

// stageIO is the state shared by every record-to-record stage.
type stageIO struct {
	store    driven.RecordStore
	progress driven.ProgressReporter
	metrics  driven.MetricsRecorder
	sleep    sleeper
}

func newStageIO(store driven.RecordStore, progress driven.ProgressReporter, metrics driven.MetricsRecorder) stageIO {
	if progress == nil {
		progress = nopProgress{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return stageIO{store: store, progress: progress, metrics: metrics, sleep: sleepWithCtx}
}

// report counts an outcome and forwards it to progress and metrics.
func (s stageIO) report(r *domain.StageReport, p domain.Progress) {
	r.Record(p.Outcome)
	s.progress.Report(p)
	s.metrics.ObserveOutcome(p.Stage, p.Outcome)
}

// openOutput returns the resume frontier of path and an appender positioned after it.
func (s stageIO) openOutput(ctx context.Context, path string) (domain.KeySet, driven.RecordAppender, error) {
	done, err := s.store.DoneKeys(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("read done keys: %w", err)
	}
	out, err := s.store.OpenAppender(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return done, out, nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveOutcome(domain.Stage, domain.Outcome)     {}
func (nopMetrics) ObserveStage(domain.Stage, time.Duration, error) {}
func (nopMetrics) Flush() error                                    { return nil }
