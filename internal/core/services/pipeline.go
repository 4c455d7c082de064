package services

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driving"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// stageRunner is one runnable stage.
type stageRunner interface {
	Run(ctx context.Context) (*domain.StageReport, error)
}

// PipelineConfig holds the dependencies of a Pipeline.
// LLM and Embedder are optional; stages that need a missing one fail.
type PipelineConfig struct {
	Store      driven.RecordStore
	Rejections driven.RejectionLog
	LLM        driven.LLMService
	Embedder   driven.EmbeddingService
	Prompts    domain.PromptSet
	Settings   domain.AppSettings
	Layout     domain.Layout
	Progress   driven.ProgressReporter
	Metrics    driven.MetricsRecorder
	Journal    driven.RunJournal

	// EmbedBatchSize overrides DefaultEmbedBatchSize when positive.
	EmbedBatchSize int
}

// Pipeline runs the annotation stages over a data directory.
type Pipeline struct {
	cfg      PipelineConfig
	sio      stageIO
	policy   RetryPolicy
	renderer *PromptRenderer
	gen      *GenerationClient
	now      func() time.Time
}

// NewPipeline creates a pipeline. The prompt set is compiled up front so a
// broken template fails before any stage starts.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: record store is required", domain.ErrInvalidInput)
	}
	renderer, err := NewPromptRenderer(cfg.Prompts)
	if err != nil {
		return nil, fmt.Errorf("compile prompts %s: %w", cfg.Prompts.Version, err)
	}

	sio := newStageIO(cfg.Store, cfg.Progress, cfg.Metrics)
	policy := NewRetryPolicy(cfg.Settings.Retry)

	p := &Pipeline{
		cfg:      cfg,
		sio:      sio,
		policy:   policy,
		renderer: renderer,
		now:      time.Now,
	}
	if cfg.LLM != nil {
		p.gen = NewGenerationClient(cfg.LLM, GenerationConfig{
			Sampling:          cfg.Settings.Sampling,
			Policy:            policy,
			RequestsPerSecond: cfg.Settings.Retry.RequestsPerSecond,
		}, sio.progress)
	}
	return p, nil
}

// RunStage runs one stage and journals it.
func (p *Pipeline) RunStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error) {
	runner, err := p.runner(stage)
	if err != nil {
		return nil, err
	}

	run := &domain.StageRun{
		ID:            uuid.NewString(),
		Stage:         stage,
		Model:         p.model(stage),
		PromptVersion: p.renderer.Version(),
		Status:        domain.RunStatusRunning,
		StartedAt:     p.now().UTC(),
	}
	if p.cfg.Journal != nil {
		if err := p.cfg.Journal.Start(ctx, run); err != nil {
			return nil, fmt.Errorf("journal start: %w", err)
		}
	}

	logger.Section(stage.Description())
	started := p.now()
	report, runErr := runner.Run(ctx)
	elapsed := p.now().Sub(started)
	if report == nil {
		report = domain.NewStageReport(stage, "", "")
	}
	report.Duration = elapsed

	p.sio.metrics.ObserveStage(stage, elapsed, runErr)
	p.finish(ctx, run, report, runErr)
	p.sio.progress.Summary(report)

	if runErr != nil {
		logger.Error("%s failed after %d records: %v", stage, report.Processed, runErr)
		return report, fmt.Errorf("%s: %w", stage, runErr)
	}
	logger.Info("%s done: %d processed, %d skipped", stage, report.Processed, report.Skipped)
	return report, nil
}

// RunStages runs stages in order and stops at the first failure.
func (p *Pipeline) RunStages(ctx context.Context, stages []domain.Stage) ([]*domain.StageReport, error) {
	reports := make([]*domain.StageReport, 0, len(stages))
	for _, stage := range stages {
		report, err := p.RunStage(ctx, stage)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// finish closes the journal entry. A journal failure is logged, not returned,
// since the stage output is already on disk.
func (p *Pipeline) finish(ctx context.Context, run *domain.StageRun, report *domain.StageReport, runErr error) {
	finished := p.now().UTC()
	run.FinishedAt = &finished
	run.Input = report.Input
	run.Output = report.Output
	run.Total = report.Total
	run.Processed = report.Processed
	run.Skipped = report.Skipped
	run.Counts = maps.Clone(report.Counts)
	run.Status = domain.RunStatusSucceeded
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}

	if p.cfg.Journal == nil {
		return
	}
	// The caller's context may already be cancelled; the record must still land.
	if err := p.cfg.Journal.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("journal finish %s: %v", run.ID, err)
	}
}

func (p *Pipeline) model(stage domain.Stage) string {
	switch {
	case stage.UsesLLM() && p.cfg.LLM != nil:
		return p.cfg.LLM.ModelName()
	case stage == domain.StageEmbed && p.cfg.Embedder != nil:
		return p.cfg.Embedder.ModelName()
	default:
		return ""
	}
}

func (p *Pipeline) runner(stage domain.Stage) (stageRunner, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: stage %q", domain.ErrUnsupportedType, stage)
	}
	if stage.UsesLLM() && p.gen == nil {
		return nil, fmt.Errorf("%w: stage %s needs a generation model", domain.ErrLLMUnavailable, stage)
	}
	if stage == domain.StageEmbed && p.cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: stage %s needs an embedding model", domain.ErrEmbeddingUnavailable, stage)
	}

	l := p.cfg.Layout
	pace := p.cfg.Settings.Pacing

	switch stage {
	case domain.StageAxis:
		return newAxisStage(p.sio, p.gen, p.renderer, axisConfig{
			Input:  l.RawCorpus(),
			Output: l.Axis(),
			Pace:   pace.Axis,
		}), nil
	case domain.StageBayt:
		if p.cfg.Rejections == nil {
			return nil, fmt.Errorf("%w: stage %s needs a rejection log", domain.ErrInvalidInput, stage)
		}
		return newBaytStage(p.sio, p.gen, p.renderer, p.cfg.Rejections, baytConfig{
			Raw:      l.RawCorpus(),
			Axis:     l.Axis(),
			Output:   l.BaytV1(),
			Pace:     pace.Bayt,
			Cooldown: pace.RejectCooldown,
		}), nil
	case domain.StageRepair:
		return newRepairStage(p.sio, p.gen, p.renderer, repairConfig{
			Raw:    l.RawCorpus(),
			Input:  l.BaytV1(),
			Output: l.BaytV11(),
			Pace:   pace.Repair,
		}), nil
	case domain.StageNormalizeExplicit:
		return newNormalizeStage(p.sio, stage, ExplicitDirectivePrefixes, l.BaytV11(), l.BaytV12()), nil
	case domain.StageNormalizeResidual:
		return newNormalizeStage(p.sio, stage, ResidualDirectivePrefixes, l.BaytV12(), l.BaytV13()), nil
	case domain.StageDataset:
		return newDatasetStage(p.sio, datasetConfig{
			Raw:       l.RawCorpus(),
			Canonical: l.BaytV13(),
			Lenses:    l.Lenses(),
			Output:    l.Dataset(),
		}), nil
	case domain.StageEmbed:
		return newEmbedStage(p.sio, p.cfg.Embedder, p.policy, p.cfg.EmbedBatchSize, l.Dataset(), l.Embeddings()), nil
	}
	return nil, fmt.Errorf("%w: stage %q", domain.ErrUnsupportedType, stage)
}

// RunHistory exposes the run journal.
type RunHistory struct {
	journal driven.RunJournal
}

// Ensure RunHistory implements the interface.
var _ driving.RunHistoryService = (*RunHistory)(nil)

// NewRunHistory creates a run history service.
func NewRunHistory(journal driven.RunJournal) *RunHistory {
	return &RunHistory{journal: journal}
}

// List returns the most recent runs, newest first.
func (h *RunHistory) List(ctx context.Context, limit int) ([]domain.StageRun, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidInput)
	}
	return h.journal.List(ctx, limit)
}

// Get returns one run by id.
func (h *RunHistory) Get(ctx context.Context, id string) (*domain.StageRun, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty run id", domain.ErrInvalidInput)
	}
	return h.journal.Get(ctx, id)
}
