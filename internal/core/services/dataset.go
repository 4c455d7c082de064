package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// DefaultEmbedBatchSize is the number of rows embedded per request.
const DefaultEmbedBatchSize = 64

// datasetStage joins raw couplet text, canonical annotations and optional
// lens tags into the retrieval dataset.
type datasetStage struct {
	stageIO
	cfg datasetConfig
}

type datasetConfig struct {
	Raw       string
	Canonical string
	Lenses    string
	Output    string
}

func newDatasetStage(sio stageIO, cfg datasetConfig) *datasetStage {
	return &datasetStage{stageIO: sio, cfg: cfg}
}

// Run writes one dataset row per canonical annotation.
func (d *datasetStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageDataset, d.cfg.Canonical, d.cfg.Output)

	text, err := loadRawText(ctx, d.store, d.cfg.Raw)
	if err != nil {
		return report, fmt.Errorf("load raw corpus: %w", err)
	}

	lenses := make(map[domain.UnitKey]string)
	if d.store.Exists(d.cfg.Lenses) {
		err := eachRecord(ctx, d.store, d.cfg.Lenses, func(tag domain.LensTag) error {
			lenses[tag.Key()] = tag.Lens
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("load lenses: %w", err)
		}
	} else {
		logger.Debug("no lens file at %s", d.cfg.Lenses)
	}

	done, out, err := d.openOutput(ctx, d.cfg.Output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	err = eachRecord(ctx, d.store, d.cfg.Canonical, func(rec domain.BaytAnnotation) error {
		report.Total++
		key := rec.Key()
		if done.Has(key) {
			report.Skipped++
			return nil
		}

		bayt, ok := text[key]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrMissingRawUnit, key)
		}
		row := domain.DatasetRow{
			PoemID:     rec.PoemID,
			BaytID:     rec.BaytID,
			Text:       bayt,
			BaytHint:   rec.BaytHint,
			Affect:     rec.Affect,
			GhazalAxis: rec.GhazalAxis,
		}
		if row.Affect == nil {
			row.Affect = []string{}
		}
		if lens, ok := lenses[key]; ok {
			row.Lens = &lens
		}

		if err := out.Append(row); err != nil {
			return fmt.Errorf("append %s: %w", key, err)
		}
		report.Processed++
		d.report(report, domain.Progress{Stage: domain.StageDataset, Outcome: domain.OutcomeOK, Key: key})
		return nil
	})
	return report, err
}

// embedStage embeds every dataset row.
type embedStage struct {
	stageIO
	embedder  driven.EmbeddingService
	policy    RetryPolicy
	batchSize int
	input     string
	output    string
}

func newEmbedStage(
	sio stageIO,
	embedder driven.EmbeddingService,
	policy RetryPolicy,
	batchSize int,
	input, output string,
) *embedStage {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &embedStage{
		stageIO:   sio,
		embedder:  embedder,
		policy:    policy,
		batchSize: batchSize,
		input:     input,
		output:    output,
	}
}

// Run embeds rows missing from the output in batches.
func (e *embedStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageEmbed, e.input, e.output)

	rows, err := loadRecords[domain.DatasetRow](ctx, e.store, e.input)
	if err != nil {
		return report, fmt.Errorf("load dataset: %w", err)
	}
	report.Total = len(rows)

	done, out, err := e.openOutput(ctx, e.output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	pending := make([]domain.DatasetRow, 0, len(rows))
	for _, row := range rows {
		if done.Has(row.Key()) {
			report.Skipped++
			continue
		}
		pending = append(pending, row)
	}

	for start := 0; start < len(pending); start += e.batchSize {
		batch := pending[start:min(start+e.batchSize, len(pending))]
		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = row.EmbeddingText()
		}

		vectors, err := e.embed(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embed rows %d-%d: %w", start, start+len(batch)-1, err)
		}
		if len(vectors) != len(batch) {
			return report, fmt.Errorf("embed rows %d-%d: got %d vectors", start, start+len(batch)-1, len(vectors))
		}

		for i, row := range batch {
			rec := domain.EmbeddingRecord{PoemID: row.PoemID, BaytID: row.BaytID, Embedding: vectors[i]}
			if err := out.Append(rec); err != nil {
				return report, fmt.Errorf("append %s: %w", row.Key(), err)
			}
			report.Processed++
			e.report(report, domain.Progress{Stage: domain.StageEmbed, Outcome: domain.OutcomeOK, Key: row.Key()})
		}
	}

	return report, nil
}

func (e *embedStage) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for attempt := 1; ; attempt++ {
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		if e.policy.exhausted(attempt) {
			return nil, fmt.Errorf("%w: after %d attempts: %w", domain.ErrRetriesExhausted, attempt, err)
		}
		wait := e.policy.capped(e.policy.RateLimitWait)
		e.progress.Report(domain.Progress{Stage: domain.StageEmbed, Outcome: domain.OutcomeRateLimit, Attempt: attempt, Wait: wait})
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}
