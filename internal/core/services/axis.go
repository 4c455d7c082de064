package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// axisStage labels each poem with its semantic axis.
type axisStage struct {
	stageIO
	gen     *GenerationClient
	prompts *PromptRenderer
	input   string
	output  string
	pace    time.Duration
}

// axisConfig locates the axis stage files.
type axisConfig struct {
	Input  string
	Output string
	Pace   time.Duration
}

// newAxisStage creates the axis runner.
func newAxisStage(sio stageIO, gen *GenerationClient, prompts *PromptRenderer, cfg axisConfig) *axisStage {
	return &axisStage{
		stageIO: sio,
		gen:     gen.ForStage(domain.StageAxis),
		prompts: prompts,
		input:   cfg.Input,
		output:  cfg.Output,
		pace:    cfg.Pace,
	}
}

// Run processes every poem not yet in the output file.
func (a *axisStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageAxis, a.input, a.output)

	units, err := loadRecords[domain.RawUnit](ctx, a.store, a.input)
	if err != nil {
		return report, fmt.Errorf("load raw corpus: %w", err)
	}
	poems := domain.GroupPoems(units)
	report.Total = len(poems)

	done, out, err := a.openOutput(ctx, a.output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	meta := domain.Meta{
		domain.MetaModel:         a.gen.Model(),
		domain.MetaPromptVersion: a.prompts.Version(),
	}

	for _, poem := range poems {
		key := domain.PoemKey(poem.ID)
		if done.Has(key) {
			report.Skipped++
			continue
		}

		prompt, err := a.prompts.Axis(poem)
		if err != nil {
			return report, err
		}
		axis, err := a.gen.Text(ctx, a.prompts.System(), prompt)
		if err != nil {
			return report, fmt.Errorf("%s: %w", key, err)
		}
		if axis == "" {
			return report, fmt.Errorf("%w: %s", domain.ErrEmptyAxis, key)
		}
		if strings.Contains(axis, "\n") {
			logger.Warn("%s: axis spans several lines", key)
		}

		rec := domain.AxisAnnotation{PoemID: poem.ID, GhazalAxis: axis, Meta: meta.Merge(nil)}
		if err := out.Append(rec); err != nil {
			return report, fmt.Errorf("append %s: %w", key, err)
		}
		report.Processed++
		a.report(report, domain.Progress{Stage: domain.StageAxis, Outcome: domain.OutcomeOK, Key: key, After: axis})

		if err := a.sleep(ctx, a.pace); err != nil {
			return report, err
		}
	}

	return report, nil
}
