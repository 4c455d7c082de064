package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

const (
	// repairMaxWords is the longest hint left untouched.
	repairMaxWords = 8
	repairRule     = "bayt_hint_len>8"
)

// repairStage shortens overlong couplet hints (v1 to v1.1).
type repairStage struct {
	stageIO
	gen     *GenerationClient
	prompts *PromptRenderer
	cfg     repairConfig
}

type repairConfig struct {
	Raw    string
	Input  string
	Output string
	Pace   time.Duration
}

func newRepairStage(sio stageIO, gen *GenerationClient, prompts *PromptRenderer, cfg repairConfig) *repairStage {
	return &repairStage{
		stageIO: sio,
		gen:     gen.ForStage(domain.StageRepair),
		prompts: prompts,
		cfg:     cfg,
	}
}

// Run re-emits every input record, replacing long hints with a shorter
// generated one when the candidate is non-empty and has fewer words.
func (r *repairStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageRepair, r.cfg.Input, r.cfg.Output)

	text, err := loadRawText(ctx, r.store, r.cfg.Raw)
	if err != nil {
		return report, fmt.Errorf("load raw corpus: %w", err)
	}

	done, out, err := r.openOutput(ctx, r.cfg.Output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	err = eachRecord(ctx, r.store, r.cfg.Input, func(rec domain.BaytAnnotation) error {
		report.Total++
		key := rec.Key()
		if done.Has(key) {
			report.Skipped++
			return nil
		}

		hint, repaired, err := r.repair(ctx, key, text, rec.BaytHint)
		if err != nil {
			return err
		}

		next := rec.WithHint(hint, domain.Meta{
			domain.MetaRepair:     repaired,
			domain.MetaRepairRule: repairRule,
		})
		if err := out.Append(next); err != nil {
			return fmt.Errorf("append %s: %w", key, err)
		}
		report.Processed++

		outcome := domain.OutcomeKept
		if repaired {
			outcome = domain.OutcomeRepaired
		}
		r.report(report, domain.Progress{
			Stage:   domain.StageRepair,
			Outcome: outcome,
			Key:     key,
			Before:  rec.BaytHint,
			After:   hint,
		})

		return r.sleep(ctx, r.cfg.Pace)
	})
	return report, err
}

func (r *repairStage) repair(
	ctx context.Context,
	key domain.UnitKey,
	text map[domain.UnitKey]string,
	old string,
) (string, bool, error) {
	oldWords := len(strings.Fields(old))
	if oldWords <= repairMaxWords {
		return old, false, nil
	}

	bayt, ok := text[key]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", domain.ErrMissingRawUnit, key)
	}
	prompt, err := r.prompts.Repair(bayt, old)
	if err != nil {
		return "", false, err
	}
	candidate, err := r.gen.Text(ctx, r.prompts.RepairSystem(), prompt)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", key, err)
	}

	if candidate != "" && len(strings.Fields(candidate)) < oldWords {
		return candidate, true, nil
	}
	return old, false, nil
}
