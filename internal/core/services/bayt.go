package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// baytMaxAttempts bounds schema rejections per couplet before falling back.
const baytMaxAttempts = 2

// baytStage extracts a hint and up to two affect labels for every couplet.
type baytStage struct {
	stageIO
	gen         *GenerationClient
	prompts     *PromptRenderer
	validator   *SchemaValidator
	rejections  driven.RejectionLog
	cfg         baytConfig
	maxAttempts int
	now         func() time.Time
}

type baytConfig struct {
	Raw      string
	Axis     string
	Output   string
	Pace     time.Duration
	Cooldown time.Duration
}

func newBaytStage(
	sio stageIO,
	gen *GenerationClient,
	prompts *PromptRenderer,
	rejections driven.RejectionLog,
	cfg baytConfig,
) *baytStage {
	return &baytStage{
		stageIO:     sio,
		gen:         gen.ForStage(domain.StageBayt),
		prompts:     prompts,
		validator:   NewSchemaValidator(),
		rejections:  rejections,
		cfg:         cfg,
		maxAttempts: baytMaxAttempts,
		now:         time.Now,
	}
}

// Run annotates every couplet not yet in the output file.
func (b *baytStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageBayt, b.cfg.Raw, b.cfg.Output)

	axes := make(map[int]string)
	err := eachRecord(ctx, b.store, b.cfg.Axis, func(a domain.AxisAnnotation) error {
		axes[a.PoemID] = a.GhazalAxis
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("load axis map: %w", err)
	}

	units, err := loadRecords[domain.RawUnit](ctx, b.store, b.cfg.Raw)
	if err != nil {
		return report, fmt.Errorf("load raw corpus: %w", err)
	}
	report.Total = len(units)

	done, out, err := b.openOutput(ctx, b.cfg.Output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	meta := domain.Meta{
		domain.MetaModel:         b.gen.Model(),
		domain.MetaPromptVersion: b.prompts.Version(),
	}

	for _, unit := range units {
		key := unit.Key()
		if done.Has(key) {
			report.Skipped++
			continue
		}
		axis, ok := axes[unit.PoemID]
		if !ok {
			return report, fmt.Errorf("%w: %s", domain.ErrMissingAxis, domain.PoemKey(unit.PoemID))
		}

		candidate, outcome, err := b.annotate(ctx, report, unit, axis)
		if err != nil {
			return report, fmt.Errorf("%s: %w", key, err)
		}

		rec := domain.BaytAnnotation{
			PoemID:     unit.PoemID,
			BaytID:     unit.BaytID,
			BaytHint:   candidate.BaytHint,
			Affect:     candidate.Affect,
			GhazalAxis: axis,
			Meta:       meta.Merge(nil),
		}
		if err := out.Append(rec); err != nil {
			return report, fmt.Errorf("append %s: %w", key, err)
		}
		report.Processed++
		b.report(report, domain.Progress{Stage: domain.StageBayt, Outcome: outcome, Key: key, Affect: rec.Affect})

		if err := b.sleep(ctx, b.cfg.Pace); err != nil {
			return report, err
		}
	}

	return report, nil
}

// annotate asks for a candidate until one validates or the attempts run out.
// Every rejection is logged; the fallback keeps the last hint with no affect.
func (b *baytStage) annotate(
	ctx context.Context,
	report *domain.StageReport,
	unit domain.RawUnit,
	axis string,
) (BaytCandidate, domain.Outcome, error) {
	prompt, err := b.prompts.Bayt(unit, axis)
	if err != nil {
		return BaytCandidate{}, "", err
	}

	var last map[string]any
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		obj, err := b.gen.JSON(ctx, b.prompts.System(), prompt)
		if err != nil {
			return BaytCandidate{}, "", err
		}

		candidate, verr := b.validator.Validate(obj)
		if verr == nil {
			return candidate, domain.OutcomeOK, nil
		}
		last = obj

		rec := domain.RejectionRecord{
			Timestamp:          b.now().UTC(),
			PoemID:             unit.PoemID,
			BaytID:             unit.BaytID,
			Attempt:            attempt,
			ReturnedAffect:     obj["affect"],
			AllowedAffectVocab: domain.AffectVocabulary(),
			Model:              b.gen.Model(),
			PromptVersion:      b.prompts.Version(),
			Final:              attempt == b.maxAttempts,
			Reason:             verr.Error(),
		}
		if err := b.rejections.Record(ctx, rec); err != nil {
			return BaytCandidate{}, "", fmt.Errorf("log rejection: %w", err)
		}
		b.report(report, domain.Progress{
			Stage:   domain.StageBayt,
			Outcome: domain.OutcomeReject,
			Key:     unit.Key(),
			Attempt: attempt,
			Affect:  labels(obj["affect"]),
		})

		if err := b.sleep(ctx, b.cfg.Cooldown); err != nil {
			return BaytCandidate{}, "", err
		}
	}

	hint, _ := last["bayt_hint"].(string)
	return BaytCandidate{BaytHint: strings.TrimSpace(hint), Affect: []string{}}, domain.OutcomeBlank, nil
}

// labels renders a returned affect value for progress output.
func labels(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}
