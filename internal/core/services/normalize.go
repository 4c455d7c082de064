package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

const normalizeRule = "remove_directive_prefix"

// Directive prefixes stripped from hints, in match order.
var (
	ExplicitDirectivePrefixes = []string{"دعوت به", "توصیه به", "تشویق به"}
	ResidualDirectivePrefixes = []string{"دعوت به", "توصیه به", "تشویق به", "توجه به", "بهره‌گیری از"}
)

// NormalizeHint strips leading directive prefixes from hint until none
// matches and reports the first prefix removed. A strip that would leave
// nothing is not applied: the hint stays as it was before that strip.
func NormalizeHint(hint string, prefixes []string) (string, string, bool) {
	out := hint
	first := ""
	for {
		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(out, p) {
				continue
			}
			stripped := strings.TrimSpace(strings.TrimPrefix(out, p))
			if stripped == "" {
				return out, first, first != ""
			}
			if first == "" {
				first = p
			}
			out = stripped
			matched = true
			break
		}
		if !matched {
			break
		}
	}
	return out, first, first != ""
}

// normalizeStage is a deterministic pass that removes directive framing.
type normalizeStage struct {
	stageIO
	stage    domain.Stage
	prefixes []string
	input    string
	output   string
}

func newNormalizeStage(sio stageIO, stage domain.Stage, prefixes []string, input, output string) *normalizeStage {
	return &normalizeStage{
		stageIO:  sio,
		stage:    stage,
		prefixes: prefixes,
		input:    input,
		output:   output,
	}
}

// Run re-emits every input record, normalizing hints that open with a prefix.
func (n *normalizeStage) Run(ctx context.Context) (*domain.StageReport, error) {
	report := domain.NewStageReport(n.stage, n.input, n.output)

	if !n.store.Exists(n.input) {
		return report, fmt.Errorf("%w: %s", domain.ErrInputNotFound, n.input)
	}
	done, out, err := n.openOutput(ctx, n.output)
	if err != nil {
		return report, err
	}
	defer out.Close()

	err = eachRecord(ctx, n.store, n.input, func(rec domain.BaytAnnotation) error {
		report.Total++
		key := rec.Key()
		if done.Has(key) {
			report.Skipped++
			return nil
		}

		next := rec
		outcome := domain.OutcomeUnchanged
		if hint, prefix, changed := NormalizeHint(rec.BaytHint, n.prefixes); changed {
			next = rec.WithHint(hint, domain.Meta{
				domain.MetaManualNorm:     true,
				domain.MetaManualNormRule: normalizeRule,
				domain.MetaNormPrefix:     prefix,
			})
			outcome = domain.OutcomeNormalized
		}

		if err := out.Append(next); err != nil {
			return fmt.Errorf("append %s: %w", key, err)
		}
		report.Processed++
		n.report(report, domain.Progress{
			Stage:   n.stage,
			Outcome: outcome,
			Key:     key,
			Before:  rec.BaytHint,
			After:   next.BaytHint,
		})
		return nil
	})
	return report, err
}
