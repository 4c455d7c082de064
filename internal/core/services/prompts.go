package services

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// PromptRenderer executes a prompt set's templates.
type PromptRenderer struct {
	set    domain.PromptSet
	axis   *template.Template
	bayt   *template.Template
	repair *template.Template
}

// NewPromptRenderer parses the templates of a validated prompt set.
func NewPromptRenderer(set domain.PromptSet) (*PromptRenderer, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	r := &PromptRenderer{set: set}
	for _, t := range []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"axis", set.Axis, &r.axis},
		{"bayt", set.Bayt, &r.bayt},
		{"repair", set.Repair, &r.repair},
	} {
		tpl, err := template.New(t.name).Option("missingkey=error").Parse(t.src)
		if err != nil {
			return nil, fmt.Errorf("%w: prompt %s %s: %w", domain.ErrInvalidInput, set.Version, t.name, err)
		}
		*t.dst = tpl
	}
	return r, nil
}

// Version returns the prompt set version recorded in annotation meta.
func (r *PromptRenderer) Version() string { return r.set.Version }

// System returns the extraction system prompt.
func (r *PromptRenderer) System() string { return r.set.System }

// RepairSystem returns the hint repair system prompt.
func (r *PromptRenderer) RepairSystem() string { return r.set.RepairSystem }

// Axis renders the poem axis prompt.
func (r *PromptRenderer) Axis(poem domain.Poem) (string, error) {
	lines := make([]string, len(poem.Units))
	for i, u := range poem.Units {
		lines[i] = "- " + u.Text
	}
	data := domain.AxisPromptData{AllBayts: strings.Join(lines, "\n")}
	if len(poem.Units) > 0 {
		data.GhazalProse = poem.Units[0].Insight.GhazalSummary
	}
	return execute(r.axis, data)
}

// Bayt renders the couplet extraction prompt.
func (r *PromptRenderer) Bayt(unit domain.RawUnit, axis string) (string, error) {
	return execute(r.bayt, domain.BaytPromptData{
		AffectList: strings.Join(domain.AffectVocabulary(), "، "),
		GhazalAxis: axis,
		BaytText:   unit.Text,
		BaytProse:  unit.Insight.BaytSummary,
	})
}

// Repair renders the hint repair prompt.
func (r *PromptRenderer) Repair(text, oldHint string) (string, error) {
	return execute(r.repair, domain.RepairPromptData{BaytText: text, OldHint: oldHint})
}

func execute(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
