package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

const longHint = "یک دو سه چهار پنج شش هفت هشت نه" // nine words

func newRepairFixture(t *testing.T, llm *scriptedLLM, input ...domain.BaytAnnotation) (*repairStage, *memory.RecordStore, *recordingProgress) {
	t.Helper()
	store := memory.NewRecordStore()
	require.NoError(t, store.Seed("raw.jsonl", testCorpus()...))
	recs := make([]any, len(input))
	for i, r := range input {
		recs[i] = r
	}
	require.NoError(t, store.Seed("v1.jsonl", recs...))

	progress := &recordingProgress{}
	sleeps := &sleepRecorder{}
	stage := newRepairStage(
		newTestIO(store, progress, sleeps),
		newTestGen(llm, testPolicy, progress, sleeps),
		testRenderer(t),
		repairConfig{Raw: "raw.jsonl", Input: "v1.jsonl", Output: "v11.jsonl"},
	)
	return stage, store, progress
}

func annotation(poem, bayt int, hint string, affect ...string) domain.BaytAnnotation {
	if affect == nil {
		affect = []string{}
	}
	return domain.BaytAnnotation{
		PoemID:     poem,
		BaytID:     bayt,
		BaytHint:   hint,
		Affect:     affect,
		GhazalAxis: "محور",
		Meta:       domain.Meta{domain.MetaModel: "m", domain.MetaPromptVersion: "v"},
	}
}

func TestRepairStage_ShortensLongHint(t *testing.T) {
	llm := newScriptedLLM(reply{content: " اشاره کوتاه "})
	stage, store, progress := newRepairFixture(t, llm,
		annotation(1, 1, longHint, "امید"),
		annotation(1, 2, "کوتاه"),
	)

	report, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[domain.OutcomeRepaired])
	assert.Equal(t, 1, report.Counts[domain.OutcomeKept])
	assert.Equal(t, 1, llm.callCount())
	assert.Equal(t, "repair:الا یا ایها الساقی|"+longHint, llm.prompts[0])

	recs := readRecords[domain.BaytAnnotation](t, store, "v11.jsonl")
	require.Len(t, recs, 2)
	assert.Equal(t, "اشاره کوتاه", recs[0].BaytHint)
	assert.Equal(t, []string{"امید"}, recs[0].Affect)
	assert.True(t, recs[0].Meta.Bool(domain.MetaRepair))
	assert.Equal(t, "bayt_hint_len>8", recs[0].Meta.String(domain.MetaRepairRule))
	assert.Equal(t, "m", recs[0].Meta.String(domain.MetaModel))

	assert.Equal(t, "کوتاه", recs[1].BaytHint)
	assert.False(t, recs[1].Meta.Bool(domain.MetaRepair))
	assert.Equal(t, "bayt_hint_len>8", recs[1].Meta.String(domain.MetaRepairRule))

	assert.Equal(t, longHint, progress.events[0].Before)
	assert.Equal(t, "اشاره کوتاه", progress.events[0].After)
}

func TestRepairStage_RejectsCandidatesThatDoNotShrink(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"empty", "   "},
		{"same length", longHint},
		{"longer", longHint + " ده"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newScriptedLLM(reply{content: tt.candidate})
			stage, store, _ := newRepairFixture(t, llm, annotation(1, 1, longHint))

			report, err := stage.Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, 1, report.Counts[domain.OutcomeKept])
			recs := readRecords[domain.BaytAnnotation](t, store, "v11.jsonl")
			assert.Equal(t, longHint, recs[0].BaytHint)
			assert.False(t, recs[0].Meta.Bool(domain.MetaRepair))
		})
	}
}

func TestRepairStage_EightWordsIsNotRepaired(t *testing.T) {
	llm := newScriptedLLM()
	eight := "یک دو سه چهار پنج شش هفت هشت"
	stage, store, _ := newRepairFixture(t, llm, annotation(1, 1, eight))

	_, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, llm.callCount())
	assert.Equal(t, eight, readRecords[domain.BaytAnnotation](t, store, "v11.jsonl")[0].BaytHint)
}

func TestRepairStage_NeverGrowsAHint(t *testing.T) {
	llm := newScriptedLLM(reply{content: "کوتاه‌تر از قبل"})
	input := []domain.BaytAnnotation{
		annotation(1, 1, longHint),
		annotation(1, 2, "دو کلمه"),
		annotation(2, 1, longHint+" ده یازده"),
	}
	stage, store, _ := newRepairFixture(t, llm, input...)

	_, err := stage.Run(context.Background())

	require.NoError(t, err)
	out := readRecords[domain.BaytAnnotation](t, store, "v11.jsonl")
	require.Len(t, out, len(input))
	for i := range input {
		assert.LessOrEqual(t, wordCount(out[i].BaytHint), wordCount(input[i].BaytHint))
		assert.Equal(t, input[i].Key(), out[i].Key())
	}
}

func TestRepairStage_MissingRawOnlyMattersForLongHints(t *testing.T) {
	llm := newScriptedLLM(reply{content: "کوتاه"})
	stage, store, _ := newRepairFixture(t, llm,
		annotation(9, 1, "کوتاه"),
		annotation(9, 2, longHint),
	)

	report, err := stage.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrMissingRawUnit)
	assert.Equal(t, 1, report.Processed)
	assert.Len(t, store.Lines("v11.jsonl"), 1)
}

func TestRepairStage_Resumes(t *testing.T) {
	llm := newScriptedLLM(reply{content: "کوتاه"})
	stage, store, _ := newRepairFixture(t, llm,
		annotation(1, 1, longHint),
		annotation(1, 2, longHint),
	)
	require.NoError(t, store.Seed("v11.jsonl", annotation(1, 1, "قبلا")))

	report, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, llm.callCount())
	assert.Len(t, store.Lines("v11.jsonl"), 2)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
