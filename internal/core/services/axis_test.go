package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

func newAxisFixture(t *testing.T, llm *scriptedLLM) (*axisStage, *memory.RecordStore, *recordingProgress, *sleepRecorder) {
	t.Helper()
	store := memory.NewRecordStore()
	require.NoError(t, store.Seed("raw.jsonl", testCorpus()...))
	progress := &recordingProgress{}
	sleeps := &sleepRecorder{}
	stage := newAxisStage(
		newTestIO(store, progress, sleeps),
		newTestGen(llm, testPolicy, progress, sleeps),
		testRenderer(t),
		axisConfig{Input: "raw.jsonl", Output: "axis.jsonl", Pace: 200 * time.Millisecond},
	)
	return stage, store, progress, sleeps
}

func TestAxisStage_WritesOneRecordPerPoem(t *testing.T) {
	llm := newScriptedLLM(reply{content: "محور یک"}, reply{content: " محور دو "})
	stage, store, progress, sleeps := newAxisFixture(t, llm)

	report, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Counts[domain.OutcomeOK])

	recs := readRecords[domain.AxisAnnotation](t, store, "axis.jsonl")
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].PoemID)
	assert.Equal(t, "محور یک", recs[0].GhazalAxis)
	assert.Equal(t, "محور دو", recs[1].GhazalAxis)
	assert.Equal(t, "test-model", recs[0].Meta.String(domain.MetaModel))
	assert.Equal(t, "test-v1", recs[0].Meta.String(domain.MetaPromptVersion))

	assert.Equal(t, "axis:- الا یا ایها الساقی\n- به بوی نافه‌ای|دشواری عشق", llm.prompts[0])
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, sleeps.slept)
	assert.Equal(t, domain.PoemKey(2), progress.events[1].Key)
}

func TestAxisStage_ResumesAfterLastRecord(t *testing.T) {
	llm := newScriptedLLM(reply{content: "محور دو"})
	stage, store, _, _ := newAxisFixture(t, llm)
	require.NoError(t, store.Seed("axis.jsonl", domain.AxisAnnotation{PoemID: 1, GhazalAxis: "محور یک"}))

	report, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, llm.callCount())

	recs := readRecords[domain.AxisAnnotation](t, store, "axis.jsonl")
	require.Len(t, recs, 2)
	assert.Equal(t, []int{1, 2}, []int{recs[0].PoemID, recs[1].PoemID})
}

func TestAxisStage_RerunIsNoop(t *testing.T) {
	llm := newScriptedLLM(reply{content: "محور"})
	stage, store, _, _ := newAxisFixture(t, llm)
	_, err := stage.Run(context.Background())
	require.NoError(t, err)
	before := store.Lines("axis.jsonl")

	report, err := stage.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, before, store.Lines("axis.jsonl"))
	assert.Equal(t, 2, llm.callCount())
}

func TestAxisStage_EmptyAxisIsFatal(t *testing.T) {
	llm := newScriptedLLM(reply{content: "محور یک"}, reply{content: "   "})
	stage, store, _, _ := newAxisFixture(t, llm)

	report, err := stage.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrEmptyAxis)
	assert.Equal(t, 1, report.Processed)
	assert.Len(t, store.Lines("axis.jsonl"), 1)
}

func TestAxisStage_MultiLineAxisIsKept(t *testing.T) {
	llm := newScriptedLLM(reply{content: "سطر یک\nسطر دو"})
	stage, store, _, _ := newAxisFixture(t, llm)

	_, err := stage.Run(context.Background())

	require.NoError(t, err)
	recs := readRecords[domain.AxisAnnotation](t, store, "axis.jsonl")
	assert.Equal(t, "سطر یک\nسطر دو", recs[0].GhazalAxis)
}

func TestAxisStage_AppendFailureKeepsEarlierRecords(t *testing.T) {
	llm := newScriptedLLM(reply{content: "محور"})
	stage, store, _, _ := newAxisFixture(t, llm)
	store.FailAfter = 2

	_, err := stage.Run(context.Background())

	require.Error(t, err)
	assert.Len(t, store.Lines("axis.jsonl"), 1)

	store.FailAfter = 0
	report, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, store.Lines("axis.jsonl"), 2)
}

func TestAxisStage_MissingInput(t *testing.T) {
	store := memory.NewRecordStore()
	sleeps := &sleepRecorder{}
	stage := newAxisStage(
		newTestIO(store, &recordingProgress{}, sleeps),
		newTestGen(newScriptedLLM(), testPolicy, &recordingProgress{}, sleeps),
		testRenderer(t),
		axisConfig{Input: "raw.jsonl", Output: "axis.jsonl"},
	)

	_, err := stage.Run(context.Background())

	assert.True(t, errors.Is(err, domain.ErrInputNotFound))
}
