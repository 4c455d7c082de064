package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

func sampleRuns() []domain.StageRun {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	return []domain.StageRun{
		{
			ID:            "run-2",
			Stage:         domain.StageBayt,
			Input:         "raw.jsonl",
			Output:        "bayt.jsonl",
			Model:         "gpt-4.1",
			PromptVersion: "v1.0",
			Status:        domain.RunStatusFailed,
			StartedAt:     started,
			FinishedAt:    &finished,
			Total:         10,
			Processed:     4,
			Skipped:       6,
			Counts:        map[domain.Outcome]int{domain.OutcomeOK: 3, domain.OutcomeBlank: 1},
			Error:         "bayt: rate limited",
		},
		{
			ID:        "run-1",
			Stage:     domain.StageAxis,
			Status:    domain.RunStatusSucceeded,
			StartedAt: started.Add(-time.Hour),
		},
	}
}

func TestRunsCmd_List(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{runs: sampleRuns()}})

	out, err := execute(t, "", "runs")

	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "processed=4 skipped=6")
	assert.Contains(t, out, "run-1")
}

func TestRunsCmd_Limit(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{runs: sampleRuns()}})

	out, err := execute(t, "", "runs", "-n", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.NotContains(t, out, "run-1")
}

func TestRunsCmd_Empty(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{}})

	out, err := execute(t, "", "runs")

	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestRunsCmd_JSON(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{runs: sampleRuns()}})

	out, err := execute(t, "", "runs", "--json")

	require.NoError(t, err)
	var got []domain.StageRun
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 2)
}

func TestRunsShowCmd(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{runs: sampleRuns()}})

	out, err := execute(t, "", "runs", "show", "run-2")

	require.NoError(t, err)
	assert.Contains(t, out, "Run run-2")
	assert.Contains(t, out, "Stage: "+domain.StageBayt.Description())
	assert.Contains(t, out, "Duration: 1m30s")
	assert.Contains(t, out, "Outcomes: BLANK=1 OK=3")
	assert.Contains(t, out, "Error: bayt: rate limited")
}

func TestRunsShowCmd_NotFound(t *testing.T) {
	installServices(t, &Services{Runs: &mockRunHistory{}})

	_, err := execute(t, "", "runs", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunsCmd_ServiceNotConfigured(t *testing.T) {
	installServices(t, &Services{})

	_, err := execute(t, "", "runs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run history service not configured")
}
