package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent stage runs",
	Long:  `Lists journaled stage invocations, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a single stage run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "output as JSON")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runHistoryService == nil {
		return notConfigured("run history")
	}

	runs, err := runHistoryService.List(commandContext(cmd), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		return outputJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for i := range runs {
		r := &runs[i]
		cmd.Printf("%s  %-18s  %-9s  %s  processed=%d skipped=%d\n",
			r.ID, r.Stage, r.Status, r.StartedAt.Local().Format(time.DateTime), r.Processed, r.Skipped)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runHistoryService == nil {
		return notConfigured("run history")
	}

	run, err := runHistoryService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if runsJSON {
		return outputJSON(cmd, run)
	}

	cmd.Printf("Run %s\n", run.ID)
	cmd.Printf("  Stage: %s\n", run.Stage.Description())
	cmd.Printf("  Status: %s\n", run.Status)
	cmd.Printf("  Input: %s\n", run.Input)
	cmd.Printf("  Output: %s\n", run.Output)
	if run.Model != "" {
		cmd.Printf("  Model: %s\n", run.Model)
	}
	cmd.Printf("  Prompt version: %s\n", run.PromptVersion)
	cmd.Printf("  Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		cmd.Printf("  Duration: %s\n", run.Duration().Round(time.Millisecond))
	}
	cmd.Printf("  Rows: total=%d processed=%d skipped=%d\n", run.Total, run.Processed, run.Skipped)
	if counts := formatCounts(run.Counts); counts != "" {
		cmd.Printf("  Outcomes: %s\n", counts)
	}
	if run.Error != "" {
		cmd.Printf("  Error: %s\n", run.Error)
	}
	return nil
}

func formatCounts(counts map[domain.Outcome]int) string {
	keys := make([]string, 0, len(counts))
	for o := range counts {
		keys = append(keys, string(o))
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[domain.Outcome(k)]))
	}
	return strings.Join(parts, " ")
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
