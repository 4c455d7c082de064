package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

var (
	normalizePass string
	runAll        bool
)

var axisCmd = newStageCmd(domain.StageAxis, "axis",
	"Extract the semantic axis of every ghazal",
	`Sends the couplets and prose insight of each poem to the generation model
and writes one axis sentence per poem.`)

var baytCmd = newStageCmd(domain.StageBayt, "bayt",
	"Extract a hint and affect labels for every couplet",
	`Annotates each couplet with a short hint and affect labels drawn from the
closed label set. Invalid responses are retried once, then written with no
affect and logged as rejections.`)

var repairCmd = newStageCmd(domain.StageRepair, "repair",
	"Shorten hints longer than eight words",
	`Asks the generation model to rewrite long hints. A rewrite is accepted only
when it is non-empty and shorter than the original.`)

var datasetCmd = newStageCmd(domain.StageDataset, "dataset",
	"Export the canonical retrieval dataset",
	`Joins couplet text with the canonical annotations and the optional lens
tags into one retrieval row per couplet.`)

var embedCmd = newStageCmd(domain.StageEmbed, "embed",
	"Embed the dataset rows",
	`Embeds every dataset row with the configured embedding provider. The
embeddings file is required by 'yaar fal'.`)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Strip directive prefixes from hints",
	Long: `Deterministically removes imperative directive prefixes from hints.

  explicit - the fixed prefixes such as "دعوت به" (v1.1 → v1.2)
  residual - the remaining directive leads (v1.2 → v1.3)

Without --pass both passes run in order.`,
	Args: cobra.NoArgs,
	RunE: runNormalize,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every annotation stage in order",
	Long: `Runs axis, bayt, repair and both normalization passes, stopping at the
first failure. With --all the dataset export and embedding stages follow.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizePass, "pass", "", "normalization pass: explicit or residual")
	runCmd.Flags().BoolVar(&runAll, "all", false, "also export the dataset and build embeddings")

	rootCmd.AddCommand(axisCmd, baytCmd, repairCmd, normalizeCmd, datasetCmd, embedCmd, runCmd)
}

func newStageCmd(stage domain.Stage, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, []domain.Stage{stage})
		},
	}
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	var stages []domain.Stage
	switch normalizePass {
	case "":
		stages = []domain.Stage{domain.StageNormalizeExplicit, domain.StageNormalizeResidual}
	case "explicit":
		stages = []domain.Stage{domain.StageNormalizeExplicit}
	case "residual":
		stages = []domain.Stage{domain.StageNormalizeResidual}
	default:
		return fmt.Errorf("unknown pass %q: use explicit or residual", normalizePass)
	}
	return runStages(cmd, stages)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	stages := domain.AnnotationStages()
	if runAll {
		stages = domain.AllStages()
	}
	return runStages(cmd, stages)
}

func runStages(cmd *cobra.Command, stages []domain.Stage) error {
	if pipelineService == nil {
		return notConfigured("pipeline")
	}

	reports, err := pipelineService.RunStages(commandContext(cmd), stages)
	if err != nil {
		return err
	}

	if len(reports) > 1 {
		processed := 0
		for _, r := range reports {
			processed += r.Processed
		}
		cmd.Printf("Completed %d stages, %d rows processed.\n", len(reports), processed)
	}
	return nil
}
