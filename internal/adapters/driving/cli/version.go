package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/yaar-cli/internal/logger"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// No services are needed to print the version.
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(globalOpts.Verbose)
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("yaar version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
