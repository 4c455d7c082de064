// Package cli is the cobra command tree of the yaar binary.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/yaar-cli/internal/core/ports/driving"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// Options holds the global flags.
type Options struct {
	DataDir     string
	ConfigDir   string
	MetricsFile string
	Verbose     bool
}

// Services are the driving ports the commands call.
// Close releases adapters and flushes metrics; it may be nil.
type Services struct {
	Pipeline driving.PipelineService
	Fal      driving.FalService
	Runs     driving.RunHistoryService
	Settings driving.SettingsService
	Close    func() error
}

// Bootstrap builds the services once flags are parsed.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	version = "dev"

	pipelineService   driving.PipelineService
	falService        driving.FalService
	runHistoryService driving.RunHistoryService
	settingsService   driving.SettingsService

	globalOpts    Options
	bootstrap     Bootstrap
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "yaar",
	Short: "Annotate Hafez ghazals and draw a fal",
	Long: `yaar builds a couplet-level annotation corpus of the Divan of Hafez
with a generation model, exports it as a retrieval dataset and draws a fal
for a free-text query.

Stages are resumable: rerunning a stage skips records already written.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalOpts.DataDir, "data-dir", "data", "root directory of pipeline files")
	flags.StringVar(&globalOpts.ConfigDir, "config-dir", "", "configuration directory (default ~/.yaar)")
	flags.StringVar(&globalOpts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices installs the driving ports directly.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	pipelineService = s.Pipeline
	falService = s.Fal
	runHistoryService = s.Runs
	settingsService = s.Settings
	closeServices = s.Close
}

// Execute runs the command tree. boot is called after flag parsing; a nil
// boot leaves previously installed services in place.
func Execute(ctx context.Context, boot Bootstrap, ver string) error {
	if ver != "" {
		version = ver
	}
	bootstrap = boot
	defer shutdown()

	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)
	if bootstrap == nil {
		return nil
	}

	svcs, err := bootstrap(cmd.Context(), globalOpts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(svcs)
	return nil
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("shutdown: %v", err)
	}
	closeServices = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var errNotConfigured = errors.New("not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s service %w", name, errNotConfigured)
}
