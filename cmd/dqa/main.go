package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/werelate/dqa/am"
	"github.com/werelate/dqa/cmd/dqa/commands"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/logger"
)

var (
	verbosity  int
	logJSON    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "dqa",
	Short: "dqa - genealogy data-quality analysis",
	Long: `dqa - data-quality analysis for a wiki of genealogy pages.

dqa bounds every person's birth year from the dates on their page and the
pages of their relatives, raises issues where the dates contradict each
other, and keeps the flagged pages and job statistics for reporting.

Available commands:
  run     - Run an analysis job
  stats   - Show job statistics
  issues  - List data-quality issues
  am      - Manage dqa configuration ("I am")
  version - Show version information

Examples:
  dqa am init                      # Write a default am.toml
  dqa run pages.yaml               # Run a fresh job
  dqa stats                        # Statistics of the latest job`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			am.UseConfigFile(configFile)
		}
		if err := logger.Initialize(logJSON, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Debugw("Logger initialized", "level", logger.LevelName(verbosity), "json", logJSON)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log and report progress as JSON")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file read after the discovered ones")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.IssuesCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		if errors.IsFatalConfig(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
