package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/internal/metrics"
	"github.com/werelate/dqa/ixgest/facts"
	"github.com/werelate/dqa/logger"
	"github.com/werelate/dqa/pulse"
	"github.com/werelate/dqa/pulse/rounds"
	"github.com/werelate/dqa/sym"
)

// RunCmd runs an analysis job
var RunCmd = &cobra.Command{
	Use:   "run [pages.yaml]",
	Short: sym.Short("run"),
	Long: `Run a data-quality analysis job over a page export.

A fresh job seeds birth-year bounds from the export (round 1), checks every
person against their relatives (round 2), narrows the remaining wide
intervals (rounds 3 and later) and finally copies flagged pages and writes
the job statistics.

A job whose propagation stopped can be extended from round 3 or later
without the export. Round 2 raises the issues and is never resumed.

Examples:
  dqa run pages.yaml                              # Fresh job, rounds 1 to analysis.end_round
  dqa run pages.yaml --end-round 6                # Fresh job with two extra narrowing rounds
  dqa run --start-round 3 --end-round 4           # Resume a job that failed in round 3
  dqa run --start-round 3 --resume-after 4711     # Continue round 3 after the last committed page
  dqa run pages.yaml --metrics-file dqa.prom      # Dump prometheus metrics when done`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalysis,
}

var (
	runStartRound  int
	runEndRound    int
	runResumeAfter int
	runMetricsFile string
)

func init() {
	RunCmd.Flags().IntVar(&runStartRound, "start-round", 1, "First round to run (1 for a fresh job, 3 or later to extend the latest job)")
	RunCmd.Flags().IntVar(&runEndRound, "end-round", 0, "Last round to run (default: analysis.end_round)")
	RunCmd.Flags().IntVar(&runResumeAfter, "resume-after", 0, "Page id the start round continues after (from the failure hint)")
	RunCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write prometheus metrics to this file (default: metrics.textfile)")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan := rounds.Plan{StartRound: runStartRound, EndRound: runEndRound, ResumeAfter: runResumeAfter}
	if plan.EndRound == 0 {
		plan.EndRound = cfg.Analysis.EndRound
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	var src rounds.Source
	if plan.Fresh() {
		if len(args) == 0 {
			return errors.WithHint(
				errors.New("a fresh job needs a page export"),
				"pass the export: dqa run <pages.yaml>")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open page export %s", args[0])
		}
		defer f.Close()
		src = facts.NewSource(f, facts.NewExtractor(cfg.Thresholds.ToThresholds(), time.Now().Year()))
	} else if len(args) > 0 {
		logger.Warnw("Page export ignored when extending a job",
			logger.FieldPath, args[0],
			logger.FieldRound, plan.StartRound)
	}

	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	verbosity, _ := cmd.Flags().GetCount("verbose")
	var emitter pulse.ProgressEmitter = pulse.NewCLIEmitter(verbosity)
	if logger.JSONOutput {
		emitter = pulse.NewJSONEmitter()
	}

	m := metrics.New()
	runner := rounds.NewRunner(s, rounds.ConfigFrom(cfg),
		rounds.WithMetrics(m),
		rounds.WithEmitter(emitter),
		rounds.WithLogger(logger.Logger.Named("pulse.rounds")),
	)
	ctx := logger.WithComponent(cmd.Context(), "cmd.run")
	sum, runErr := runner.Run(ctx, plan, src)
	if sum != nil {
		logger.LoggerFromContext(logger.WithRunID(logger.WithJobID(ctx, sum.JobID), sum.RunID)).
			Infow("Run finished",
				"finalized", sum.Finalized,
				"rounds", len(sum.Rounds),
				logger.FieldIssues, sum.IssuesRaised)
	}

	if path := metricsPath(cfg.Metrics.Textfile); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			if runErr == nil {
				return err
			}
			logger.Warnw("Failed to write metrics textfile", logger.FieldPath, path, logger.FieldError, err)
		}
	}

	if sum != nil && !logger.JSONOutput {
		if err := renderRounds(sum); err != nil {
			logger.Warnw("Failed to render round summary", logger.FieldError, err)
		}
	}
	return runErr
}

func metricsPath(configured string) string {
	if runMetricsFile != "" {
		return runMetricsFile
	}
	return configured
}

func renderRounds(sum *rounds.Summary) error {
	data := pterm.TableData{{"Round", "Pages", "Processed", "Updated", "Issues", "Duration"}}
	for _, rs := range sum.Rounds {
		data = append(data, []string{
			fmt.Sprint(rs.Round),
			fmt.Sprint(rs.Pages),
			fmt.Sprint(rs.Processed),
			fmt.Sprint(rs.Updated),
			fmt.Sprint(rs.Issues),
			rs.Duration.Round(time.Millisecond).String(),
		})
	}
	pterm.DefaultSection.Printf("Job %d (run %s)", sum.JobID, sum.RunID)
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if sum.Finalized {
		pterm.Info.Printf("%d flagged pages, %d issues raised, %d duplicates dropped\n",
			sum.Finalize.Flagged, sum.IssuesRaised, sum.IssuesDropped)
	}
	return nil
}
