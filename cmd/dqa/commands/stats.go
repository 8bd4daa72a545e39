package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/werelate/dqa/display"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/sym"
)

// StatsCmd shows the statistics a finalized job wrote
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: sym.Short("stats"),
	Long: `Show the statistics written when a job was finalized.

Examples:
  dqa stats              # Latest finalized job
  dqa stats --job 12     # A specific job`,
	RunE: runStats,
}

var statsJobFlag int

func init() {
	StatsCmd.Flags().IntVar(&statsJobFlag, "job", 0, "Job id (default: latest finalized job)")
	StatsCmd.Flags().BoolP("json", "j", false, "Output statistics as JSON")
}

type statJSON struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	jobID := statsJobFlag
	if jobID == 0 {
		latest, ok, err := s.LatestStatsJob(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithHint(errors.NewNotFoundError("no finalized job"), "run a job first: dqa run <pages.yaml>")
		}
		jobID = latest
	}

	rows, err := s.Stats(ctx, jobID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewNotFoundError("no statistics for job %d", jobID)
	}

	if display.ShouldOutputJSON(cmd) {
		out := make([]statJSON, 0, len(rows))
		for _, st := range rows {
			out = append(out, statJSON{st.Category, st.Description, st.Count})
		}
		return display.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{
			"job_id": jobID,
			"date":   rows[0].Date,
			"stats":  out,
		})
	}

	data := pterm.TableData{{"Category", "Description", "Count"}}
	for _, st := range rows {
		data = append(data, []string{st.Category, st.Description, fmt.Sprint(st.Count)})
	}
	pterm.DefaultSection.Printf("Job %d statistics (%s)", jobID, rows[0].Date)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
