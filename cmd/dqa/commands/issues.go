package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/werelate/dqa/display"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/issues"
	"github.com/werelate/dqa/store"
	"github.com/werelate/dqa/sym"
)

// IssuesCmd lists stored issues
var IssuesCmd = &cobra.Command{
	Use:   "issues",
	Short: sym.Short("issues"),
	Long: `List the issues raised for a job.

Examples:
  dqa issues                          # Issues of the latest job
  dqa issues --page 1234              # Issues of one page
  dqa issues --category Error         # Only absolute-bound violations`,
	RunE: runIssues,
}

var (
	issuesJobFlag      int
	issuesPageFlag     int
	issuesCategoryFlag string
	issuesLimitFlag    int
)

func init() {
	IssuesCmd.Flags().IntVar(&issuesJobFlag, "job", 0, "Job id (default: latest job with issues)")
	IssuesCmd.Flags().IntVar(&issuesPageFlag, "page", 0, "Only issues of this page id")
	IssuesCmd.Flags().StringVar(&issuesCategoryFlag, "category", "", "Only this category: Error, Anomaly, Incomplete")
	IssuesCmd.Flags().IntVar(&issuesLimitFlag, "limit", 100, "Maximum number of issues to list (0 = all)")
	IssuesCmd.Flags().BoolP("json", "j", false, "Output issues as JSON")
}

type issueJSON struct {
	PageID      int    `json:"page_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func runIssues(cmd *cobra.Command, args []string) error {
	category := issues.Category(issuesCategoryFlag)
	if category != "" && !category.Valid() {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown category %q", issuesCategoryFlag)
	}

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
	jobID := issuesJobFlag
	if jobID == 0 {
		latest, ok, err := s.LatestIssueJob(ctx)
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("No issues stored")
			return nil
		}
		jobID = latest
	}

	found, err := s.Issues(ctx, store.IssueFilter{
		JobID:    jobID,
		PageID:   issuesPageFlag,
		Category: category,
		Limit:    issuesLimitFlag,
	})
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		out := make([]issueJSON, 0, len(found))
		for _, is := range found {
			out = append(out, issueJSON{is.PageID, string(is.Category), is.Description})
		}
		return display.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{"job_id": jobID, "issues": out})
	}
	if len(found) == 0 {
		pterm.Info.Printf("No issues for job %d\n", jobID)
		return nil
	}

	data := pterm.TableData{{"Page", "Category", "Description"}}
	for _, is := range found {
		data = append(data, []string{fmt.Sprint(is.PageID), string(is.Category), is.Description})
	}
	pterm.DefaultSection.Printf("Job %d issues", jobID)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
