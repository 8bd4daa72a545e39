package rounds

import (
	"context"
	"fmt"

	"github.com/werelate/dqa/errors"
)

// GuardResult is the outcome of a restart guard.
type GuardResult struct {
	Allowed bool
	Reason  string
	cause   error
}

// Error converts a rejected guard to an error marked with its sentinel.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return errors.WithHint(errors.Wrap(r.cause, r.Reason), freshJobHint)
}

// RestartContext is what the guard needs to know about stored jobs.
type RestartContext struct {
	Round int

	AnalysisJob int
	HasAnalysis bool
	ResultJob   int
	HasResult   bool
	StatsJob    int
	HasStats    bool
}

// CanRestart evaluates whether the job in person_analysis can be extended
// from Round.
// Rules:
// - seeded data must exist
// - neither result_page nor job_stats holds that job or a later one
func CanRestart(c RestartContext) GuardResult {
	if !c.HasAnalysis {
		return GuardResult{
			Reason: fmt.Sprintf("cannot start at round %d: person_analysis is empty", c.Round),
			cause:  ErrNoSeedData,
		}
	}
	if c.HasResult && c.ResultJob >= c.AnalysisJob {
		return GuardResult{
			Reason: fmt.Sprintf("cannot start at round %d: result_page already holds job %d", c.Round, c.ResultJob),
			cause:  ErrAlreadyFinalized,
		}
	}
	if c.HasStats && c.StatsJob >= c.AnalysisJob {
		return GuardResult{
			Reason: fmt.Sprintf("cannot start at round %d: job_stats already holds job %d", c.Round, c.StatsJob),
			cause:  ErrAlreadyFinalized,
		}
	}
	return GuardResult{Allowed: true}
}

// JobStore reads the job bookkeeping needed to pick a job id.
type JobStore interface {
	NextJobID(ctx context.Context) (int, error)
	LatestAnalysisJob(ctx context.Context) (int, bool, error)
	LatestResultJob(ctx context.Context) (int, bool, error)
	LatestStatsJob(ctx context.Context) (int, bool, error)
}

// ResolveJob returns the job a plan runs: a new id for a fresh plan, the
// seeded job otherwise.
func ResolveJob(ctx context.Context, js JobStore, plan Plan) (int, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}
	if plan.Fresh() {
		return js.NextJobID(ctx)
	}

	rc := RestartContext{Round: plan.StartRound}
	var err error
	if rc.AnalysisJob, rc.HasAnalysis, err = js.LatestAnalysisJob(ctx); err != nil {
		return 0, err
	}
	if rc.ResultJob, rc.HasResult, err = js.LatestResultJob(ctx); err != nil {
		return 0, err
	}
	if rc.StatsJob, rc.HasStats, err = js.LatestStatsJob(ctx); err != nil {
		return 0, err
	}
	if err := CanRestart(rc).Error(); err != nil {
		return 0, err
	}
	return rc.AnalysisJob, nil
}
