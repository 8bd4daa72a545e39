// Package rounds schedules an analysis job: the seed round, the propagation
// rounds up to the plan's end round, and the final copy of flagged pages.
//
// A job always starts at the seed round unless it extends an earlier job
// from round 3 or later. Round 2 is the full pass that raises issues, so it
// is never resumed. A resumed round may continue after the last page the
// failed run committed.
package rounds

import (
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/propagate"
)

// Scheduler sentinels. All of them are fatal configuration errors.
var (
	ErrInvalidPlan       = errors.Mark(errors.New("invalid round plan"), errors.ErrFatalConfig)
	ErrRestartAtRoundTwo = errors.Mark(errors.New("round 2 cannot be restarted"), errors.ErrFatalConfig)
	ErrNoSeedData        = errors.Mark(errors.New("no seeded job to extend"), errors.ErrFatalConfig)
	ErrAlreadyFinalized  = errors.Mark(errors.New("job already finalized"), errors.ErrFatalConfig)
)

// relationRound is the first round with relations: the issue round.
const relationRound = propagate.SeedRound + 1

const (
	restartHint      = "start a fresh job at round 1, or extend the latest job from round 3 or later"
	freshJobHint     = "start a fresh job with: dqa run <pages.yaml>"
	resumeHintFormat = "resume the job with: dqa run --start-round %d --end-round %d"
	resumePageFormat = resumeHintFormat + " --resume-after %d"
	seedSourceHint   = "pass the page export to seed from: dqa run <pages.yaml>"
)

// Plan is the range of rounds one invocation runs.
type Plan struct {
	StartRound int
	EndRound   int
	// ResumeAfter is the page cursor StartRound continues after. Pages up
	// to it were committed by the failed run. Later rounds start from the
	// first page.
	ResumeAfter int
}

// Fresh reports whether the plan starts a new job.
func (p Plan) Fresh() bool {
	return p.StartRound == propagate.SeedRound
}

// Validate rejects plans that can never run. It does not look at storage.
func (p Plan) Validate() error {
	switch {
	case p.StartRound < propagate.SeedRound:
		return errors.Wrapf(ErrInvalidPlan, "start round %d", p.StartRound)
	case p.StartRound == relationRound:
		return errors.WithHint(
			errors.Wrapf(ErrRestartAtRoundTwo, "start round %d", p.StartRound), restartHint)
	case p.EndRound < relationRound:
		return errors.Wrapf(ErrInvalidPlan, "end round %d is before round %d", p.EndRound, relationRound)
	case p.StartRound > p.EndRound:
		return errors.Wrapf(ErrInvalidPlan, "start round %d is after end round %d", p.StartRound, p.EndRound)
	case p.ResumeAfter < 0:
		return errors.Wrapf(ErrInvalidPlan, "resume cursor %d", p.ResumeAfter)
	case p.ResumeAfter > 0 && p.Fresh():
		return errors.WithHint(
			errors.Wrapf(ErrInvalidPlan, "a fresh job cannot resume after page %d", p.ResumeAfter), restartHint)
	}
	return nil
}
