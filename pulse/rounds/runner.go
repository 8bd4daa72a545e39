package rounds

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/werelate/dqa/am"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/internal/metrics"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
	"github.com/werelate/dqa/ixgest/facts"
	"github.com/werelate/dqa/logger"
	"github.com/werelate/dqa/propagate"
	"github.com/werelate/dqa/pulse"
	"github.com/werelate/dqa/store"
	"github.com/werelate/dqa/sym"
)

// Store is the persistence a job runs against. *store.Store implements it.
type Store interface {
	JobStore

	ResetAnalysis(ctx context.Context) error
	InsertSeed(ctx context.Context, jobID int, persons []interval.Person, families []interval.Family, pending []issues.Issue) error
	InsertIssues(ctx context.Context, pending []issues.Issue) error
	IssueKeys(ctx context.Context, jobID int) ([]issues.Key, error)

	Candidates(ctx context.Context, cq store.CandidateQuery) ([]interval.Person, error)
	Relations(ctx context.Context, jobID int, batch []interval.Person) (interval.Relations, error)
	CommitPage(ctx context.Context, jobID, round int, batch []interval.Person, pending []issues.Issue) (int, error)

	Finalize(ctx context.Context, fp store.FinalizeParams) (store.FinalizeSummary, error)
}

// Source yields seed records until io.EOF. *facts.Source implements it.
type Source interface {
	Next() (facts.Record, error)
}

// Config sizes a job.
type Config struct {
	PageSize        int
	PersonFlushRows int
	IssueFlushRows  int
	KeptJobs        int
	Thresholds      interval.Thresholds
	Policy          propagate.Policy
}

// ConfigFrom builds a runner Config from the loaded configuration.
func ConfigFrom(cfg *am.Config) Config {
	policy := propagate.DefaultPolicy()
	policy.NarrowWidth = cfg.Analysis.NarrowWidth
	return Config{
		PageSize:        cfg.Analysis.PageSize,
		PersonFlushRows: cfg.Analysis.PersonFlushRows,
		IssueFlushRows:  cfg.Analysis.IssueFlushRows,
		KeptJobs:        cfg.Analysis.KeptJobs,
		Thresholds:      cfg.Thresholds.ToThresholds(),
		Policy:          policy,
	}
}

// RoundSummary reports one round.
type RoundSummary struct {
	Round     int
	Pages     int
	Processed int
	// Updated is rows written: seeded rows in round 1, tightened persons later.
	Updated  int
	Issues   int
	Duration time.Duration
}

// Summary reports a finished or failed run.
type Summary struct {
	JobID         int
	RunID         string
	Rounds        []RoundSummary
	Finalized     bool
	Finalize      store.FinalizeSummary
	IssuesRaised  int
	IssuesDropped int
}

// pulseLogger marks the opening and closing of a job at distinct levels so
// they stand out in the round log.
type pulseLogger struct {
	*zap.SugaredLogger
}

// Starting logs an opening event at DEBUG level.
func (l pulseLogger) Starting(msg string, keysAndValues ...interface{}) {
	l.Debugw(sym.PulseOpen+" "+msg, keysAndValues...)
}

// Closing logs a closing event at WARN level.
func (l pulseLogger) Closing(msg string, keysAndValues ...interface{}) {
	l.Warnw(sym.PulseClose+" "+msg, keysAndValues...)
}

// Runner executes round plans against a store.
type Runner struct {
	store   Store
	cfg     Config
	engine  *propagate.Engine
	metrics *metrics.Metrics
	emitter pulse.ProgressEmitter
	log     *zap.SugaredLogger
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records the run in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithEmitter reports progress to e.
func WithEmitter(e pulse.ProgressEmitter) Option {
	return func(r *Runner) { r.emitter = e }
}

// WithLogger replaces the component logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock replaces time.Now. Finalize derives the living threshold and
// the statistics date from it.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner.
func NewRunner(st Store, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		store:   st,
		cfg:     cfg,
		engine:  propagate.NewEngine(cfg.Thresholds, cfg.Policy),
		emitter: pulse.NopEmitter{},
		log:     logger.ComponentLogger("pulse.rounds"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes plan. src is read only by a fresh plan and may be nil
// otherwise. The returned summary covers every round that completed, also
// when err is not nil.
func (r *Runner) Run(ctx context.Context, plan Plan, src Source) (*Summary, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.Fresh() && src == nil {
		return nil, errors.WithHint(errors.Wrap(ErrInvalidPlan, "the seed round needs a page source"), seedSourceHint)
	}

	startedAt := r.now()
	jobID, err := ResolveJob(ctx, r.store, plan)
	if err != nil {
		return nil, err
	}

	sum := &Summary{JobID: jobID, RunID: uuid.NewString()}
	ctx = logger.WithJobID(logger.WithRunID(ctx, sum.RunID), jobID)
	log := pulseLogger{r.log.With(logger.FieldsFromContext(ctx)...)}
	log.Starting("job starting",
		logger.FieldRound, plan.StartRound,
		logger.FieldEndRound, plan.EndRound,
		logger.FieldCursor, plan.ResumeAfter)
	if !plan.Fresh() {
		msg := fmt.Sprintf("extending job %d from round %d", jobID, plan.StartRound)
		if plan.ResumeAfter > 0 {
			msg += fmt.Sprintf(" after page %d", plan.ResumeAfter)
		}
		r.emitter.EmitInfo(msg)
	}

	buf := issues.NewBuffer(jobID)
	if !plan.Fresh() {
		keys, err := r.store.IssueKeys(ctx, jobID)
		if err != nil {
			return sum, err
		}
		buf.Preload(keys)
	}
	r.metrics.SetJob(jobID)

	for round := plan.StartRound; round <= plan.EndRound; round++ {
		r.emitter.EmitStage(fmt.Sprintf("round %d", round), r.describe(round))
		begin := r.now()

		var rs RoundSummary
		if round == propagate.SeedRound {
			rs, err = r.seed(ctx, log, jobID, src, buf)
		} else {
			after := 0
			if round == plan.StartRound {
				after = plan.ResumeAfter
			}
			rs, err = r.propagate(ctx, log, jobID, round, plan.EndRound, after, buf)
		}
		rs.Duration = r.now().Sub(begin)
		sum.Rounds = append(sum.Rounds, rs)
		sum.IssuesRaised, sum.IssuesDropped = buf.Counts()
		if err != nil {
			r.emitter.EmitError(fmt.Sprintf("round %d", round), err)
			return sum, err
		}

		r.metrics.ObserveRound(round, rs.Duration)
		log.Infow("round complete",
			logger.FieldRound, round,
			logger.FieldCount, rs.Processed,
			logger.FieldUpdated, rs.Updated,
			logger.FieldIssues, rs.Issues,
			logger.FieldDurationMS, rs.Duration.Milliseconds())
	}

	r.emitter.EmitStage("finalize", "copying flagged pages and writing statistics")
	fin, err := r.store.Finalize(ctx, store.FinalizeParams{
		JobID:       jobID,
		StartedAt:   startedAt,
		Now:         r.now(),
		LivingYears: r.cfg.Thresholds.UsualLifespan,
		KeptJobs:    r.cfg.KeptJobs,
	})
	if err != nil {
		r.emitter.EmitError("finalize", err)
		return sum, errors.WithHint(
			errors.Wrapf(err, "job %d finalize", jobID),
			fmt.Sprintf(resumeHintFormat, plan.EndRound, plan.EndRound))
	}
	sum.Finalized = true
	sum.Finalize = fin

	log.Closing("job finalized",
		"flagged", fin.Flagged,
		"purged_jobs", fin.PurgedJobs,
		logger.FieldIssues, sum.IssuesRaised)
	r.emitter.EmitComplete(map[string]interface{}{
		"job_id":         jobID,
		"run_id":         sum.RunID,
		"rounds":         len(sum.Rounds),
		"flagged":        fin.Flagged,
		"issues":         sum.IssuesRaised,
		"duplicates":     sum.IssuesDropped,
		"purged_jobs":    len(fin.PurgedJobs),
		"statistic_rows": len(fin.Stats),
	})
	return sum, nil
}

func (r *Runner) describe(round int) string {
	policy := r.engine.Policy()
	switch {
	case round == propagate.SeedRound:
		return "seeding bounds from page facts"
	case policy.RaisesIssues(round):
		return "propagating over every person and checking relations"
	default:
		return fmt.Sprintf("propagating over intervals wider than %d years", policy.NarrowWidth)
	}
}

// seed streams src into person_analysis, flushing every PersonFlushRows
// rows and every IssueFlushRows issues.
func (r *Runner) seed(ctx context.Context, log pulseLogger, jobID int, src Source, buf *issues.Buffer) (RoundSummary, error) {
	rs := RoundSummary{Round: propagate.SeedRound}
	if err := r.store.ResetAnalysis(ctx); err != nil {
		return rs, err
	}

	var persons []interval.Person
	var families []interval.Family
	flush := func() error {
		pending := buf.Drain()
		if len(persons)+len(families)+len(pending) == 0 {
			return nil
		}
		if err := r.store.InsertSeed(ctx, jobID, persons, families, pending); err != nil {
			log.Errorw("seed flush failed",
				logger.FieldRound, propagate.SeedRound,
				logger.FieldBatchSize, len(persons)+len(families),
				logger.FieldError, err)
			return errors.WithHint(errors.Wrapf(err, "job %d round %d seed flush", jobID, propagate.SeedRound), freshJobHint)
		}
		r.metrics.AddSeeded("person", len(persons))
		r.metrics.AddSeeded("family", len(families))
		r.countIssues(pending)
		rs.Pages++
		rs.Updated += len(persons) + len(families)
		rs.Issues += len(pending)
		r.emitter.EmitProgress(rs.Processed, map[string]interface{}{"type": "rows", "round": propagate.SeedRound, "rows": rs.Updated})
		persons, families = persons[:0], families[:0]
		return nil
	}

	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rs, errors.WithHint(err, freshJobHint)
		}
		rs.Processed++
		issues.Replay(buf, rec.PageID, rec.Findings)
		switch {
		case rec.Person != nil:
			persons = append(persons, *rec.Person)
		case rec.Family != nil:
			families = append(families, *rec.Family)
		}

		if len(persons)+len(families) >= r.cfg.PersonFlushRows {
			if err := flush(); err != nil {
				return rs, err
			}
		} else if buf.Full(r.cfg.IssueFlushRows) {
			pending := buf.Drain()
			if err := r.store.InsertIssues(ctx, pending); err != nil {
				return rs, errors.WithHint(errors.Wrapf(err, "job %d round %d issue flush", jobID, propagate.SeedRound), freshJobHint)
			}
			r.countIssues(pending)
			rs.Issues += len(pending)
		}
	}
	if err := flush(); err != nil {
		return rs, err
	}
	return rs, nil
}

// propagate runs one relation round page by page, starting after page
// cursor. A failed page is rolled back and stops the round with the cursor
// still before it.
func (r *Runner) propagate(ctx context.Context, log pulseLogger, jobID, round, endRound, cursor int, buf *issues.Buffer) (RoundSummary, error) {
	rs := RoundSummary{Round: round}
	policy := r.engine.Policy()

	var rec issues.Recorder
	if policy.RaisesIssues(round) {
		rec = buf
	}

	for {
		batch, err := r.store.Candidates(ctx, store.CandidateQuery{
			JobID:       jobID,
			After:       cursor,
			Limit:       r.cfg.PageSize,
			Narrow:      policy.Narrowed(round),
			NarrowWidth: policy.NarrowWidth,
		})
		if err != nil {
			return rs, r.pageFailed(log, err, jobID, round, endRound, cursor)
		}
		if len(batch) == 0 {
			break
		}

		rel, err := r.store.Relations(ctx, jobID, batch)
		if err != nil {
			return rs, r.pageFailed(log, err, jobID, round, endRound, cursor)
		}
		res := r.engine.Apply(round, batch, rel, rec)

		pending := buf.Drain()
		updated, err := r.store.CommitPage(ctx, jobID, round, batch, pending)
		if err != nil {
			buf.Forget(pending)
			return rs, r.pageFailed(log, err, jobID, round, endRound, cursor)
		}

		r.metrics.ObservePage(round, res.Processed, updated)
		r.countIssues(pending)
		rs.Pages++
		rs.Processed += res.Processed
		rs.Updated += updated
		rs.Issues += len(pending)
		cursor = batch[len(batch)-1].PageID

		log.Debugw("page committed",
			logger.FieldRound, round,
			logger.FieldCursor, cursor,
			logger.FieldBatchSize, len(batch),
			logger.FieldUpdated, updated)
		r.emitter.EmitProgress(rs.Processed, map[string]interface{}{"type": "persons", "round": round, "updated": rs.Updated})

		if len(batch) < r.cfg.PageSize {
			break
		}
	}
	return rs, nil
}

func (r *Runner) pageFailed(log pulseLogger, err error, jobID, round, endRound, cursor int) error {
	r.metrics.IncrementPageFailure(round)
	log.Errorw("page failed, rolled back",
		logger.FieldRound, round,
		logger.FieldCursor, cursor,
		logger.FieldBatchSize, r.cfg.PageSize,
		logger.FieldError, err)

	wrapped := errors.Wrapf(err, "job %d round %d page after %d", jobID, round, cursor)
	switch {
	case round <= relationRound:
		return errors.WithHint(wrapped, freshJobHint)
	case cursor > 0:
		return errors.WithHint(wrapped, fmt.Sprintf(resumePageFormat, round, endRound, cursor))
	}
	return errors.WithHint(wrapped, fmt.Sprintf(resumeHintFormat, round, endRound))
}

func (r *Runner) countIssues(pending []issues.Issue) {
	if r.metrics == nil {
		return
	}
	byCategory := make(map[issues.Category]int, len(issues.Categories))
	for _, is := range pending {
		byCategory[is.Category]++
	}
	for cat, n := range byCategory {
		r.metrics.AddIssues(string(cat), n)
	}
}
