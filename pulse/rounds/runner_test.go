package rounds

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werelate/dqa/db"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/internal/metrics"
	dqatest "github.com/werelate/dqa/internal/testing"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
	"github.com/werelate/dqa/ixgest/facts"
	"github.com/werelate/dqa/propagate"
	"github.com/werelate/dqa/store"
)

// John (b. 1820) and Mary (no dates) married in 1845; their son Kid was
// born in 1843 and has no gender.
const leeFamily = `title: Person:John Lee (1)
page_id: 1
gender: M
events:
  - type: Birth
    date: "1820"
---
title: Person:Mary Roe (1)
page_id: 2
gender: F
---
title: Person:Kid Lee (1)
page_id: 3
child_of_family:
  - Family:John Lee and Mary Roe (1)
events:
  - type: Birth
    date: "1843"
---
title: Family:John Lee and Mary Roe (1)
page_id: 10
husband:
  - Person:John Lee (1)
wife:
  - Person:Mary Roe (1)
events:
  - type: Marriage
    date: "1845"
`

var fixedNow = time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		PageSize:        2,
		PersonFlushRows: 2,
		IssueFlushRows:  1,
		KeptJobs:        2,
		Thresholds:      interval.DefaultThresholds(),
		Policy:          propagate.DefaultPolicy(),
	}
}

func newSource() *facts.Source {
	ex := facts.NewExtractor(interval.DefaultThresholds(), fixedNow.Year())
	return facts.NewSource(strings.NewReader(leeFamily), ex)
}

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(dqatest.CreateTestDB(t), db.DriverSQLite, store.Options{})
	require.NoError(t, err)
	return s
}

type recordingEmitter struct {
	stages   []string
	errors   []string
	infos    []string
	progress []map[string]interface{}
	complete map[string]interface{}
}

func (e *recordingEmitter) EmitStage(stage string, _ string) { e.stages = append(e.stages, stage) }
func (e *recordingEmitter) EmitProgress(_ int, metadata map[string]interface{}) {
	e.progress = append(e.progress, metadata)
}
func (e *recordingEmitter) EmitComplete(summary map[string]interface{}) { e.complete = summary }
func (e *recordingEmitter) EmitError(stage string, _ error)             { e.errors = append(e.errors, stage) }
func (e *recordingEmitter) EmitInfo(message string)                     { e.infos = append(e.infos, message) }

func person(t *testing.T, s *store.Store, jobID, pageID int) interval.Person {
	t.Helper()
	batch, err := s.Candidates(context.Background(), store.CandidateQuery{JobID: jobID, After: pageID - 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, pageID, batch[0].PageID)
	return batch[0]
}

func TestRunner_RestartAtRoundTwoIssuesNoSQL(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s, err := store.New(conn, db.DriverSQLite, store.Options{})
	require.NoError(t, err)

	sum, err := NewRunner(s, testConfig()).Run(context.Background(), Plan{StartRound: 2, EndRound: 4}, nil)
	require.Error(t, err)
	assert.Nil(t, sum)
	assert.True(t, errors.Is(err, ErrRestartAtRoundTwo))
	assert.True(t, errors.IsFatalConfig(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_FreshPlanNeedsSource(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s, err := store.New(conn, db.DriverSQLite, store.Options{})
	require.NoError(t, err)

	_, err = NewRunner(s, testConfig()).Run(context.Background(), Plan{StartRound: 1, EndRound: 4}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPlan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_FullJob(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	m := metrics.New()
	em := &recordingEmitter{}

	r := NewRunner(s, testConfig(), WithMetrics(m), WithEmitter(em), WithClock(func() time.Time { return fixedNow }))
	sum, err := r.Run(ctx, Plan{StartRound: 1, EndRound: 4}, newSource())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.JobID)
	assert.NotEmpty(t, sum.RunID)
	assert.True(t, sum.Finalized)
	assert.Equal(t, []string{"round 1", "round 2", "round 3", "round 4", "finalize"}, em.stages)
	assert.Empty(t, em.errors)
	assert.Empty(t, em.infos, "a fresh job extends nothing")
	assert.Equal(t, 1, em.complete["job_id"])
	require.NotEmpty(t, em.progress)
	assert.Equal(t, "rows", em.progress[0]["type"])
	assert.Equal(t, propagate.SeedRound, em.progress[0]["round"])
	last := em.progress[len(em.progress)-1]
	assert.Equal(t, "persons", last["type"])
	assert.Equal(t, 4, last["round"])

	require.Len(t, sum.Rounds, 4)
	seed := sum.Rounds[0]
	assert.Equal(t, 4, seed.Processed)
	assert.Equal(t, 4, seed.Updated)
	assert.Equal(t, 1, seed.Issues)

	second := sum.Rounds[1]
	assert.Equal(t, 3, second.Processed)
	assert.Equal(t, 2, second.Pages)
	assert.Equal(t, 1, second.Updated, "only Mary tightens")
	assert.Equal(t, 1, second.Issues)

	third := sum.Rounds[2]
	assert.Equal(t, 1, third.Processed, "only Mary is still wide")
	assert.Equal(t, 0, third.Updated)
	assert.Equal(t, 0, third.Issues)

	mary := person(t, s, 1, 2)
	assert.Equal(t, interval.YearOf(1793), mary.EarliestBirth)
	assert.Equal(t, interval.YearOf(1831), mary.LatestBirth)
	assert.Equal(t, "child: <Kid_Lee_(1)> 1793,1903; child: <Kid_Lee_(1)> 1793,1831", mary.BirthCalc)

	stored, err := s.Issues(ctx, store.IssueFilter{JobID: 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []issues.Issue{
		{JobID: 1, PageID: 3, Category: issues.CategoryAnomaly, Description: issues.DescBornBeforeMarriage},
		{JobID: 1, PageID: 3, Category: issues.CategoryIncomplete, Description: issues.DescMissingGender},
	}, stored)
	assert.Equal(t, 2, sum.IssuesRaised)

	assert.Equal(t, 1, sum.Finalize.Flagged, "only Kid carries issues")
	stats := map[string]int{}
	for _, st := range sum.Finalize.Stats {
		stats[st.Description] = st.Count
		assert.Equal(t, "2024-06-14", st.Date)
	}
	assert.Equal(t, 3, stats[store.StatPersonPages])

	marker, err := s.CacheMarker(ctx, store.CacheMarkerJobType)
	require.NoError(t, err)
	assert.Equal(t, "20240615083000", marker)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Seeded.WithLabelValues("person")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Seeded.WithLabelValues("family")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Issues.WithLabelValues("Anomaly")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Issues.WithLabelValues("Incomplete")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pages.WithLabelValues("2")))
}

// failingStore fails every page commit of one round.
type failingStore struct {
	*store.Store
	failRound int
}

func (f *failingStore) CommitPage(ctx context.Context, jobID, round int, batch []interval.Person, pending []issues.Issue) (int, error) {
	if round == f.failRound {
		return 0, errors.New("disk I/O error")
	}
	return f.Store.CommitPage(ctx, jobID, round, batch, pending)
}

// narrowFailingStore fails the second candidate read of every narrowing
// round, after the first page was committed.
type narrowFailingStore struct {
	*store.Store
}

func (f *narrowFailingStore) Candidates(ctx context.Context, cq store.CandidateQuery) ([]interval.Person, error) {
	if cq.Narrow && cq.After > 0 {
		return nil, errors.New("database is locked")
	}
	return f.Store.Candidates(ctx, cq)
}

func TestRunner_ResumeAfterCommittedPage(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	cfg := testConfig()
	cfg.PageSize = 1
	clock := WithClock(func() time.Time { return fixedNow })

	_, err := NewRunner(&narrowFailingStore{Store: s}, cfg, clock).
		Run(ctx, Plan{StartRound: 1, EndRound: 4}, newSource())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 1 round 3 page after 2")
	assert.Contains(t, errors.FlattenHints(err), "--start-round 3 --end-round 4 --resume-after 2")

	em := &recordingEmitter{}
	sum, err := NewRunner(s, cfg, clock, WithEmitter(em)).
		Run(ctx, Plan{StartRound: 3, EndRound: 4, ResumeAfter: 2}, nil)
	require.NoError(t, err)
	assert.True(t, sum.Finalized)
	require.Len(t, sum.Rounds, 2)
	assert.Equal(t, 0, sum.Rounds[0].Processed, "Mary was committed before the failure")
	assert.Equal(t, 1, sum.Rounds[1].Processed, "round 4 starts from the first page")
	assert.Equal(t, []string{"extending job 1 from round 3 after page 2"}, em.infos)
}

func TestRunner_PageFailureStopsRoundAndResumes(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	m := metrics.New()
	clock := WithClock(func() time.Time { return fixedNow })

	failing := &failingStore{Store: s, failRound: 3}
	sum, err := NewRunner(failing, testConfig(), WithMetrics(m), clock).
		Run(ctx, Plan{StartRound: 1, EndRound: 4}, newSource())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 1 round 3 page after 0")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Contains(t, errors.FlattenHints(err), "--start-round 3 --end-round 4")
	assert.NotContains(t, errors.FlattenHints(err), "--resume-after")
	assert.False(t, errors.IsFatalConfig(err))

	require.NotNil(t, sum)
	assert.False(t, sum.Finalized)
	assert.Len(t, sum.Rounds, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PageFailure.WithLabelValues("3")))

	_, err = s.CacheMarker(ctx, store.CacheMarkerJobType)
	assert.True(t, errors.IsNotFoundError(err), "nothing is finalized after a failed page")

	sum, err = NewRunner(s, testConfig(), clock).Run(ctx, Plan{StartRound: 3, EndRound: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.JobID, "the seeded job is extended")
	assert.True(t, sum.Finalized)
	assert.Equal(t, 0, sum.IssuesRaised)

	stored, err := s.Issues(ctx, store.IssueFilter{JobID: 1})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	t.Run("a finalized job cannot be extended", func(t *testing.T) {
		_, err := NewRunner(s, testConfig(), clock).Run(ctx, Plan{StartRound: 3, EndRound: 5}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAlreadyFinalized))
	})

	t.Run("a fresh job takes the next id", func(t *testing.T) {
		sum, err := NewRunner(s, testConfig(), clock).Run(ctx, Plan{StartRound: 1, EndRound: 2}, newSource())
		require.NoError(t, err)
		assert.Equal(t, 2, sum.JobID)
		assert.Equal(t, 2, sum.IssuesRaised)
	})
}
