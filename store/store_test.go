package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werelate/dqa/db"
	dqatest "github.com/werelate/dqa/internal/testing"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
)

var y = interval.YearOf

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	conn := dqatest.CreateTestDB(t)
	s, err := New(conn, db.DriverSQLite, Options{})
	require.NoError(t, err)
	return s, conn
}

// seedFamily writes John and Mary, married 1850, with children Kid and Kid2.
func seedFamily(t *testing.T, s *Store, jobID int) {
	t.Helper()
	persons := []interval.Person{
		{PageID: 1, Title: "John", ActualBirth: y(1820), EarliestBirth: y(1820), LatestBirth: y(1820), LatestDeath: y(1880)},
		{PageID: 2, Title: "Mary", EarliestBirth: y(1825), LatestBirth: y(1830)},
		{PageID: 3, Title: "Kid", ParentPage: "John_and_Mary", EarliestBirth: y(1852), LatestBirth: y(1852)},
		{PageID: 4, Title: "Kid2", ParentPage: "John_and_Mary", Famous: true},
	}
	families := []interval.Family{
		{PageID: 1000, Title: "John_and_Mary", EarliestMarriage: y(1850), LatestMarriage: y(1850), HusbandPage: "John", WifePage: "Mary"},
	}
	require.NoError(t, s.InsertSeed(context.Background(), jobID, persons, families, nil))
}

func TestInsertSeedAndCandidates(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	seedFamily(t, s, 1)

	assert.Equal(t, 4, dqatest.CountRows(t, conn, "person_analysis", "job_id = 1 AND namespace = 108"))

	page, err := s.Candidates(ctx, CandidateQuery{JobID: 1, After: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "John", page[0].Title)
	assert.Equal(t, y(1880), page[0].LatestDeath)
	assert.Equal(t, "Mary", page[1].Title)

	page, err = s.Candidates(ctx, CandidateQuery{JobID: 1, After: page[1].PageID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Kid", page[0].Title)
	assert.Equal(t, "John_and_Mary", page[0].ParentPage)
	assert.True(t, page[1].Famous)
	assert.False(t, page[1].EarliestBirth.Set)

	page, err = s.Candidates(ctx, CandidateQuery{JobID: 1, After: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page, "family rows are never candidates")

	t.Run("narrow rounds skip tight intervals", func(t *testing.T) {
		page, err := s.Candidates(ctx, CandidateQuery{JobID: 1, Limit: 10, Narrow: true, NarrowWidth: 3})
		require.NoError(t, err)
		var titles []string
		for _, p := range page {
			titles = append(titles, p.Title)
		}
		assert.Equal(t, []string{"Mary", "Kid2"}, titles)
	})
}

func TestRelations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedFamily(t, s, 1)

	batch, err := s.Candidates(ctx, CandidateQuery{JobID: 1, Limit: 10})
	require.NoError(t, err)

	rel, err := s.Relations(ctx, 1, batch)
	require.NoError(t, err)

	require.Len(t, rel.Children, 4)
	assert.Equal(t, interval.ChildLink{ParentTitle: "John", Role: interval.RoleHusband, ChildTitle: "Kid", ChildEarliest: y(1852), ChildLatest: y(1852)}, rel.Children[0])
	assert.Equal(t, interval.RoleWife, rel.Children[2].Role)

	require.Len(t, rel.Spouses, 2)
	assert.Equal(t, interval.SpouseLink{
		FamilyPageID: 1000, Role: interval.RoleHusband, Title: "John", SpouseTitle: "Mary",
		EarliestMarriage: y(1850), LatestMarriage: y(1850),
		SpouseEarliest: y(1825), SpouseLatest: y(1830),
	}, rel.Spouses[0])
	assert.Equal(t, "Mary", rel.Spouses[1].Title)

	require.Len(t, rel.Parents, 1)
	par := rel.Parents[0]
	assert.Equal(t, "John_and_Mary", par.FamilyTitle)
	assert.Equal(t, y(1850), par.EarliestMarriage)
	assert.Equal(t, interval.ParentFacts{Title: "John", Actual: y(1820), Earliest: y(1820), Latest: y(1820), LatestDeath: y(1880)}, par.Father)
	assert.Equal(t, "Mary", par.Mother.Title)
	assert.Equal(t, y(1830), par.Mother.Latest)

	require.Len(t, rel.Siblings, 2)
	assert.Equal(t, "Kid", rel.Siblings[0].Title)
	assert.Equal(t, "Kid2", rel.Siblings[1].Title)
}

func TestParentsMissingFamilyAndSpouse(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertSeed(ctx, 1,
		[]interval.Person{{PageID: 1, Title: "Solo", ParentPage: "Nowhere"}},
		[]interval.Family{{PageID: 50, Title: "Solo_and_Unknown", HusbandPage: "Solo", EarliestMarriage: y(1900)}},
		nil))

	parents, err := s.Parents(ctx, 1, []string{"Nowhere"})
	require.NoError(t, err)
	assert.Empty(t, parents)

	spouses, err := s.Spouses(ctx, 1, []string{"Solo"})
	require.NoError(t, err)
	require.Len(t, spouses, 1)
	assert.Equal(t, "", spouses[0].SpouseTitle)
	assert.False(t, spouses[0].SpouseEarliest.Set)
}

func TestFamilyCache(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	seedFamily(t, s, 1)

	_, err := s.Parents(ctx, 1, []string{"John_and_Mary"})
	require.NoError(t, err)

	// family rows are served from cache, parent dates are not
	_, err = conn.Exec(`DELETE FROM person_analysis WHERE namespace = 110`)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE person_analysis SET latest_birth_year = 1827 WHERE title = 'Mary'`)
	require.NoError(t, err)

	parents, err := s.Parents(ctx, 1, []string{"John_and_Mary"})
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, y(1850), parents[0].LatestMarriage)
	assert.Equal(t, y(1827), parents[0].Mother.Latest)

	require.NoError(t, s.ResetAnalysis(ctx))
	parents, err = s.Parents(ctx, 1, []string{"John_and_Mary"})
	require.NoError(t, err)
	assert.Empty(t, parents, "reset flushes the family cache")
}

func TestCommitPageWritesOnlyTightenedRows(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	seedFamily(t, s, 1)

	batch, err := s.Candidates(ctx, CandidateQuery{JobID: 1, Limit: 10})
	require.NoError(t, err)
	batch[1].LowerLatest(1828)
	batch[1].Note(2, "spouse", "John")
	batch[3].LatestBirth = y(1700) // changed but not noted for this round

	pending := []issues.Issue{{JobID: 1, PageID: 3, Category: issues.CategoryAnomaly, Description: issues.DescBornBeforeMarriage}}
	updated, err := s.CommitPage(ctx, 1, 2, batch, pending)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var latest int
	var trace string
	require.NoError(t, conn.QueryRow(`SELECT latest_birth_year, birth_calc_trace FROM person_analysis WHERE title = 'Mary'`).Scan(&latest, &trace))
	assert.Equal(t, 1828, latest)
	assert.Equal(t, "spouse: <John> 1825,1828", trace)

	var kid2 sql.NullInt64
	require.NoError(t, conn.QueryRow(`SELECT latest_birth_year FROM person_analysis WHERE title = 'Kid2'`).Scan(&kid2))
	assert.False(t, kid2.Valid)

	assert.Equal(t, 1, dqatest.CountRows(t, conn, "issue", "job_id = ?", 1))
}

func TestIssueDedupAcrossFlushes(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	is := issues.Issue{JobID: 4, PageID: 9, Category: issues.CategoryError, Description: "Born after mother died"}

	require.NoError(t, s.InsertIssues(ctx, []issues.Issue{is}))
	require.NoError(t, s.InsertIssues(ctx, []issues.Issue{is, is}))
	assert.Equal(t, 1, dqatest.CountRows(t, conn, "issue", ""))

	keys, err := s.IssueKeys(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []issues.Key{{PageID: 9, Description: "Born after mother died"}}, keys)

	list, err := s.Issues(ctx, IssueFilter{JobID: 4, PageID: 9})
	require.NoError(t, err)
	assert.Equal(t, []issues.Issue{is}, list)
}

func TestNextJobID(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	next, err := s.NextJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	_, err = conn.Exec(`INSERT INTO job_stats (job_id, stat_date, category, description, count) VALUES (6, '2024-01-01', 'Growth', 'Person pages', 1)`)
	require.NoError(t, err)
	require.NoError(t, s.InsertIssues(ctx, []issues.Issue{{JobID: 4, PageID: 1, Category: issues.CategoryError, Description: "x"}}))

	next, err = s.NextJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, next)

	_, ok, err := s.LatestAnalysisJob(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFinalize(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	// two older finalized jobs
	for _, job := range []int{1, 2} {
		_, err := conn.Exec(`INSERT INTO result_page (job_id, page_id, namespace, title) VALUES (?, 1, 108, 'Old')`, job)
		require.NoError(t, err)
		require.NoError(t, s.InsertIssues(ctx, []issues.Issue{{JobID: job, PageID: 1, Category: issues.CategoryIncomplete, Description: issues.DescMissingGender}}))
	}

	persons := []interval.Person{
		{PageID: 1, Title: "Old", EarliestBirth: y(1800), LatestBirth: y(1850), LatestDeath: y(1900)},
		{PageID: 2, Title: "Young", EarliestBirth: y(1950), LatestBirth: y(1990)},
		{PageID: 3, Title: "Undated"},
		{PageID: 4, Title: "Crossed", EarliestBirth: y(1900), LatestBirth: y(1890), LatestDeath: y(1950)},
		{PageID: 5, Title: "Flagged", EarliestBirth: y(1800), LatestBirth: y(1810), LatestDeath: y(1870)},
	}
	families := []interval.Family{{PageID: 100, Title: "Fam"}}
	pending := []issues.Issue{
		{JobID: 3, PageID: 5, Category: issues.CategoryAnomaly, Description: issues.DescBornBeforeMarriage},
		{JobID: 3, PageID: 100, Category: issues.CategoryError, Description: "Husband older than 125 at marriage"},
	}
	require.NoError(t, s.InsertSeed(ctx, 3, persons, families, pending))

	sum, err := s.Finalize(ctx, FinalizeParams{
		JobID:       3,
		StartedAt:   time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC),
		Now:         time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
		LivingYears: 110,
		KeptJobs:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Flagged)
	assert.Equal(t, []int{1}, sum.PurgedJobs)

	assert.Equal(t, 0, dqatest.CountRows(t, conn, "result_page", "job_id = 1"))
	assert.Equal(t, 0, dqatest.CountRows(t, conn, "issue", "job_id = 1"))
	assert.Equal(t, 1, dqatest.CountRows(t, conn, "result_page", "job_id = 2"))
	assert.Equal(t, 1, dqatest.CountRows(t, conn, "issue", "job_id = 2"))
	assert.Equal(t, 5, dqatest.CountRows(t, conn, "result_page", "job_id = 3"))
	assert.Equal(t, 0, dqatest.CountRows(t, conn, "result_page", "title = 'Old' AND job_id = 3"))
	// family pages are copied only because of their issues
	assert.Equal(t, 1, dqatest.CountRows(t, conn, "result_page", "job_id = 3 AND page_id = 100 AND namespace = 110"))

	stats, err := s.Stats(ctx, 3)
	require.NoError(t, err)
	got := make(map[string]int)
	for _, st := range stats {
		assert.Equal(t, "2024-06-14", st.Date)
		got[st.Category+"/"+st.Description] = st.Count
	}
	assert.Equal(t, map[string]int{
		"Growth/Person pages":                                 5,
		"Living/Potentially living":                           1,
		"Living/Considered living":                            1,
		"Incomplete/No dates within a few generations":        1,
		"Relationship/Inter-generational chronological issue": 1,
		"Anomaly/Born before parents' marriage":               1,
		"Error/Husband older than 125 at marriage":            1,
	}, got)

	marker, err := s.CacheMarker(ctx, CacheMarkerJobType)
	require.NoError(t, err)
	assert.Equal(t, "20240615083000", marker)

	latest, ok, err := s.LatestResultJob(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, latest)
}

func TestFinalize_PurgesOlderJobsWhenNothingFlagged(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	for _, job := range []int{1, 2} {
		_, err := conn.Exec(`INSERT INTO result_page (job_id, page_id, namespace, title) VALUES (?, 1, 108, 'Old')`, job)
		require.NoError(t, err)
	}
	persons := []interval.Person{
		{PageID: 1, Title: "Settled", EarliestBirth: y(1800), LatestBirth: y(1810), LatestDeath: y(1870)},
	}
	require.NoError(t, s.InsertSeed(ctx, 3, persons, nil, nil))

	sum, err := s.Finalize(ctx, FinalizeParams{
		JobID:       3,
		StartedAt:   time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC),
		Now:         time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
		LivingYears: 110,
		KeptJobs:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Flagged)
	assert.Equal(t, []int{1}, sum.PurgedJobs)
	assert.Equal(t, 0, dqatest.CountRows(t, conn, "result_page", "job_id = 1"))
	assert.Equal(t, 1, dqatest.CountRows(t, conn, "result_page", "job_id = 2"))
	assert.Equal(t, 0, dqatest.CountRows(t, conn, "result_page", "job_id = 3"))
}

func TestCacheMarkerMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.CacheMarker(context.Background(), CacheMarkerJobType)
	require.Error(t, err)
}
