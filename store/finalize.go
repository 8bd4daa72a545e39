package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
)

// CacheMarkerJobType is the cache_marker key written by a finished job.
const CacheMarkerJobType = "AnalyzeDataQuality"

// Stat categories and descriptions written by Finalize.
const (
	StatGrowth       = "Growth"
	StatLiving       = "Living"
	StatIncomplete   = "Incomplete"
	StatRelationship = "Relationship"

	StatPersonPages       = "Person pages"
	StatPotentiallyLiving = "Potentially living"
	StatConsideredLiving  = "Considered living"
	StatNoDates           = "No dates within a few generations"
	StatChronological     = "Inter-generational chronological issue"
)

// FinalizeParams configures Finalize.
type FinalizeParams struct {
	JobID int
	// StartedAt is the job start time recorded in cache_marker.
	StartedAt time.Time
	// Now anchors the living threshold and the statistics date.
	Now time.Time
	// LivingYears is the usual lifespan; persons possibly born after
	// Now.Year() - LivingYears and without a death count as living.
	LivingYears int
	// KeptJobs is how many of the most recent jobs keep result and issue rows.
	KeptJobs int
}

// StatRow is one job_stats row.
type StatRow struct {
	JobID       int
	Date        string
	Category    string
	Description string
	Count       int
}

// FinalizeSummary reports what Finalize wrote.
type FinalizeSummary struct {
	Flagged    int
	PurgedJobs []int
	Stats      []StatRow
}

// Finalize copies the job's interesting persons into result_page, purges
// result and issue rows of older jobs, writes the job's statistics and
// marks the run in cache_marker, all in one transaction.
func (s *Store) Finalize(ctx context.Context, fp FinalizeParams) (FinalizeSummary, error) {
	var sum FinalizeSummary
	livingTh := fp.Now.Year() - fp.LivingYears
	statDate := fp.Now.AddDate(0, 0, -1).Format("2006-01-02")

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sum = FinalizeSummary{}

		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM result_page WHERE job_id = ?`), fp.JobID); err != nil {
			return errors.Wrap(err, "failed to clear result_page")
		}
		res, err := tx.ExecContext(ctx, s.q(`INSERT INTO result_page (`+personColumns+`)
			SELECT `+personColumns+` FROM person_analysis p
			WHERE p.job_id = ?
			AND ((p.namespace = ? AND (p.earliest_birth_year > p.latest_birth_year
					OR ((p.latest_birth_year IS NULL OR p.latest_birth_year > ?) AND p.latest_death_year IS NULL)))
				OR EXISTS (SELECT 1 FROM issue i WHERE i.job_id = p.job_id AND i.page_id = p.page_id))
			ORDER BY p.page_id`),
			fp.JobID, int(interval.NamespacePerson), livingTh)
		if err != nil {
			return errors.Wrap(err, "failed to copy flagged pages")
		}
		if n, err := res.RowsAffected(); err == nil {
			sum.Flagged = int(n)
		}

		purged, err := s.purgeTx(ctx, tx, fp.JobID-fp.KeptJobs)
		if err != nil {
			return err
		}
		sum.PurgedJobs = purged

		stats, err := s.statsTx(ctx, tx, fp.JobID, statDate, livingTh)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO job_stats (job_id, stat_date, category, description, count)
			VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return errors.Wrap(err, "failed to prepare stats insert")
		}
		defer stmt.Close()
		for _, st := range stats {
			if _, err := stmt.ExecContext(ctx, st.JobID, st.Date, st.Category, st.Description, st.Count); err != nil {
				return errors.Wrapf(err, "failed to write stat %q", st.Description)
			}
		}
		sum.Stats = stats

		_, err = tx.ExecContext(ctx, s.q(`INSERT INTO cache_marker (job_type, marked_at) VALUES (?, ?)
			ON CONFLICT (job_type) DO UPDATE SET marked_at = excluded.marked_at`),
			CacheMarkerJobType, fp.StartedAt.Format("20060102150405"))
		return errors.Wrap(err, "failed to write cache marker")
	})
	if err != nil {
		return FinalizeSummary{}, err
	}
	return sum, nil
}

// purgeTx deletes result and issue rows of every job numbered at or below
// upTo and returns the purged job ids. Job ids are consecutive, so keeping
// the N most recent jobs means purging up to JobID-N.
func (s *Store) purgeTx(ctx context.Context, tx *sql.Tx, upTo int) ([]int, error) {
	rows, err := tx.QueryContext(ctx, s.q(`SELECT job_id FROM result_page WHERE job_id <= ?
		UNION SELECT job_id FROM issue WHERE job_id <= ? ORDER BY job_id DESC`), upTo, upTo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	var jobs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan job id")
		}
		jobs = append(jobs, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate jobs")
	}

	for _, id := range jobs {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM result_page WHERE job_id = ?`), id); err != nil {
			return nil, errors.Wrapf(err, "failed to purge result_page of job %d", id)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM issue WHERE job_id = ?`), id); err != nil {
			return nil, errors.Wrapf(err, "failed to purge issues of job %d", id)
		}
	}
	return jobs, nil
}

func (s *Store) statsTx(ctx context.Context, tx *sql.Tx, jobID int, date string, livingTh int) ([]StatRow, error) {
	person := int(interval.NamespacePerson)
	counts := []struct {
		category, description string
		query                 string
		args                  []interface{}
	}{
		{StatGrowth, StatPersonPages,
			`SELECT COUNT(*) FROM person_analysis WHERE job_id = ? AND namespace = ?`,
			[]interface{}{jobID, person}},
		{StatLiving, StatPotentiallyLiving,
			`SELECT COUNT(*) FROM result_page WHERE job_id = ? AND namespace = ?
				AND latest_birth_year > ? AND latest_death_year IS NULL AND famous = 0 AND died_young = 0`,
			[]interface{}{jobID, person, livingTh}},
		{StatLiving, StatConsideredLiving,
			`SELECT COUNT(*) FROM result_page WHERE job_id = ? AND namespace = ?
				AND earliest_birth_year > ? AND latest_death_year IS NULL AND famous = 0 AND died_young = 0`,
			[]interface{}{jobID, person, livingTh}},
		{StatIncomplete, StatNoDates,
			`SELECT COUNT(*) FROM result_page WHERE job_id = ? AND namespace = ?
				AND latest_birth_year IS NULL AND latest_death_year IS NULL AND famous = 0 AND died_young = 0`,
			[]interface{}{jobID, person}},
		{StatRelationship, StatChronological,
			`SELECT COUNT(*) FROM result_page WHERE job_id = ? AND namespace = ?
				AND latest_birth_year < earliest_birth_year`,
			[]interface{}{jobID, person}},
	}

	var out []StatRow
	for _, c := range counts {
		var n int
		if err := tx.QueryRowContext(ctx, s.q(c.query), c.args...).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "failed to count %q", c.description)
		}
		out = append(out, StatRow{JobID: jobID, Date: date, Category: c.category, Description: c.description, Count: n})
	}

	rows, err := tx.QueryContext(ctx, s.q(`SELECT category, description, COUNT(*) FROM issue
		WHERE job_id = ? GROUP BY category, description ORDER BY category, description`), jobID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count issues")
	}
	defer rows.Close()
	for rows.Next() {
		st := StatRow{JobID: jobID, Date: date}
		if err := rows.Scan(&st.Category, &st.Description, &st.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan issue count")
		}
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate issue counts")
}
