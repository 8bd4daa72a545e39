package store

import (
	"context"
	"database/sql"

	"github.com/werelate/dqa/errors"
)

// maxJob returns the highest job id in table, or ok=false when it is empty.
func (s *Store) maxJob(ctx context.Context, table string) (jobID int, ok bool, err error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(job_id) FROM `+table).Scan(&v); err != nil {
		return 0, false, errors.Wrapf(err, "failed to read latest job in %s", table)
	}
	return int(v.Int64), v.Valid, nil
}

// LatestAnalysisJob returns the job whose working set is in person_analysis.
func (s *Store) LatestAnalysisJob(ctx context.Context) (int, bool, error) {
	return s.maxJob(ctx, "person_analysis")
}

// LatestResultJob returns the newest job with flagged pages.
func (s *Store) LatestResultJob(ctx context.Context) (int, bool, error) {
	return s.maxJob(ctx, "result_page")
}

// LatestStatsJob returns the newest job with statistics.
func (s *Store) LatestStatsJob(ctx context.Context) (int, bool, error) {
	return s.maxJob(ctx, "job_stats")
}

// LatestIssueJob returns the newest job with issues.
func (s *Store) LatestIssueJob(ctx context.Context) (int, bool, error) {
	return s.maxJob(ctx, "issue")
}

// NextJobID returns one more than any job id with finalized output or
// issues, or 1 for an empty store.
func (s *Store) NextJobID(ctx context.Context) (int, error) {
	next := 1
	for _, fn := range []func(context.Context) (int, bool, error){
		s.LatestIssueJob, s.LatestResultJob, s.LatestStatsJob,
	} {
		id, ok, err := fn(ctx)
		if err != nil {
			return 0, err
		}
		if ok && id+1 > next {
			next = id + 1
		}
	}
	return next, nil
}
