package store

import (
	"context"
	"database/sql"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/issues"
)

// Stats returns the statistics of jobID in insertion order.
func (s *Store) Stats(ctx context.Context, jobID int) ([]StatRow, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT job_id, stat_date, category, description, count
		FROM job_stats WHERE job_id = ?`), jobID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stats")
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var st StatRow
		if err := rows.Scan(&st.JobID, &st.Date, &st.Category, &st.Description, &st.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan stat")
		}
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate stats")
}

// IssueFilter narrows an issue listing. Zero fields match everything.
type IssueFilter struct {
	JobID    int
	PageID   int
	Category issues.Category
	Limit    int
}

// Issues lists stored issues ordered by page id.
func (s *Store) Issues(ctx context.Context, f IssueFilter) ([]issues.Issue, error) {
	query := `SELECT job_id, page_id, category, description FROM issue WHERE 1 = 1`
	var args []interface{}
	if f.JobID > 0 {
		query += ` AND job_id = ?`
		args = append(args, f.JobID)
	}
	if f.PageID > 0 {
		query += ` AND page_id = ?`
		args = append(args, f.PageID)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	query += ` ORDER BY job_id, page_id, description`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query issues")
	}
	defer rows.Close()

	var out []issues.Issue
	for rows.Next() {
		var (
			is  issues.Issue
			cat string
		)
		if err := rows.Scan(&is.JobID, &is.PageID, &cat, &is.Description); err != nil {
			return nil, errors.Wrap(err, "failed to scan issue")
		}
		is.Category = issues.Category(cat)
		out = append(out, is)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate issues")
}

// CacheMarker returns the timestamp recorded for jobType.
func (s *Store) CacheMarker(ctx context.Context, jobType string) (string, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT marked_at FROM cache_marker WHERE job_type = ?`), jobType).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.NewNotFoundError("no cache marker for %s", jobType)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read cache marker")
	}
	return ts, nil
}
