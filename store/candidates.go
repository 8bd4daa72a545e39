package store

import (
	"context"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
)

// CandidateQuery selects one page of persons for a propagation round.
type CandidateQuery struct {
	JobID int
	// After is the cursor: only page ids greater than After are returned.
	After int
	Limit int
	// Narrow restricts the page to persons whose latest birth is unset or
	// whose interval is wider than NarrowWidth.
	Narrow      bool
	NarrowWidth int
}

// Candidates returns the next page of persons ordered by page id.
func (s *Store) Candidates(ctx context.Context, cq CandidateQuery) ([]interval.Person, error) {
	query := `SELECT ` + candidateColumns + `
		FROM person_analysis
		WHERE job_id = ? AND namespace = ? AND page_id > ?`
	args := []interface{}{cq.JobID, int(interval.NamespacePerson), cq.After}
	if cq.Narrow {
		query += ` AND (latest_birth_year IS NULL OR latest_birth_year - earliest_birth_year > ?)`
		args = append(args, cq.NarrowWidth)
	}
	query += ` ORDER BY page_id LIMIT ?`
	args = append(args, cq.Limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query candidates after page %d", cq.After)
	}
	defer rows.Close()

	batch := make([]interval.Person, 0, cq.Limit)
	for rows.Next() {
		var p interval.Person
		if err := ScanPersonFromRows(rows, &p); err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate")
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate candidates")
	}
	return batch, nil
}
