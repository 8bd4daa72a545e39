package store

import (
	"context"
	"database/sql"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
)

const updateBounds = `UPDATE person_analysis
	SET earliest_birth_year = ?, latest_birth_year = ?, birth_calc_trace = ?
	WHERE job_id = ? AND page_id = ?`

// CommitPage writes the bounds of every person tightened in round together
// with the page's issues as one transaction. It returns the number of
// persons updated. On failure nothing of the page is kept.
func (s *Store) CommitPage(ctx context.Context, jobID, round int, batch []interval.Person, pending []issues.Issue) (int, error) {
	updated := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		updated = 0
		stmt, err := tx.PrepareContext(ctx, s.q(updateBounds))
		if err != nil {
			return errors.Wrap(err, "failed to prepare bound update")
		}
		defer stmt.Close()

		for i := range batch {
			p := &batch[i]
			if !p.TightenedIn(round) {
				continue
			}
			if _, err := stmt.ExecContext(ctx, p.EarliestBirth, p.LatestBirth, p.BirthCalc, jobID, p.PageID); err != nil {
				return errors.Wrapf(err, "failed to update page %d", p.PageID)
			}
			updated++
		}
		return s.insertIssuesTx(ctx, tx, pending)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
