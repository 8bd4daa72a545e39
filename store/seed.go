package store

import (
	"context"
	"database/sql"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
)

const insertAnalysisRow = `INSERT INTO person_analysis (` + personColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertIssueRow = `INSERT INTO issue (job_id, page_id, category, description, verified_by, viewed_by)
	VALUES (?, ?, ?, ?, '', '')
	ON CONFLICT (job_id, page_id, description) DO NOTHING`

// ResetAnalysis clears the working set before a fresh job seeds it.
func (s *Store) ResetAnalysis(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Truncate("person_analysis")); err != nil {
		return errors.Wrap(err, "failed to clear person_analysis")
	}
	s.families.Flush()
	return nil
}

// InsertSeed writes one flush of seeded persons, families and issues as a
// single transaction.
func (s *Store) InsertSeed(ctx context.Context, jobID int, persons []interval.Person, families []interval.Family, pending []issues.Issue) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if len(persons)+len(families) > 0 {
			stmt, err := tx.PrepareContext(ctx, s.q(insertAnalysisRow))
			if err != nil {
				return errors.Wrap(err, "failed to prepare analysis insert")
			}
			defer stmt.Close()

			for i := range persons {
				p := &persons[i]
				_, err := stmt.ExecContext(ctx,
					jobID, p.PageID, int(interval.NamespacePerson), p.Title,
					p.ActualBirth, p.EarliestBirth, p.LatestBirth, p.LatestDeath,
					nil, nil,
					nullString(p.ParentPage), nil, nil,
					flag(p.DiedYoung), flag(p.Famous), flag(p.Ancient),
					flag(p.BornBeforeMarriageAccepted), flag(p.DateParseError),
					p.LastEditor, p.BirthCalc,
				)
				if err != nil {
					return errors.Wrapf(err, "failed to insert person %s", p.Title)
				}
			}
			for i := range families {
				f := &families[i]
				_, err := stmt.ExecContext(ctx,
					jobID, f.PageID, int(interval.NamespaceFamily), f.Title,
					nil, nil, nil, nil,
					f.EarliestMarriage, f.LatestMarriage,
					nil, nullString(f.HusbandPage), nullString(f.WifePage),
					0, 0, 0, 0, 0,
					f.LastEditor, "",
				)
				if err != nil {
					return errors.Wrapf(err, "failed to insert family %s", f.Title)
				}
			}
		}
		return s.insertIssuesTx(ctx, tx, pending)
	})
}

// InsertIssues writes issues in one transaction. Issues already stored for
// the same job, page and description are skipped.
func (s *Store) InsertIssues(ctx context.Context, pending []issues.Issue) error {
	if len(pending) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertIssuesTx(ctx, tx, pending)
	})
}

func (s *Store) insertIssuesTx(ctx context.Context, tx *sql.Tx, pending []issues.Issue) error {
	if len(pending) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.q(insertIssueRow))
	if err != nil {
		return errors.Wrap(err, "failed to prepare issue insert")
	}
	defer stmt.Close()

	for _, is := range pending {
		if _, err := stmt.ExecContext(ctx, is.JobID, is.PageID, string(is.Category), is.Description); err != nil {
			return errors.Wrapf(err, "failed to insert issue %q for page %d", is.Description, is.PageID)
		}
	}
	return nil
}

// IssueKeys returns the dedup keys of every issue stored for jobID.
func (s *Store) IssueKeys(ctx context.Context, jobID int) ([]issues.Key, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT page_id, description FROM issue WHERE job_id = ?`), jobID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query issue keys")
	}
	defer rows.Close()

	var keys []issues.Key
	for rows.Next() {
		var k issues.Key
		if err := rows.Scan(&k.PageID, &k.Description); err != nil {
			return nil, errors.Wrap(err, "failed to scan issue key")
		}
		keys = append(keys, k)
	}
	return keys, errors.Wrap(rows.Err(), "failed to iterate issue keys")
}
