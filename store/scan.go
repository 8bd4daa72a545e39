package store

import (
	"database/sql"

	"github.com/werelate/dqa/interval"
)

// personColumns is the column list shared by person_analysis and result_page.
const personColumns = `job_id, page_id, namespace, title,
		actual_birth_year, earliest_birth_year, latest_birth_year, latest_death_year,
		earliest_marriage_year, latest_marriage_year,
		parent_page, husband_page, wife_page,
		died_young, famous, ancient, born_before_marriage_ok, date_parse_error,
		last_editor, birth_calc_trace`

// candidateColumns are the columns a propagation round reads.
const candidateColumns = `page_id, title,
		actual_birth_year, earliest_birth_year, latest_birth_year, latest_death_year,
		parent_page,
		died_young, famous, ancient, born_before_marriage_ok, date_parse_error,
		last_editor, birth_calc_trace`

// PersonScanArgs holds the nullable and flag columns of a person row.
type PersonScanArgs struct {
	ParentPage     sql.NullString
	DiedYoung      int
	Famous         int
	Ancient        int
	Accepted       int
	DateParseError int
}

// GetPersonScanTargets returns scan targets in candidateColumns order.
func GetPersonScanTargets(p *interval.Person, args *PersonScanArgs) []interface{} {
	return []interface{}{
		&p.PageID,
		&p.Title,
		&p.ActualBirth,
		&p.EarliestBirth,
		&p.LatestBirth,
		&p.LatestDeath,
		&args.ParentPage,
		&args.DiedYoung,
		&args.Famous,
		&args.Ancient,
		&args.Accepted,
		&args.DateParseError,
		&p.LastEditor,
		&p.BirthCalc,
	}
}

// ProcessPersonScanArgs copies the scanned arguments into p.
func ProcessPersonScanArgs(p *interval.Person, args *PersonScanArgs) {
	if args.ParentPage.Valid {
		p.ParentPage = args.ParentPage.String
	}
	p.DiedYoung = args.DiedYoung != 0
	p.Famous = args.Famous != 0
	p.Ancient = args.Ancient != 0
	p.BornBeforeMarriageAccepted = args.Accepted != 0
	p.DateParseError = args.DateParseError != 0
}

// ScanPersonFromRows scans a single candidate from sql.Rows (for use in loops)
func ScanPersonFromRows(rows *sql.Rows, p *interval.Person) error {
	var args PersonScanArgs
	if err := rows.Scan(GetPersonScanTargets(p, &args)...); err != nil {
		return err
	}
	ProcessPersonScanArgs(p, &args)
	return nil
}

// flag stores a bool as 0/1; the flag columns are integers on every driver.
func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
