package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
)

// Relations reads the relational context of a page of persons. All four
// queries run before any rule is applied, so the page sees related bounds as
// they stood at the start of the page.
func (s *Store) Relations(ctx context.Context, jobID int, batch []interval.Person) (interval.Relations, error) {
	var rel interval.Relations
	titles := interval.Titles(batch)
	families := interval.ParentPages(batch)

	// The queries only read; on sqlite they queue on the single connection.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rel.Children, err = s.Children(gctx, jobID, titles)
		return err
	})
	g.Go(func() (err error) {
		rel.Spouses, err = s.Spouses(gctx, jobID, titles)
		return err
	})
	g.Go(func() (err error) {
		rel.Parents, err = s.Parents(gctx, jobID, families)
		return err
	})
	g.Go(func() (err error) {
		rel.Siblings, err = s.Siblings(gctx, jobID, families)
		return err
	})
	if err := g.Wait(); err != nil {
		return interval.Relations{}, err
	}
	return rel, nil
}

// Children returns the children of every family in which one of titles is
// husband or wife.
func (s *Store) Children(ctx context.Context, jobID int, titles []string) ([]interval.ChildLink, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	var out []interval.ChildLink
	for _, side := range []struct {
		column string
		role   interval.Role
	}{
		{"f.husband_page", interval.RoleHusband},
		{"f.wife_page", interval.RoleWife},
	} {
		in, inArgs := s.dialect.In(side.column, titles)
		query := `SELECT ` + side.column + `, c.title, c.earliest_birth_year, c.latest_birth_year
			FROM person_analysis f
			JOIN person_analysis c ON c.parent_page = f.title AND c.job_id = f.job_id AND c.namespace = ?
			WHERE f.job_id = ? AND f.namespace = ? AND ` + in + `
			ORDER BY c.page_id`
		args := append([]interface{}{int(interval.NamespacePerson), jobID, int(interval.NamespaceFamily)}, inArgs...)

		rows, err := s.db.QueryContext(ctx, s.q(query), args...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query children")
		}
		for rows.Next() {
			link := interval.ChildLink{Role: side.role}
			if err := rows.Scan(&link.ParentTitle, &link.ChildTitle, &link.ChildEarliest, &link.ChildLatest); err != nil {
				rows.Close()
				return nil, errors.Wrap(err, "failed to scan child")
			}
			out = append(out, link)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to iterate children")
		}
	}
	return out, nil
}

// Spouses returns every family of titles with its marriage bounds and, when
// the other spouse has a page, their birth bounds.
func (s *Store) Spouses(ctx context.Context, jobID int, titles []string) ([]interval.SpouseLink, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	var out []interval.SpouseLink
	for _, side := range []struct {
		self, other string
		role        interval.Role
	}{
		{"f.husband_page", "f.wife_page", interval.RoleHusband},
		{"f.wife_page", "f.husband_page", interval.RoleWife},
	} {
		in, inArgs := s.dialect.In(side.self, titles)
		query := `SELECT f.page_id, ` + side.self + `, ` + side.other + `,
				f.earliest_marriage_year, f.latest_marriage_year,
				sp.earliest_birth_year, sp.latest_birth_year
			FROM person_analysis f
			LEFT JOIN person_analysis sp ON sp.title = ` + side.other + ` AND sp.job_id = f.job_id AND sp.namespace = ?
			WHERE f.job_id = ? AND f.namespace = ? AND ` + in + `
			ORDER BY f.page_id`
		args := append([]interface{}{int(interval.NamespacePerson), jobID, int(interval.NamespaceFamily)}, inArgs...)

		rows, err := s.db.QueryContext(ctx, s.q(query), args...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query spouses")
		}
		for rows.Next() {
			link := interval.SpouseLink{Role: side.role}
			var spouse sql.NullString
			if err := rows.Scan(&link.FamilyPageID, &link.Title, &spouse,
				&link.EarliestMarriage, &link.LatestMarriage,
				&link.SpouseEarliest, &link.SpouseLatest); err != nil {
				rows.Close()
				return nil, errors.Wrap(err, "failed to scan spouse")
			}
			link.SpouseTitle = spouse.String
			out = append(out, link)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to iterate spouses")
		}
	}
	return out, nil
}

// familyRow is the cached, seed-time part of a family.
type familyRow struct {
	found            bool
	EarliestMarriage interval.Year
	LatestMarriage   interval.Year
	HusbandPage      string
	WifePage         string
}

func familyKey(jobID int, title string) string {
	return fmt.Sprintf("%d/%s", jobID, title)
}

// Parents returns each family in titles with its marriage bounds and the
// current dates of husband and wife. Family rows never change after seeding
// and are served from the family cache; parent dates are always read fresh.
func (s *Store) Parents(ctx context.Context, jobID int, titles []string) ([]interval.ParentLink, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	fams, err := s.familyRows(ctx, jobID, titles)
	if err != nil {
		return nil, err
	}

	var parentTitles []string
	seen := make(map[string]bool)
	for _, t := range titles {
		f := fams[t]
		for _, p := range []string{f.HusbandPage, f.WifePage} {
			if p != "" && !seen[p] {
				seen[p] = true
				parentTitles = append(parentTitles, p)
			}
		}
	}
	facts, err := s.parentFacts(ctx, jobID, parentTitles)
	if err != nil {
		return nil, err
	}

	var out []interval.ParentLink
	for _, t := range titles {
		f := fams[t]
		if !f.found {
			continue
		}
		link := interval.ParentLink{
			FamilyTitle:      t,
			EarliestMarriage: f.EarliestMarriage,
			LatestMarriage:   f.LatestMarriage,
		}
		if f.HusbandPage != "" {
			link.Father = facts[f.HusbandPage]
			link.Father.Title = f.HusbandPage
		}
		if f.WifePage != "" {
			link.Mother = facts[f.WifePage]
			link.Mother.Title = f.WifePage
		}
		out = append(out, link)
	}
	return out, nil
}

// familyRows resolves family titles through the cache, loading misses in one
// query. Titles without a family page are cached as not found.
func (s *Store) familyRows(ctx context.Context, jobID int, titles []string) (map[string]familyRow, error) {
	out := make(map[string]familyRow, len(titles))
	var missing []string
	for _, t := range titles {
		if v, ok := s.families.Get(familyKey(jobID, t)); ok {
			out[t] = v.(familyRow)
			continue
		}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return out, nil
	}

	in, inArgs := s.dialect.In("title", missing)
	query := `SELECT title, earliest_marriage_year, latest_marriage_year, husband_page, wife_page
		FROM person_analysis
		WHERE job_id = ? AND namespace = ? AND ` + in
	args := append([]interface{}{jobID, int(interval.NamespaceFamily)}, inArgs...)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query parent families")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			title         string
			husband, wife sql.NullString
			f             = familyRow{found: true}
		)
		if err := rows.Scan(&title, &f.EarliestMarriage, &f.LatestMarriage, &husband, &wife); err != nil {
			return nil, errors.Wrap(err, "failed to scan parent family")
		}
		f.HusbandPage = husband.String
		f.WifePage = wife.String
		out[title] = f
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate parent families")
	}

	for _, t := range missing {
		s.families.SetDefault(familyKey(jobID, t), out[t])
	}
	return out, nil
}

func (s *Store) parentFacts(ctx context.Context, jobID int, titles []string) (map[string]interval.ParentFacts, error) {
	out := make(map[string]interval.ParentFacts, len(titles))
	if len(titles) == 0 {
		return out, nil
	}
	in, inArgs := s.dialect.In("title", titles)
	query := `SELECT title, actual_birth_year, earliest_birth_year, latest_birth_year, latest_death_year
		FROM person_analysis
		WHERE job_id = ? AND namespace = ? AND ` + in
	args := append([]interface{}{jobID, int(interval.NamespacePerson)}, inArgs...)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query parents")
	}
	defer rows.Close()

	for rows.Next() {
		var pf interval.ParentFacts
		if err := rows.Scan(&pf.Title, &pf.Actual, &pf.Earliest, &pf.Latest, &pf.LatestDeath); err != nil {
			return nil, errors.Wrap(err, "failed to scan parent")
		}
		out[pf.Title] = pf
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate parents")
}

// Siblings returns every child of the families in titles, including the
// persons of the page itself.
func (s *Store) Siblings(ctx context.Context, jobID int, titles []string) ([]interval.SiblingLink, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	in, inArgs := s.dialect.In("parent_page", titles)
	query := `SELECT parent_page, title, earliest_birth_year, latest_birth_year
		FROM person_analysis
		WHERE job_id = ? AND namespace = ? AND ` + in + `
		ORDER BY page_id`
	args := append([]interface{}{jobID, int(interval.NamespacePerson)}, inArgs...)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query siblings")
	}
	defer rows.Close()

	var out []interval.SiblingLink
	for rows.Next() {
		var sib interval.SiblingLink
		if err := rows.Scan(&sib.FamilyTitle, &sib.Title, &sib.Earliest, &sib.Latest); err != nil {
			return nil, errors.Wrap(err, "failed to scan sibling")
		}
		out = append(out, sib)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate siblings")
}
