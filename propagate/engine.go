// Package propagate tightens birth-year intervals from family relations.
//
// One call to Apply processes one page of candidates against a snapshot of
// their relations. Bounds only ever narrow: a rule whose result is not
// strictly tighter than the current bound is ignored, so the outcome of a
// round does not depend on rule order and re-applying the same snapshot
// changes nothing.
package propagate

import (
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
)

// Trace sources
const (
	SourceChild          = "child"
	SourceOwnMarriage    = "own marriage"
	SourceSpouse         = "spouse"
	SourceParentMarriage = "parent's marriage"
	SourceMotherBirth    = "mother's birth"
	SourceFatherBirth    = "father's birth"
	SourceMotherDeath    = "mother's death"
	SourceFatherDeath    = "father's death"
	SourceSibling        = "sibling"
)

// Engine applies the tightening rules and, in the issue round, the
// data-quality checks.
type Engine struct {
	th      interval.Thresholds
	policy  Policy
	checker *issues.Checker
}

// NewEngine creates an engine with the given thresholds and selection policy.
func NewEngine(th interval.Thresholds, policy Policy) *Engine {
	return &Engine{
		th:      th,
		policy:  policy,
		checker: issues.NewChecker(th),
	}
}

// Policy returns the engine's selection policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Result summarizes one Apply call.
type Result struct {
	Processed int
	Tightened int
	Issues    int
}

// page is the working set of one Apply call.
type page struct {
	round   int
	batch   []interval.Person
	byTitle map[string]int
	byChild map[string][]int
}

func newPage(round int, batch []interval.Person) *page {
	p := &page{
		round:   round,
		batch:   batch,
		byTitle: make(map[string]int, len(batch)),
		byChild: make(map[string][]int),
	}
	for i := range batch {
		p.byTitle[batch[i].Title] = i
		if fam := batch[i].ParentPage; fam != "" {
			p.byChild[fam] = append(p.byChild[fam], i)
		}
	}
	return p
}

// Apply tightens batch in place from rel. Issues are raised on rec only in
// the policy's issue round; rec may be nil otherwise.
func (e *Engine) Apply(round int, batch []interval.Person, rel interval.Relations, rec issues.Recorder) Result {
	pg := newPage(round, batch)
	checking := rec != nil && e.policy.RaisesIssues(round)
	res := Result{Processed: len(batch)}

	for _, c := range rel.Children {
		if i, ok := pg.byTitle[c.ParentTitle]; ok {
			e.fromChild(pg, &batch[i], c)
		}
	}
	for _, s := range rel.Spouses {
		i, ok := pg.byTitle[s.Title]
		if !ok {
			continue
		}
		if checking {
			res.Issues += e.checker.Marriage(rec, &batch[i], s)
		}
		e.fromMarriage(pg, &batch[i], s)
	}
	for _, par := range rel.Parents {
		for _, i := range pg.byChild[par.FamilyTitle] {
			if checking {
				res.Issues += e.checker.Parents(rec, &batch[i], par)
			}
			e.fromParents(pg, &batch[i], par)
		}
	}
	for _, sib := range rel.Siblings {
		for _, i := range pg.byChild[sib.FamilyTitle] {
			if batch[i].Title == sib.Title {
				continue
			}
			e.fromSibling(pg, &batch[i], sib)
		}
	}

	for i := range batch {
		if batch[i].TightenedIn(round) {
			res.Tightened++
		}
	}
	return res
}

// raise and lower record a trace entry when the bound moved.
func (e *Engine) raise(pg *page, p *interval.Person, v int, source, ref string) {
	if !p.RaiseEarliest(v) {
		return
	}
	p.Complete(e.th.UsualLifespan)
	p.Note(pg.round, source, ref)
}

func (e *Engine) lower(pg *page, p *interval.Person, v int, source, ref string) {
	if !p.LowerLatest(v) {
		return
	}
	p.Complete(e.th.UsualLifespan)
	p.Note(pg.round, source, ref)
}

func (e *Engine) fromChild(pg *page, p *interval.Person, c interval.ChildLink) {
	oldest, youngest := e.th.OldestFather, e.th.YoungestFather
	if c.Role == interval.RoleWife {
		oldest, youngest = e.th.OldestMother, e.th.YoungestMother
	}
	if c.ChildEarliest.Set {
		e.raise(pg, p, c.ChildEarliest.N-oldest, SourceChild, c.ChildTitle)
	}
	if c.ChildLatest.Set {
		e.lower(pg, p, c.ChildLatest.N-youngest, SourceChild, c.ChildTitle)
	}
}

func (e *Engine) fromMarriage(pg *page, p *interval.Person, s interval.SpouseLink) {
	if s.EarliestMarriage.Set {
		e.raise(pg, p, s.EarliestMarriage.N-e.th.MaxMarriageAge, SourceOwnMarriage, "")
	}
	if s.LatestMarriage.Set {
		e.lower(pg, p, s.LatestMarriage.N-e.th.MinMarriageAge, SourceOwnMarriage, "")
	}
	if s.SpouseEarliest.Set {
		e.raise(pg, p, s.SpouseEarliest.N-e.th.MaxSpouseGap, SourceSpouse, s.SpouseTitle)
	}
	if s.SpouseLatest.Set {
		e.lower(pg, p, s.SpouseLatest.N+e.th.MaxSpouseGap, SourceSpouse, s.SpouseTitle)
	}
}

func (e *Engine) fromParents(pg *page, p *interval.Person, par interval.ParentLink) {
	// an exact birth year already says more than the marriage does
	if par.EarliestMarriage.Set && !p.ActualBirth.Set {
		e.raise(pg, p, par.EarliestMarriage.N, SourceParentMarriage, "")
	}
	if par.LatestMarriage.Set {
		e.lower(pg, p, par.LatestMarriage.N+e.th.MaxAfterParentMarriage, SourceParentMarriage, "")
	}

	m, f := par.Mother, par.Father
	if m.Earliest.Set {
		e.raise(pg, p, m.Earliest.N+e.th.YoungestMother, SourceMotherBirth, m.Title)
	}
	if m.Latest.Set {
		e.lower(pg, p, m.Latest.N+e.th.OldestMother, SourceMotherBirth, m.Title)
	}
	if f.Earliest.Set {
		e.raise(pg, p, f.Earliest.N+e.th.YoungestFather, SourceFatherBirth, f.Title)
	}
	if f.Latest.Set {
		e.lower(pg, p, f.Latest.N+e.th.OldestFather, SourceFatherBirth, f.Title)
	}
	if m.LatestDeath.Set {
		e.lower(pg, p, m.LatestDeath.N, SourceMotherDeath, "")
	}
	if f.LatestDeath.Set {
		e.lower(pg, p, f.LatestDeath.N+1, SourceFatherDeath, "")
	}
}

func (e *Engine) fromSibling(pg *page, p *interval.Person, sib interval.SiblingLink) {
	if sib.Earliest.Set {
		e.raise(pg, p, sib.Earliest.N-e.th.MaxSiblingGap, SourceSibling, sib.Title)
	}
	if sib.Latest.Set {
		e.lower(pg, p, sib.Latest.N+e.th.MaxSiblingGap, SourceSibling, sib.Title)
	}
}
