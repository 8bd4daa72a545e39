package issues

import (
	"fmt"
	"strings"

	"github.com/werelate/dqa/interval"
)

// Checker evaluates the round-2 rules against one person's own dates and a
// relation read from the store. Every rule compares exact years only, so the
// outcome does not depend on the order in which tightening rules ran.
type Checker struct {
	th interval.Thresholds
}

// NewChecker creates a checker using th.
func NewChecker(th interval.Thresholds) *Checker {
	return &Checker{th: th}
}

// Marriage checks the person's age at one of their own marriages. Findings
// are raised against the family page.
func (c *Checker) Marriage(r Recorder, p *interval.Person, link interval.SpouseLink) int {
	n := 0
	raise := func(cat Category, desc string) {
		if r.Raise(link.FamilyPageID, cat, desc) {
			n++
		}
	}
	role := string(link.Role)

	if link.LatestMarriage.Set && p.ActualBirth.Set &&
		link.LatestMarriage.N < p.ActualBirth.N+c.th.MinMarriageAge {
		raise(CategoryAnomaly, fmt.Sprintf("%s younger than %d at marriage", role, c.th.MinMarriageAge))
	}
	if link.EarliestMarriage.Set {
		if p.ActualBirth.Set {
			switch {
			case link.EarliestMarriage.N > p.ActualBirth.N+c.th.AbsLifespan:
				raise(CategoryError, fmt.Sprintf("%s older than %d at marriage", role, c.th.AbsLifespan))
			case link.EarliestMarriage.N > p.ActualBirth.N+c.th.MaxMarriageAge:
				raise(CategoryAnomaly, fmt.Sprintf("%s older than %d at marriage", role, c.th.MaxMarriageAge))
			}
		}
		if p.LatestDeath.Set && link.EarliestMarriage.N > p.LatestDeath.N {
			raise(CategoryError, "Married after death of "+strings.ToLower(role))
		}
	}
	return n
}

// Parents checks the person's birth against their parents' marriage, births
// and deaths. Nothing is checked without an exact birth year.
func (c *Checker) Parents(r Recorder, p *interval.Person, link interval.ParentLink) int {
	if !p.ActualBirth.Set {
		return 0
	}
	born := p.ActualBirth.N
	n := 0
	raise := func(cat Category, desc string) {
		if r.Raise(p.PageID, cat, desc) {
			n++
		}
	}

	if link.EarliestMarriage.Set && born < link.EarliestMarriage.N && !p.BornBeforeMarriageAccepted {
		raise(CategoryAnomaly, DescBornBeforeMarriage)
	}
	if !link.Mother.Actual.Set && !link.Father.Actual.Set && link.LatestMarriage.Set &&
		born > link.LatestMarriage.N+c.th.MaxAfterParentMarriage {
		raise(CategoryAnomaly, fmt.Sprintf("Born over %d after parents' marriage", c.th.MaxAfterParentMarriage))
	}

	if m := link.Mother.Actual; m.Set {
		c.parentAge(raise, born, m.N, "mother",
			c.th.AbsYoungestMother, c.th.YoungestMother, c.th.OldestMother, c.th.AbsOldestMother)
	}
	if f := link.Father.Actual; f.Set {
		c.parentAge(raise, born, f.N, "father",
			c.th.AbsYoungestFather, c.th.YoungestFather, c.th.OldestFather, c.th.AbsOldestFather)
	}

	if d := link.Mother.LatestDeath; d.Set && born > d.N {
		raise(CategoryError, DescBornAfterMotherDied)
	}
	// posthumous births are allowed up to a year after the father's death
	if d := link.Father.LatestDeath; d.Set && born > d.N+1 {
		raise(CategoryError, DescBornAfterFatherDied)
	}
	return n
}

// parentAge raises at most one issue per side: the Error when the absolute
// bound is crossed, otherwise the Anomaly for the usual bound.
func (c *Checker) parentAge(raise func(Category, string), born, parent int, who string, absYoungest, youngest, oldest, absOldest int) {
	switch {
	case born < parent+absYoungest:
		raise(CategoryError, fmt.Sprintf("Born before %s was %d", who, absYoungest))
	case born < parent+youngest:
		raise(CategoryAnomaly, fmt.Sprintf("Born before %s was %d", who, youngest))
	}
	switch {
	case born > parent+absOldest:
		raise(CategoryError, fmt.Sprintf("Born after %s was %d", who, absOldest))
	case born > parent+oldest:
		raise(CategoryAnomaly, fmt.Sprintf("Born after %s was %d", who, oldest))
	}
}
