package interval

import "strings"

// Namespace identifies the kind of wiki page a record was extracted from.
type Namespace int

const (
	NamespacePerson Namespace = 108
	NamespaceFamily Namespace = 110
)

// Role is a person's position in a family.
type Role string

const (
	RoleHusband Role = "Husband"
	RoleWife    Role = "Wife"
)

// Person is the working copy of one person_analysis row.
type Person struct {
	PageID int
	Title  string

	ActualBirth   Year
	EarliestBirth Year
	LatestBirth   Year
	LatestDeath   Year

	// ParentPage is the title of the family the person is a child of, or empty.
	ParentPage string

	DiedYoung                  bool
	Famous                     bool
	Ancient                    bool
	BornBeforeMarriageAccepted bool
	DateParseError             bool

	LastEditor string

	// BirthCalc is the serialized provenance trace.
	BirthCalc string
	// LastTightenedRound is the round of the most recent bound change.
	LastTightenedRound int
}

// Family is the working copy of one family row.
type Family struct {
	PageID int
	Title  string

	EarliestMarriage Year
	LatestMarriage   Year

	HusbandPage string
	WifePage    string

	LastEditor string
}

// NormalizeTitle converts a page title to the stored key form.
func NormalizeTitle(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// RaiseEarliest moves EarliestBirth up to v when that is strictly tighter.
func (p *Person) RaiseEarliest(v int) bool {
	if p.EarliestBirth.Set && v <= p.EarliestBirth.N {
		return false
	}
	p.EarliestBirth = YearOf(v)
	return true
}

// LowerLatest moves LatestBirth down to v when that is strictly tighter.
func (p *Person) LowerLatest(v int) bool {
	if p.LatestBirth.Set && v >= p.LatestBirth.N {
		return false
	}
	p.LatestBirth = YearOf(v)
	return true
}

// Complete seeds whichever bound is missing from the other one, using the
// lifespan as a loose counter-bound.
func (p *Person) Complete(lifespan int) {
	switch {
	case p.EarliestBirth.Set && !p.LatestBirth.Set:
		p.LatestBirth = YearOf(p.EarliestBirth.N + lifespan)
	case p.LatestBirth.Set && !p.EarliestBirth.Set:
		p.EarliestBirth = YearOf(p.LatestBirth.N - lifespan)
	}
}

// Crossed reports whether both bounds are set and earliest exceeds latest.
func (p *Person) Crossed() bool {
	return p.EarliestBirth.Set && p.LatestBirth.Set && p.EarliestBirth.N > p.LatestBirth.N
}

// Width returns latest minus earliest. ok is false unless both are set.
func (p *Person) Width() (width int, ok bool) {
	if !p.EarliestBirth.Set || !p.LatestBirth.Set {
		return 0, false
	}
	return p.LatestBirth.N - p.EarliestBirth.N, true
}

// Note appends a trace entry for the current bounds and marks the round.
func (p *Person) Note(round int, source, reference string) {
	entry := TraceEntry{
		Source:    source,
		Reference: reference,
		Earliest:  p.EarliestBirth,
		Latest:    p.LatestBirth,
	}
	p.BirthCalc = AppendTrace(p.BirthCalc, entry)
	p.LastTightenedRound = round
}

// TightenedIn reports whether the person changed during round.
func (p *Person) TightenedIn(round int) bool {
	return p.LastTightenedRound == round
}
