package propagate

import "github.com/werelate/dqa/interval"

// SeedRound is the round that builds the working set from page facts.
const SeedRound = 1

// Policy decides which persons a round revisits.
type Policy struct {
	// IssueRound is the first round with relations available. It visits
	// every person and is the only round that raises issues.
	IssueRound int
	// NarrowWidth is the interval width at or below which later rounds
	// leave a person alone.
	NarrowWidth int
}

// DefaultPolicy returns the standard selection policy.
func DefaultPolicy() Policy {
	return Policy{IssueRound: 2, NarrowWidth: 10}
}

// RaisesIssues reports whether round evaluates the issue rules.
func (p Policy) RaisesIssues(round int) bool {
	return round == p.IssueRound
}

// Narrowed reports whether round only revisits under-determined persons.
func (p Policy) Narrowed(round int) bool {
	return round > p.IssueRound
}

// Selects reports whether round revisits person.
func (p Policy) Selects(round int, person interval.Person) bool {
	if round <= SeedRound {
		return false
	}
	if !p.Narrowed(round) {
		return true
	}
	if !person.LatestBirth.Set {
		return true
	}
	w, ok := person.Width()
	return ok && w > p.NarrowWidth
}
