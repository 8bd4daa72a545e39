package interval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaiseEarliestOnlyTightens(t *testing.T) {
	p := Person{EarliestBirth: YearOf(1950)}

	assert.False(t, p.RaiseEarliest(1925), "earlier year must not widen")
	assert.False(t, p.RaiseEarliest(1950), "equal year is not strictly tighter")
	assert.Equal(t, 1950, p.EarliestBirth.N)

	assert.True(t, p.RaiseEarliest(1960))
	assert.Equal(t, YearOf(1960), p.EarliestBirth)
}

func TestLowerLatestOnlyTightens(t *testing.T) {
	var p Person

	assert.True(t, p.LowerLatest(2000), "unset bound always accepts")
	assert.False(t, p.LowerLatest(2010))
	assert.False(t, p.LowerLatest(2000))
	assert.True(t, p.LowerLatest(1990))
	assert.Equal(t, YearOf(1990), p.LatestBirth)
}

func TestComplete(t *testing.T) {
	t.Run("seeds latest from earliest", func(t *testing.T) {
		p := Person{EarliestBirth: YearOf(1800)}
		p.Complete(110)
		assert.Equal(t, YearOf(1910), p.LatestBirth)
	})

	t.Run("seeds earliest from latest", func(t *testing.T) {
		p := Person{LatestBirth: YearOf(1900)}
		p.Complete(110)
		assert.Equal(t, YearOf(1790), p.EarliestBirth)
	})

	t.Run("leaves complete and empty intervals alone", func(t *testing.T) {
		p := Person{EarliestBirth: YearOf(1800), LatestBirth: YearOf(1820)}
		p.Complete(110)
		assert.Equal(t, YearOf(1820), p.LatestBirth)

		var empty Person
		empty.Complete(110)
		assert.False(t, empty.EarliestBirth.Set)
		assert.False(t, empty.LatestBirth.Set)
	})
}

func TestCrossedAndWidth(t *testing.T) {
	p := Person{EarliestBirth: YearOf(1900), LatestBirth: YearOf(1890)}
	assert.True(t, p.Crossed())

	p.LatestBirth = YearOf(1915)
	assert.False(t, p.Crossed())
	w, ok := p.Width()
	assert.True(t, ok)
	assert.Equal(t, 15, w)

	_, ok = (&Person{EarliestBirth: YearOf(1900)}).Width()
	assert.False(t, ok)
}

func TestNoteAppendsTrace(t *testing.T) {
	p := Person{EarliestBirth: YearOf(1960), LatestBirth: YearOf(1998)}

	p.Note(2, "child", "Jane_Doe_(1)")
	assert.Equal(t, "child: <Jane_Doe_(1)> 1960,1998", p.BirthCalc)
	assert.Equal(t, 2, p.LastTightenedRound)
	assert.True(t, p.TightenedIn(2))

	p.LatestBirth = YearOf(1990)
	p.Note(3, "own marriage", "")
	assert.Equal(t, "child: <Jane_Doe_(1)> 1960,1998; own marriage 1960,1990", p.BirthCalc)
	assert.Equal(t, []string{"child: <Jane_Doe_(1)> 1960,1998", "own marriage 1960,1990"}, strings.Split(p.BirthCalc, "; "))
	assert.False(t, p.TightenedIn(2))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "John_Smith_(12)", NormalizeTitle(" John Smith (12) "))
	assert.Equal(t, "", NormalizeTitle(""))
}

func TestBatchHelpers(t *testing.T) {
	batch := []Person{
		{Title: "A", ParentPage: "F1"},
		{Title: "B", ParentPage: "F1"},
		{Title: "C"},
		{Title: "D", ParentPage: "F2"},
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, Titles(batch))
	assert.Equal(t, []string{"F1", "F2"}, ParentPages(batch))
}
