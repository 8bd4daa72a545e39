// Package issues holds the data-quality rule set and the job-scoped issue buffer.
//
// Issues are findings, not failures: rules raise them through a Recorder and
// the round scheduler persists them alongside the page that produced them.
package issues

// Category is the severity of an issue.
type Category string

const (
	// CategoryError marks a value outside an absolute bound.
	CategoryError Category = "Error"
	// CategoryAnomaly marks a value outside a usual but possible bound.
	CategoryAnomaly Category = "Anomaly"
	// CategoryIncomplete marks missing data.
	CategoryIncomplete Category = "Incomplete"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategoryError, CategoryAnomaly, CategoryIncomplete}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryError, CategoryAnomaly, CategoryIncomplete:
		return true
	}
	return false
}

// Issue is one data-quality finding for a page within a job.
type Issue struct {
	JobID       int
	PageID      int
	Category    Category
	Description string
}

// Key identifies an issue within a job.
type Key struct {
	PageID      int
	Description string
}

// Key returns the dedup key of the issue.
func (i Issue) Key() Key {
	return Key{PageID: i.PageID, Description: i.Description}
}

// Recorder accepts raised issues. Raise returns false when the issue was
// already known for the job.
type Recorder interface {
	Raise(pageID int, category Category, description string) bool
}

// Structural descriptions raised while seeding.
const (
	DescMultipleParents     = "Multiple sets of parents"
	DescMissingGender       = "Missing gender"
	DescMultipleHusbands    = "More than one husband on a family page"
	DescMultipleWives       = "More than one wife on a family page"
	DescEventsBeforeBirth   = "Event(s) before birth"
	DescBornBeforeMarriage  = "Born before parents' marriage"
	DescBornAfterMotherDied = "Born after mother died"
	DescBornAfterFatherDied = "Born more than 1 year after father died"
)
