package interval

// ParentFacts are the dates of one parent as read at the start of a page.
type ParentFacts struct {
	Title       string
	Actual      Year
	Earliest    Year
	Latest      Year
	LatestDeath Year
}

// ChildLink joins a person acting as a parent to one child's birth bounds.
type ChildLink struct {
	ParentTitle   string
	Role          Role
	ChildTitle    string
	ChildEarliest Year
	ChildLatest   Year
}

// SpouseLink joins a person to one of their own families and, when the
// family has one, the other spouse's birth bounds.
type SpouseLink struct {
	FamilyPageID     int
	Role             Role
	Title            string
	SpouseTitle      string
	EarliestMarriage Year
	LatestMarriage   Year
	SpouseEarliest   Year
	SpouseLatest     Year
}

// ParentLink joins a parent family to its marriage dates and both parents.
type ParentLink struct {
	FamilyTitle      string
	EarliestMarriage Year
	LatestMarriage   Year
	Father           ParentFacts
	Mother           ParentFacts
}

// SiblingLink is one child of a family.
type SiblingLink struct {
	FamilyTitle string
	Title       string
	Earliest    Year
	Latest      Year
}

// Relations is the relational context of one page of persons, as it stood
// when the page's relation queries ran.
type Relations struct {
	Children []ChildLink
	Spouses  []SpouseLink
	Parents  []ParentLink
	Siblings []SiblingLink
}

// Titles returns the titles of a batch, in batch order.
func Titles(batch []Person) []string {
	titles := make([]string, 0, len(batch))
	for i := range batch {
		titles = append(titles, batch[i].Title)
	}
	return titles
}

// ParentPages returns the distinct non-empty parent family titles of a batch.
func ParentPages(batch []Person) []string {
	seen := make(map[string]bool)
	var pages []string
	for i := range batch {
		p := batch[i].ParentPage
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		pages = append(pages, p)
	}
	return pages
}
