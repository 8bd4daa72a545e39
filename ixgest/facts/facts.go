// Package facts turns exported wiki pages into the seed rows of an analysis
// job: one interval.Person or interval.Family per page, plus the structural
// issues that can be seen on the page alone.
package facts

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
	"github.com/werelate/dqa/issues"
	"github.com/werelate/dqa/ixgest/dates"
	"github.com/werelate/dqa/ixgest/pages"
	"github.com/werelate/dqa/logger"
)

// Event types with special meaning for seeding.
const (
	EventBirth       = "Birth"
	EventChristening = "Christening"
	EventDeath       = "Death"
	EventBurial      = "Burial"
	EventStillborn   = "Stillborn"
	EventMarriage    = "Marriage"
	EventEngagement  = "Engagement"
	EventAltMarriage = "Alt Marriage"
)

// Page templates that set person flags.
var (
	famousTemplates    = []string{"{{FamousLivingPersonException", "{{Wikidata|Q"}
	ancientTemplate    = "{{Wr-too-far-back}}"
	acceptedBirthOrder = "{{BirthBeforeParentsMarriage"
)

// Record is the seed summary of one page. Exactly one of Person and Family
// is set.
type Record struct {
	PageID    int
	Namespace interval.Namespace
	Person    *interval.Person
	Family    *interval.Family
	Findings  []issues.Finding
}

// Extractor derives seed bounds from page events.
type Extractor struct {
	lifespan int
	thisYear int
}

// NewExtractor returns an Extractor. Death years after thisYear are ignored.
func NewExtractor(th interval.Thresholds, thisYear int) *Extractor {
	return &Extractor{lifespan: th.UsualLifespan, thisYear: thisYear}
}

// Extract summarizes a page. ok is false for redirects and for pages outside
// the Person and Family namespaces.
func (e *Extractor) Extract(page *pages.Page) (rec Record, ok bool) {
	if page.IsRedirect() {
		return Record{}, false
	}
	ns, title, ok := page.Namespace()
	if !ok {
		return Record{}, false
	}

	rec = Record{PageID: page.PageID, Namespace: ns}
	if ns == interval.NamespaceFamily {
		rec.Family = e.family(page, title, &rec)
		return rec, true
	}
	rec.Person = e.person(page, title, &rec)
	return rec, true
}

func (e *Extractor) person(page *pages.Page, title string, rec *Record) *interval.Person {
	p := &interval.Person{
		PageID:     page.PageID,
		Title:      title,
		LastEditor: page.LastEditor,
	}

	for _, ev := range page.Events {
		d := e.classify(ev, &p.DateParseError)
		if diedYoung(ev, d) {
			p.DiedYoung = true
		}

		if ev.Type == EventBirth || (ev.Type == EventChristening && !p.LatestBirth.Set) {
			p.ActualBirth = d.Actual()
			p.EarliestBirth = d.Earliest
			p.LatestBirth = d.Latest
			if p.EarliestBirth.Set && !p.LatestBirth.Set {
				p.LatestBirth = p.EarliestBirth.Add(e.lifespan)
			}
		} else if !strings.HasPrefix(ev.Type, "Alt") {
			if !p.LatestBirth.Set || (d.Latest.Set && d.Latest.N < p.LatestBirth.N) {
				p.LatestBirth = d.Latest
			}
			// Only an "after" date here: assume a birth within a lifespan
			// either side of it.
			if !p.EarliestBirth.Set && !p.LatestBirth.Set && d.Earliest.Set {
				p.EarliestBirth = d.Earliest.Add(-e.lifespan)
				p.LatestBirth = d.Earliest.Add(e.lifespan)
			}
		}

		if d.Latest.Set && d.Latest.N <= e.thisYear && !d.Estimated() {
			if ev.Type == EventDeath || (ev.Type == EventBurial && !p.LatestDeath.Set) {
				p.LatestDeath = d.Latest
			}
		}
		// Post-death events such as probate can push latest birth past death.
		if p.LatestBirth.Set && p.LatestDeath.Set && p.LatestBirth.N > p.LatestDeath.N {
			p.LatestBirth = p.LatestDeath
		}
	}

	if p.LatestBirth.Set && !p.EarliestBirth.Set {
		p.EarliestBirth = p.LatestBirth.Add(-e.lifespan)
	}

	if len(page.ChildOfFamily) > 0 {
		p.ParentPage = pages.RefTitle(page.ChildOfFamily[0])
		if len(page.ChildOfFamily) > 1 {
			rec.add(issues.CategoryAnomaly, issues.DescMultipleParents)
		}
	}
	if strings.TrimSpace(page.Gender) == "" {
		rec.add(issues.CategoryIncomplete, issues.DescMissingGender)
	}

	p.Famous = containsAny(page.Text, famousTemplates...)
	p.Ancient = strings.Contains(page.Text, ancientTemplate)
	p.BornBeforeMarriageAccepted = strings.Contains(page.Text, acceptedBirthOrder)

	if p.Crossed() {
		rec.add(issues.CategoryAnomaly, issues.DescEventsBeforeBirth)
		p.LatestBirth = p.EarliestBirth
	}
	return p
}

func (e *Extractor) family(page *pages.Page, title string, rec *Record) *interval.Family {
	f := &interval.Family{
		PageID:     page.PageID,
		Title:      title,
		LastEditor: page.LastEditor,
	}

	var dateError bool
	for _, ev := range page.Events {
		d := e.classify(ev, &dateError)

		if ev.Type == EventMarriage {
			f.EarliestMarriage = d.Earliest
			f.LatestMarriage = d.Latest
		}
		if !f.EarliestMarriage.Set && (strings.HasPrefix(ev.Type, EventMarriage) || ev.Type == EventEngagement) {
			f.EarliestMarriage = d.Earliest
		}
		if d.Latest.Set && (!f.LatestMarriage.Set || d.Latest.N < f.LatestMarriage.N) &&
			ev.Type != EventEngagement && ev.Type != EventAltMarriage {
			f.LatestMarriage = d.Latest
		}
	}

	if len(page.Husband) > 0 {
		f.HusbandPage = pages.RefTitle(page.Husband[0])
		if len(page.Husband) > 1 {
			rec.add(issues.CategoryError, issues.DescMultipleHusbands)
		}
	}
	if len(page.Wife) > 0 {
		f.WifePage = pages.RefTitle(page.Wife[0])
		if len(page.Wife) > 1 {
			rec.add(issues.CategoryError, issues.DescMultipleWives)
		}
	}
	return f
}

func (e *Extractor) classify(ev pages.Event, dateError *bool) dates.Date {
	d := dates.Classify(ev.Date)
	if d.Malformed() {
		*dateError = true
	}
	return d
}

func diedYoung(ev pages.Event, d dates.Date) bool {
	if ev.Type == EventStillborn {
		return true
	}
	if ev.Type != EventDeath {
		return false
	}
	raw := strings.ToLower(strings.TrimSpace(d.Raw))
	return strings.HasPrefix(raw, "(in infancy") || strings.HasPrefix(raw, "(young")
}

func (r *Record) add(category issues.Category, description string) {
	for _, f := range r.Findings {
		if f.Description == description {
			return
		}
	}
	r.Findings = append(r.Findings, issues.Finding{Category: category, Description: description})
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Source reads pages and yields the records worth seeding.
type Source struct {
	reader    *pages.Reader
	extractor *Extractor
	log       *zap.SugaredLogger
	skipped   int
}

// NewSource returns a Source over a YAML page stream.
func NewSource(r io.Reader, ex *Extractor) *Source {
	return &Source{reader: pages.NewReader(r), extractor: ex, log: logger.ComponentLogger("ixgest.facts")}
}

// Next returns the next seedable record, or io.EOF when the stream ends.
func (s *Source) Next() (Record, error) {
	for {
		page, err := s.reader.Next()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			return Record{}, errors.Wrap(err, "failed to read page stream")
		}
		rec, ok := s.extractor.Extract(page)
		if !ok {
			s.skipped++
			s.log.Debugw("page skipped",
				logger.FieldPageID, page.PageID,
				logger.FieldTitle, page.Title,
				"redirect", page.IsRedirect())
			continue
		}
		return rec, nil
	}
}

// Skipped returns how many pages were redirects or outside the
// Person and Family namespaces.
func (s *Source) Skipped() int {
	return s.skipped
}
