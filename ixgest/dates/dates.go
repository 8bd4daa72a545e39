// Package dates classifies the qualified date strings found on wiki pages
// ("Abt 1850", "Bet 1840 and 1850", "From 1810 to 1812") into year bounds.
package dates

import (
	"strconv"
	"strings"

	"github.com/werelate/dqa/interval"
)

// Kind is the classification of a date string.
type Kind int

const (
	// KindNone is an empty date or one holding only descriptive text.
	KindNone Kind = iota
	KindExact
	KindEstimated
	KindBefore
	KindAfter
	KindBetween
	KindMalformed
)

var kindNames = map[Kind]string{
	KindNone:      "none",
	KindExact:     "exact",
	KindEstimated: "estimated",
	KindBefore:    "before",
	KindAfter:     "after",
	KindBetween:   "between",
	KindMalformed: "malformed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Date is a classified date string.
type Date struct {
	Raw  string
	Kind Kind
	// Modifier is the canonical leading qualifier (Abt, Est, Cal, Bef, Aft,
	// Bet, From, To) or empty for a bare date.
	Modifier string

	Earliest interval.Year
	Latest   interval.Year
}

// Actual returns the year of a date that names a single year: exact and
// estimated dates, and malformed dates that still yielded a year.
func (d Date) Actual() interval.Year {
	switch d.Kind {
	case KindExact, KindEstimated, KindMalformed:
		return d.Earliest
	}
	return interval.Year{}
}

// Malformed reports whether the string could not be read as a date.
func (d Date) Malformed() bool {
	return d.Kind == KindMalformed
}

// Estimated reports whether the date carries the Est qualifier.
func (d Date) Estimated() bool {
	return d.Modifier == "Est"
}

var modifiers = map[string]string{
	"abt":     "Abt",
	"about":   "Abt",
	"circa":   "Abt",
	"ca":      "Abt",
	"c":       "Abt",
	"est":     "Est",
	"cal":     "Cal",
	"calc":    "Cal",
	"bef":     "Bef",
	"before":  "Bef",
	"to":      "To",
	"aft":     "Aft",
	"after":   "Aft",
	"from":    "From",
	"bet":     "Bet",
	"btw":     "Bet",
	"between": "Bet",
}

var months = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// Classify reads a date string. It never fails: anything it cannot read is
// returned as KindMalformed with whatever bounds a trailing year still gives.
func Classify(raw string) Date {
	d := Date{Raw: raw}
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "(") {
		return d
	}
	if i := strings.Index(text, "("); i > 0 {
		text = strings.TrimSpace(text[:i])
	}

	tokens := strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(text))
	if len(tokens) == 0 {
		return d.fallback(nil)
	}
	if mod, ok := modifiers[strings.ToLower(tokens[0])]; ok {
		d.Modifier = mod
		tokens = tokens[1:]
	}

	switch d.Modifier {
	case "":
		return d.single(tokens, KindExact)
	case "Abt", "Est", "Cal":
		return d.single(tokens, KindEstimated)
	case "Bef", "To":
		return d.single(tokens, KindBefore)
	case "Aft":
		return d.single(tokens, KindAfter)
	case "From":
		if first, second, ok := splitRange(tokens, "to"); ok {
			return d.between(first, second)
		}
		return d.single(tokens, KindAfter)
	case "Bet":
		first, second, ok := splitRange(tokens, "and", "&", "-")
		if !ok {
			return d.fallback(tokens)
		}
		return d.between(first, second)
	}
	return d.fallback(tokens)
}

func (d Date) single(tokens []string, kind Kind) Date {
	year, ok := parseBody(tokens)
	if !ok {
		return d.fallback(tokens)
	}
	d.Kind = kind
	switch kind {
	case KindBefore:
		d.Latest = interval.YearOf(year)
	case KindAfter:
		d.Earliest = interval.YearOf(year)
	default:
		d.Earliest = interval.YearOf(year)
		d.Latest = interval.YearOf(year)
	}
	return d
}

func (d Date) between(first, second []string) Date {
	from, ok1 := parseBody(first)
	to, ok2 := parseBody(second)
	if !ok1 || !ok2 || from > to {
		return d.fallback(append(append([]string{}, first...), second...))
	}
	d.Kind = KindBetween
	d.Earliest = interval.YearOf(from)
	d.Latest = interval.YearOf(to)
	return d
}

// fallback marks the date malformed and keeps the last year-looking token
// as an exact year, so a record still gets usable bounds.
func (d Date) fallback(tokens []string) Date {
	d.Kind = KindMalformed
	for i := len(tokens) - 1; i >= 0; i-- {
		if year, ok := parseYear(tokens[i]); ok {
			d.Earliest = interval.YearOf(year)
			d.Latest = interval.YearOf(year)
			break
		}
	}
	return d
}

func splitRange(tokens []string, separators ...string) (first, second []string, ok bool) {
	for i, tok := range tokens {
		for _, sep := range separators {
			if strings.EqualFold(tok, sep) {
				if i == 0 || i == len(tokens)-1 {
					return nil, nil, false
				}
				return tokens[:i], tokens[i+1:], true
			}
		}
	}
	return nil, nil, false
}

// parseBody reads "[day] [month] year" in either day-month or month-day order.
func parseBody(tokens []string) (int, bool) {
	switch len(tokens) {
	case 1:
		return parseYear(tokens[0])
	case 2:
		if _, ok := months[strings.ToLower(tokens[0])]; !ok {
			return 0, false
		}
		return parseYear(tokens[1])
	case 3:
		day, month := tokens[0], tokens[1]
		if _, ok := months[strings.ToLower(day)]; ok {
			day, month = month, day
		}
		if _, ok := months[strings.ToLower(month)]; !ok {
			return 0, false
		}
		n, err := strconv.Atoi(day)
		if err != nil || n < 1 || n > 31 {
			return 0, false
		}
		return parseYear(tokens[2])
	}
	return 0, false
}

// parseYear reads a year of up to four digits. A dual year such as 1750/51
// resolves to the later year.
func parseYear(tok string) (int, bool) {
	base, alt, dual := strings.Cut(tok, "/")
	year, ok := digits(base, 4)
	if !ok || year == 0 {
		return 0, false
	}
	if !dual {
		return year, true
	}
	if len(alt) == 0 || len(alt) > len(base) {
		return 0, false
	}
	if _, ok := digits(alt, len(alt)); !ok {
		return 0, false
	}
	later, _ := strconv.Atoi(base[:len(base)-len(alt)] + alt)
	if later < year {
		later += pow10(len(alt))
	}
	if later-year > 1 {
		return 0, false
	}
	return later, true
}

func digits(s string, max int) (int, bool) {
	if s == "" || len(s) > max {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func pow10(n int) int {
	p := 1
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
