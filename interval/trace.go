package interval

import (
	"strings"
)

// TraceEntry is one step of a person's provenance trace.
type TraceEntry struct {
	Source    string
	Reference string
	Earliest  Year
	Latest    Year
}

// String renders the entry as "source: <reference> earliest,latest", or
// "source earliest,latest" when there is no referenced page.
func (e TraceEntry) String() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Reference == "" {
		b.WriteString(" ")
	} else {
		b.WriteString(": <")
		b.WriteString(e.Reference)
		b.WriteString("> ")
	}
	b.WriteString(e.Earliest.String())
	b.WriteString(",")
	b.WriteString(e.Latest.String())
	return b.String()
}

// AppendTrace adds entry to a serialized trace.
func AppendTrace(trace string, entry TraceEntry) string {
	if trace == "" {
		return entry.String()
	}
	return trace + "; " + entry.String()
}
