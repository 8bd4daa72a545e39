package issues

// Finding is an issue raised while extracting a page, before a job's
// buffer exists. The seeding round replays findings into the buffer.
type Finding struct {
	Category    Category
	Description string
}

// Replay raises findings for pageID on r and returns how many were new.
func Replay(r Recorder, pageID int, findings []Finding) int {
	n := 0
	for _, f := range findings {
		if r.Raise(pageID, f.Category, f.Description) {
			n++
		}
	}
	return n
}
