package issues

// Buffer collects the issues of one job. It remembers every key it has
// accepted, including keys already persisted, so a repeated finding is
// dropped no matter which flush batch it would have landed in.
type Buffer struct {
	jobID   int
	seen    map[Key]struct{}
	pending []Issue

	raised  int
	dropped int
}

// NewBuffer creates an empty buffer for jobID.
func NewBuffer(jobID int) *Buffer {
	return &Buffer{
		jobID: jobID,
		seen:  make(map[Key]struct{}),
	}
}

// JobID returns the job the buffer belongs to.
func (b *Buffer) JobID() int {
	return b.jobID
}

// Preload marks keys already stored for the job as seen.
func (b *Buffer) Preload(keys []Key) {
	for _, k := range keys {
		b.seen[k] = struct{}{}
	}
}

// Raise implements Recorder.
func (b *Buffer) Raise(pageID int, category Category, description string) bool {
	k := Key{PageID: pageID, Description: description}
	if _, ok := b.seen[k]; ok {
		b.dropped++
		return false
	}
	b.seen[k] = struct{}{}
	b.pending = append(b.pending, Issue{
		JobID:       b.jobID,
		PageID:      pageID,
		Category:    category,
		Description: description,
	})
	b.raised++
	return true
}

// Len returns the number of issues waiting to be flushed.
func (b *Buffer) Len() int {
	return len(b.pending)
}

// Full reports whether threshold or more issues are waiting.
func (b *Buffer) Full(threshold int) bool {
	return threshold > 0 && len(b.pending) >= threshold
}

// Drain returns the pending issues and empties the pending list. Their keys
// stay seen.
func (b *Buffer) Drain() []Issue {
	out := b.pending
	b.pending = nil
	return out
}

// Forget un-sees issues whose write was rolled back, so a retry of the same
// page raises them again.
func (b *Buffer) Forget(batch []Issue) {
	for _, is := range batch {
		delete(b.seen, is.Key())
	}
}

// Counts returns how many issues were accepted and how many were dropped as
// duplicates.
func (b *Buffer) Counts() (raised, dropped int) {
	return b.raised, b.dropped
}
