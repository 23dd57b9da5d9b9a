package domain

// SequentialProgress is the bookkeeping for the one-at-a-time fallback.
//
// LastProcessedIndex exists only to drop repeated confirmation signals: the
// watcher for a step may report the same receipt more than once, and each step
// must be processed exactly once. It starts at -1.
type SequentialProgress struct {
	Calls              []Call
	CurrentIndex       int
	LastProcessedIndex int
}

// NewSequentialProgress creates progress for calls starting at index start.
func NewSequentialProgress(calls []Call, start int) *SequentialProgress {
	return &SequentialProgress{
		Calls:              calls,
		CurrentIndex:       start,
		LastProcessedIndex: start - 1,
	}
}

// MarkProcessed records that the confirmation for step has been handled.
// It returns false, changing nothing, when step is not the current step or
// has already been processed.
func (p *SequentialProgress) MarkProcessed(step int) bool {
	if step != p.CurrentIndex || step <= p.LastProcessedIndex {
		return false
	}
	p.LastProcessedIndex = step
	return true
}

// Advance moves to the next step. It is a no-op unless the current step has
// been processed.
func (p *SequentialProgress) Advance() {
	if p.LastProcessedIndex == p.CurrentIndex {
		p.CurrentIndex++
	}
}

// Done returns true once every call has been processed.
func (p *SequentialProgress) Done() bool {
	return p.CurrentIndex >= len(p.Calls)
}

// Confirmed returns the number of steps processed so far.
func (p *SequentialProgress) Confirmed() int {
	return p.LastProcessedIndex + 1
}
