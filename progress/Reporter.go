// Package progress adapts the teacher's progress-bar idiom (a counter
// incremented by the caller, independent of any rendering) into a
// domain-specific, dependency-free callback used by long scenario sweeps
// (the robust evaluator). It owns no terminal UI: that
// concern is an external collaborator's (report exporters are out of
// scope per spec.md §1).
package progress

// Reporter receives (done, total) after each unit of work completes. A nil
// Reporter is valid everywhere it is accepted and simply does nothing.
type Reporter func(done, total int)

// Report invokes r if non-nil. Safe to call on a nil Reporter.
func (r Reporter) Report(done, total int) {
	if r != nil {
		r(done, total)
	}
}

// Counter wraps a Reporter with the running total so callers in a loop
// only need to call Tick(), mirroring the teacher's
// ManualProgressBar.Increment usage without owning a terminal cursor.
type Counter struct {
	done, total int
	reporter    Reporter
}

// NewCounter builds a Counter that calls reporter after every Tick, or
// does nothing if reporter is nil.
func NewCounter(total int, reporter Reporter) *Counter {
	return &Counter{total: total, reporter: reporter}
}

// Tick increments the counter and reports the new (done, total) pair.
func (c *Counter) Tick() {
	c.done++
	c.reporter.Report(c.done, c.total)
}
