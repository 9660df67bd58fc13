package scanengine

// traverseAndProcess runs one full traversal of list, locking, processing,
// and unlocking each visited record in turn (spec.md §4.3 step 2, §4.7).
// It is the shared traversal entry point for the periodic, event, and
// I/O-event scanners.
func (e *Engine) traverseAndProcess(list *scanList) {
	e.metrics.traversalsStarted.Add(1)
	abandoned := list.traverse(func(r Record) {
		r.Lock()
		r.Process()
		r.Unlock()
	})
	if abandoned {
		e.metrics.traversalsAbandoned.Add(1)
	}
}
