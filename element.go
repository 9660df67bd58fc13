package scanengine

import "sync"

// scanElement is the per-record membership node. It is pinned to its
// Record for the record's lifetime in the engine and reused across list
// moves (detach+attach), never reallocated, matching spec.md §3's
// ScanElement lifecycle.
type scanElement struct {
	record Record

	// list is the element's current scan list, or nil if detached.
	// Guarded by the owning list's mu whenever the element is (or was,
	// pending this field update) linked into a list; see scanlist.go.
	list *scanList

	prev, next *scanElement
}

// elementRegistry is the typed, engine-owned replacement for the raw
// scratch pointer (dbCommon.spvt) the original C keeps on each record.
// See DESIGN.md's element.go entry / Design Notes "Back-pointer in opaque record":
// pinning the element via a sidecar map instead of an untyped pointer
// field makes the lifetime explicit and prevents aliasing.
type elementRegistry struct {
	mu   sync.Mutex
	byRecord map[Record]*scanElement
}

func newElementRegistry() *elementRegistry {
	return &elementRegistry{byRecord: make(map[Record]*scanElement)}
}

// elementFor returns the existing scanElement for r, creating one (with
// no list membership) if absent. This is the single-element invariant
// (spec.md §8 property 1): at most one scanElement exists per record.
func (e *elementRegistry) elementFor(r Record) *scanElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	if el, ok := e.byRecord[r]; ok {
		return el
	}
	el := &scanElement{record: r}
	e.byRecord[r] = el
	return el
}

// forget removes r's element entirely. The engine never calls this
// during normal operation (elements persist for the record's lifetime
// in the engine, per spec.md §3); it exists for test teardown and for
// embedders that explicitly retire a record from the database.
func (e *elementRegistry) forget(r Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byRecord, r)
}
