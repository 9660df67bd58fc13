package scanengine

import (
	"sync"
	"sync/atomic"
	"time"
)

// scanList is the phase-ordered, lock-protected container of scanElements
// described in spec.md §3/§4.1. Insertion order is non-decreasing Phase,
// ties broken by insertion order (stable). Distinct lists are
// independent: each owns its own mutex.
type scanList struct {
	// mu holds the list's current mutex generation. It is an
	// atomic.Pointer rather than a plain sync.Mutex so the watchdog can
	// install a fresh one after a worker dies while holding it
	// (poisoned-lock recovery, spec.md §9 "Watchdog-driven restart") —
	// see resetLock.
	mu atomic.Pointer[sync.Mutex]

	head *scanElement
	tail *scanElement

	// modified is set by any add/remove and cleared only by a
	// traversing worker that observes the mutation and resynchronizes.
	// Invariant 2 (spec.md §3): paired with mu on every read.
	modified bool

	// kind/id/ticksPerPeriod are metadata for logging and debug dumps;
	// ticksPerPeriod is meaningful only for periodic lists.
	kind           string
	id             string
	ticksPerPeriod time.Duration
}

func newScanList(kind, id string) *scanList {
	l := &scanList{kind: kind, id: id}
	l.mu.Store(new(sync.Mutex))
	return l
}

// lock acquires the list's current mutex generation and returns it, so
// the caller unlocks the exact instance it locked even if resetLock
// installs a new one concurrently.
func (l *scanList) lock() *sync.Mutex {
	m := l.mu.Load()
	m.Lock()
	return m
}

// resetLock installs a fresh mutex, abandoning whatever lock state a
// dead worker may have left behind. Called only by the watchdog, only
// once the worker that might have been holding mu is known dead — see
// watchdog.go.
func (l *scanList) resetLock() {
	l.mu.Store(new(sync.Mutex))
}

// unlinkLocked removes el from the intrusive doubly-linked list. Caller
// holds l's mutex and guarantees el is currently linked into l.
func (l *scanList) unlinkLocked(el *scanElement) {
	if el.prev != nil {
		el.prev.next = el.next
	} else {
		l.head = el.next
	}
	if el.next != nil {
		el.next.prev = el.prev
	} else {
		l.tail = el.prev
	}
	el.prev, el.next = nil, nil
}

// insertLocked walks front-to-back, inserting el before the first
// existing element whose phase exceeds phase; appends at the end if
// none qualifies. Caller holds l's mutex and guarantees el is not
// currently linked into any list.
func (l *scanList) insertLocked(el *scanElement, phase int16) {
	cur := l.head
	for cur != nil && cur.record.Phase() <= phase {
		cur = cur.next
	}
	if cur == nil {
		el.prev, el.next = l.tail, nil
		if l.tail != nil {
			l.tail.next = el
		} else {
			l.head = el
		}
		l.tail = el
		return
	}
	el.next = cur
	el.prev = cur.prev
	if cur.prev != nil {
		cur.prev.next = el
	} else {
		l.head = el
	}
	cur.prev = el
}

// add resolves (or reuses) el's membership on l, honoring the record's
// current phase. If el is already on l it is removed and reinserted, so
// a changed phase takes effect immediately (idempotence, spec.md §4.1).
func (l *scanList) add(el *scanElement) {
	phase := el.record.Phase()
	m := l.lock()
	if el.list == l {
		l.unlinkLocked(el)
	}
	l.insertLocked(el, phase)
	el.list = l
	l.modified = true
	m.Unlock()
}

// remove detaches el from l. ok is false only on a back-pointer
// mismatch (el believes it belongs to a different list); the caller
// logs this as ListMismatch and leaves state unchanged, per spec.md §7.
// A nil el, or an el already detached, is a silent no-op (ok true).
func (l *scanList) remove(el *scanElement) (ok bool) {
	if el == nil {
		return true
	}
	m := l.lock()
	if el.list == nil {
		m.Unlock()
		return true
	}
	if el.list != l {
		m.Unlock()
		return false
	}
	l.unlinkLocked(el)
	el.list = nil
	l.modified = true
	m.Unlock()
	return true
}

// traverse implements the mutation-safe iteration protocol of spec.md
// §4.1: visit is always called with zero scanList locks held, so it may
// freely add/remove elements on this or any other list, including
// deleting the element currently being visited. abandoned reports
// whether the pass gave up early via the anchor-ladder fallback (spec.md
// §8 property 4), which is surfaced only for metrics/testing.
func (l *scanList) traverse(visit func(Record)) (abandoned bool) {
	m := l.lock()
	pse := l.head
	var prev, next *scanElement
	if pse != nil {
		next = pse.next
	}
	l.modified = false
	m.Unlock()

	for pse != nil {
		visit(pse.record)

		m = l.lock()
		switch {
		case !l.modified:
			prev, pse = pse, pse.next
			next = nextOf(pse)

		case pse.list == l:
			prev, pse = pse, pse.next
			next = nextOf(pse)
			l.modified = false

		case prev != nil && prev.list == l:
			pse = prev.next
			next = nextOf(pse)
			l.modified = false

		case next != nil && next.list == l:
			pse = next
			prev = pse.prev
			next = pse.next
			l.modified = false

		default:
			m.Unlock()
			return true
		}
		m.Unlock()
	}
	return false
}

func nextOf(el *scanElement) *scanElement {
	if el == nil {
		return nil
	}
	return el.next
}
