package scanengine

import (
	"strconv"
	"sync"

	"scanengine/internal/ring"
)

// MaxEvents is the number of distinct software event identifiers,
// matching EPICS's MAX_EVENTS.
const MaxEvents = 256

// EventQueueSize is the capacity of the posted-event ring, matching
// EPICS's EVENT_QUEUE_SIZE.
const EventQueueSize = 1000

// eventQueue is the bounded, multi-producer/single-consumer ring of
// posted event identifiers described in spec.md §3/§4.4/§9. Producers
// (including interrupt-like contexts) never block: PostEvent takes the
// mutex only to append to the ring (a handful of instructions), never
// to wait. The wake channel is the idiomatic-Go replacement for the
// original's binary semaphore — buffered to 1, so a non-blocking send
// is always possible and the consumer re-drains after every wake,
// making lost wakeups and redundant wakeups both harmless (spec.md §4.4).
type eventQueue struct {
	mu   sync.Mutex
	ring *ring.Buffer[byte]
	wake chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		ring: ring.New[byte](EventQueueSize),
		wake: make(chan struct{}, 1),
	}
}

// push appends evnt, returning false if the ring is full (overflow).
func (q *eventQueue) push(evnt byte) bool {
	q.mu.Lock()
	ok := q.ring.Push(evnt)
	q.mu.Unlock()
	if ok {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return ok
}

// drain delivers queued events to fn, oldest first, until the ring is
// empty. The mutex is held only to pop each event, never while fn runs,
// so producers (including fn itself) can post while a drain is running.
func (q *eventQueue) drain(fn func(byte)) {
	for {
		q.mu.Lock()
		e, ok := q.ring.Pop()
		q.mu.Unlock()
		if !ok {
			return
		}
		fn(e)
	}
}

// eventListFor returns the scan list for evnt, lazily creating it under
// the engine's event-registry lock. Publication is safe for concurrent
// ScanAdd/ScanDelete callers and the event worker (spec.md §5: "lazy
// event-list creation must publish the fully-initialized list pointer
// atomically" — here "atomically" is simply "under the same mutex every
// reader also takes").
func (e *Engine) eventListFor(evnt int) *scanList {
	e.eventMu.Lock()
	defer e.eventMu.Unlock()
	list, ok := e.eventLists[evnt]
	if !ok {
		list = newScanList("event", strconv.Itoa(evnt))
		e.eventLists[evnt] = list
	}
	return list
}

// existingEventList returns evnt's list without creating one.
func (e *Engine) existingEventList(evnt int) (*scanList, bool) {
	e.eventMu.Lock()
	defer e.eventMu.Unlock()
	list, ok := e.eventLists[evnt]
	return list, ok
}

// PostEvent posts event id for delivery to event_registry[id]'s scan
// list, per spec.md §4.4/§6. Callable from any context, including
// interrupt-like producers. A no-op before the accept gate opens, and a
// counted drop, logged as QueueOverflow, if the queue is full (spec.md
// §7).
func (e *Engine) PostEvent(id int) {
	if !e.acceptGate.Load() {
		return
	}
	if id < 0 || id >= MaxEvents {
		e.logKind(IllegalEventID, "event", "", "illegal event passed to PostEvent")
		return
	}
	e.metrics.eventsPosted.Add(1)
	if !e.eventQueue.push(byte(id)) {
		e.metrics.eventsDropped.Add(1)
		e.logKind(QueueOverflow, "event", "", "event queue overflow in PostEvent")
	}
}

// runEventWorker is the single consumer draining the posted-event ring,
// per spec.md §4.4. It blocks on the wake channel, then drains the ring
// to empty, traversing each named event's list along the way.
func (e *Engine) runEventWorker(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-e.eventQueue.wake:
		}
		if !e.acceptGate.Load() {
			continue
		}
		e.eventQueue.drain(func(evnt byte) {
			if int(evnt) >= MaxEvents {
				e.logKind(IllegalEventID, "event", "", "eventTask received an illegal event")
				return
			}
			list, ok := e.existingEventList(int(evnt))
			if !ok {
				return
			}
			e.traverseAndProcess(list)
		})
	}
}
