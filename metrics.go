package scanengine

import "sync/atomic"

// metrics holds the engine's atomic counters. A deliberately small slice
// of what eventloop/metrics.go exposes: spec.md's Non-goals exclude
// strict real-time guarantees, so latency histograms are out of scope,
// but bare counters are ambient observability carried regardless.
type metrics struct {
	traversalsStarted   atomic.Int64
	traversalsAbandoned atomic.Int64
	eventsPosted        atomic.Int64
	eventsDropped       atomic.Int64
	illegalInputs       atomic.Int64
	restarts            atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Engine's counters.
type MetricsSnapshot struct {
	TraversalsStarted   int64
	TraversalsAbandoned int64
	EventsPosted        int64
	EventsDropped       int64
	IllegalInputs       int64
	Restarts            int64
}

func (m *metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TraversalsStarted:   m.traversalsStarted.Load(),
		TraversalsAbandoned: m.traversalsAbandoned.Load(),
		EventsPosted:        m.eventsPosted.Load(),
		EventsDropped:       m.eventsDropped.Load(),
		IllegalInputs:       m.illegalInputs.Load(),
		Restarts:            m.restarts.Load(),
	}
}
