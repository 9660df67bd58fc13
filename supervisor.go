package scanengine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is the scan-engine core of spec.md §4.6: it owns every scan
// list (periodic, event, I/O-event), the membership registry, and the
// worker goroutines that drive traversal. Construct one with New, call
// Start once device/record setup has registered everything via ScanAdd,
// and Shutdown to stop all workers.
type Engine struct {
	cfg     Config
	logger  Logger
	metrics metrics
	elements *elementRegistry

	periodic        []*scanList
	periodicWorkers []*periodicWorker

	eventMu    sync.Mutex
	eventLists map[int]*scanList
	eventQueue *eventQueue

	ioMu          sync.Mutex
	ioChains      [MaxIOPriorities]*ioChain
	numPriorities int
	dispatcher    CallbackDispatcher

	// acceptGate gates all scanning work (periodic traversal, event
	// delivery, I/O-event requests) until Start opens it, per spec.md
	// §4.6's boot-before-accept ordering: lists may be populated by
	// ScanAdd before Start, but nothing runs until the gate opens.
	acceptGate atomic.Bool

	watchdog *watchdog
	workers  []*watchedWorker
	stop     chan struct{}
	wg       sync.WaitGroup

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// New constructs an Engine from cfg, applying any Options. It allocates
// every periodic scan list up front (spec.md §4.6 step 1: "allocate
// every periodic list before any record can be added to one") but does
// not start any worker or accept scanning work until Start is called.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.NumPriorities <= 0 {
		cfg.NumPriorities = DefaultConfig().NumPriorities
	}
	if cfg.NumPriorities > MaxIOPriorities {
		return nil, fmt.Errorf("scanengine: NumPriorities %d exceeds MaxIOPriorities %d", cfg.NumPriorities, MaxIOPriorities)
	}

	periods, err := parsePeriods(cfg.Periods)
	if err != nil {
		return nil, err
	}

	resolved := resolveOptions(cfg, opts)

	e := &Engine{
		cfg:           cfg,
		logger:        resolved.logger,
		elements:      newElementRegistry(),
		eventLists:    make(map[int]*scanList),
		eventQueue:    newEventQueue(),
		numPriorities: resolved.numPriorities,
		dispatcher:    resolved.dispatcher,
		stop:          make(chan struct{}),
	}
	if e.numPriorities <= 0 {
		e.numPriorities = 1
	}

	e.periodic = make([]*scanList, len(periods))
	for i, period := range periods {
		list := newScanList("periodic", fmt.Sprintf("%d", i))
		list.ticksPerPeriod = period
		e.periodic[i] = list
		e.periodicWorkers = append(e.periodicWorkers, newPeriodicWorker(e, i, list))
	}

	restartEnabled := cfg.RestartEnabled
	if resolved.restartEnabled != nil {
		restartEnabled = *resolved.restartEnabled
	}
	e.watchdog = newWatchdog(e, restartEnabled, resolved.restartWindow, resolved.restartBurst)

	return e, nil
}

// Start opens the accept gate and launches every worker goroutine:
// one per periodic list, plus the single event-queue consumer. I/O-event
// callbacks have no standing worker — IOScanRequest dispatches them
// on demand through the CallbackDispatcher. Start is idempotent.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		for _, w := range e.periodicWorkers {
			list := w.list
			e.spawn(w.name, w.run, list.resetLock)
		}
		e.spawn("event", e.runEventWorker, e.resetEventLocks)
		e.acceptGate.Store(true)
	})
}

// spawn launches a supervised worker goroutine and records it for
// Shutdown to wait on. resetLocks is passed through to the watchdog: it
// is invoked once the worker is confirmed dead and before it is
// respawned, to recover any scanList mutex the worker might have been
// holding (see watchdog.go).
func (e *Engine) spawn(name string, fn workerFunc, resetLocks func()) {
	worker := &watchedWorker{name: name, fn: fn, done: make(chan struct{})}
	e.workers = append(e.workers, worker)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(worker.done)
		e.watchdog.supervise(worker.name, worker.fn, resetLocks, e.stop)
	}()
}

// resetEventLocks installs a fresh mutex on every currently-allocated
// event list, mirroring dbScan.c's wdEvent, which unlocks every event
// list's spin lock on event-task death (it cannot know which one, if
// any, the dead task was holding). A swap is always safe to perform
// even on a list the worker never touched, unlike the original's blind
// unlock of a maybe-already-unlocked lock.
func (e *Engine) resetEventLocks() {
	e.eventMu.Lock()
	lists := make([]*scanList, 0, len(e.eventLists))
	for _, l := range e.eventLists {
		lists = append(lists, l)
	}
	e.eventMu.Unlock()
	for _, l := range lists {
		l.resetLock()
	}
}

// Shutdown closes the accept gate, signals every worker to stop, and
// waits for them to exit. Shutdown is idempotent; it does not drain or
// flush pending scan list state (spec.md Non-goals: no persistence
// across restarts).
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.acceptGate.Store(false)
		close(e.stop)
		e.wg.Wait()
	})
}

// Metrics returns a point-in-time snapshot of the engine's counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.snapshot()
}

// NumPeriodic returns the number of configured periodic lists, for
// embedders validating a record's SCAN ordinal before calling ScanAdd.
func (e *Engine) NumPeriodic() int {
	return len(e.periodic)
}

// periodFor returns the configured duration of periodic list ordinal.
func (e *Engine) periodFor(ordinal int) time.Duration {
	return e.periodic[ordinal].ticksPerPeriod
}
