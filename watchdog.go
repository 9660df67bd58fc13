package scanengine

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// workerFunc is a restartable unit of engine work: a periodic or event
// worker's run loop, invoked fresh on every (re)start.
type workerFunc func(stop <-chan struct{})

// watchedWorker is the supervisor's bookkeeping for one workerFunc,
// grounded on dbScan.c's per-task TCB plus the watchdog's restart
// accounting described in spec.md §4.6/§9.
type watchedWorker struct {
	name string
	fn   workerFunc
	done chan struct{}
}

// watchdog restarts workers that exit unexpectedly (a panic recovered by
// runOnce, or a goroutine returning without the stop signal): a worker's
// death must never silently stop scanning (spec.md §4.6). Restart storms
// are bounded with a per-worker rate limiter rather than an unconditional
// immediate respawn, which is new hardening beyond the original VxWorks
// watchdog task (see DESIGN.md).
type watchdog struct {
	engine  *Engine
	enabled bool
	limiter *catrate.Limiter
}

func newWatchdog(e *Engine, enabled bool, restartWindow time.Duration, restartBurst int) *watchdog {
	w := &watchdog{engine: e, enabled: enabled}
	if enabled {
		w.limiter = catrate.NewLimiter(map[time.Duration]int{restartWindow: restartBurst})
	}
	return w
}

// supervise runs fn under recovery, restarting it (subject to the
// restart-rate limiter) whenever it exits before stop fires. resetLocks
// is called once a death is confirmed, before fn is re-invoked: it must
// install fresh mutexes on every scanList the dead worker might have
// been holding locked, mirroring dbScan.c's wdPeriodic/wdEvent
// FASTUNLOCK-before-respawn (spec.md §9 "Watchdog-driven restart"), but
// via a swap rather than an unlock-of-a-maybe-unlocked-mutex, which
// would itself panic. supervise returns once stop fires and fn has
// returned cleanly; workers are intended to run supervise for the
// lifetime of the engine.
func (w *watchdog) supervise(name string, fn workerFunc, resetLocks func(), stop <-chan struct{}) {
	for {
		w.runOnce(name, fn, stop)
		select {
		case <-stop:
			return
		default:
		}
		if !w.enabled {
			// Restart disabled: a dead worker stays dead, matching a
			// deployment that prefers a visible outage to masked data loss.
			w.engine.logger.Log(Entry{
				Level:    LevelError,
				Category: "watchdog",
				Kind:     WorkerDeath,
				Worker:   name,
				Message:  "worker died with restart disabled; not respawning",
			})
			return
		}
		if retryAt, ok := w.limiter.Allow(name); !ok {
			w.engine.logger.Log(Entry{
				Level:    LevelError,
				Category: "watchdog",
				Kind:     WorkerDeath,
				Worker:   name,
				Message:  "worker restart rate exceeded; backing off",
			})
			select {
			case <-stop:
				return
			case <-time.After(time.Until(retryAt)):
			}
			continue
		}
		if resetLocks != nil {
			resetLocks()
		}
		w.engine.metrics.restarts.Add(1)
		w.engine.logger.Log(Entry{
			Level:    LevelWarn,
			Category: "watchdog",
			Kind:     WorkerDeath,
			Worker:   name,
			Message:  "restarting worker after unexpected exit",
		})
	}
}

// runOnce executes fn once, recovering a panic into a logged WorkerDeath.
// A panic may occur while fn holds a scanList's mutex (inside
// insertLocked's call into a record's Phase, or mid-bookkeeping in
// traverse); supervise's resetLocks callback is what makes that mutex
// usable again on respawn, not any guarantee that the panic can't happen
// while locked.
func (w *watchdog) runOnce(name string, fn workerFunc, stop <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			w.engine.logger.Log(Entry{
				Level:    LevelError,
				Category: "watchdog",
				Kind:     WorkerDeath,
				Worker:   name,
				Message:  "worker panicked",
				Err:      panicError{r},
			})
		}
	}()
	fn(stop)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	return "panic recovered"
}
