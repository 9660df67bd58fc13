package scanengine

import (
	"strconv"
	"time"
)

// periodicWorker runs one configured period's scan list, per spec.md
// §4.3. Each ordinal gets its own goroutine (never time-sliced with
// another period on a shared one) so that a longer period's traversal
// can never delay a shorter period's wake — see DESIGN.md's resolution
// of the VxWorks task-priority open question.
type periodicWorker struct {
	engine   *Engine
	list     *scanList
	ordinal  int
	name     string
}

func newPeriodicWorker(e *Engine, ordinal int, list *scanList) *periodicWorker {
	return &periodicWorker{engine: e, list: list, ordinal: ordinal, name: "periodic-" + strconv.Itoa(ordinal)}
}

// run is the periodicTask loop: traverse, then sleep the remainder of
// the period, anchoring the next wake to intended time rather than
// actual wake time to bound drift under transient overrun (spec.md §4.3,
// §8 property 6).
func (w *periodicWorker) run(stop <-chan struct{}) {
	period := w.list.ticksPerPeriod
	start := nowFunc()
	for {
		select {
		case <-stop:
			return
		default:
		}

		if w.engine.acceptGate.Load() {
			w.engine.traverseAndProcess(w.list)
		}

		end := nowFunc()
		delay := period - end.Sub(start)
		if delay <= 0 {
			delay = time.Nanosecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		start = end.Add(delay)
	}
}

// nowFunc is overridable in tests to control drift-compensation timing
// deterministically, following the teacher's pattern of a swappable
// package-level time source (catrate/limiter.go's timeNow).
var nowFunc = time.Now
