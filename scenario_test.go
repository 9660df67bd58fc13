package scanengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_S1_PhasedInsertion is the literal scenario from spec.md
// §8 S1: records A(phase=0), B(phase=5), C(phase=5), D(phase=3) added
// in that order must traverse as A, D, B, C.
func TestScenario_S1_PhasedInsertion(t *testing.T) {
	l := newScanList("test", "s1-literal")
	registry := newElementRegistry()

	a := &testRecord{name: "A", phase: 0}
	b := &testRecord{name: "B", phase: 5}
	c := &testRecord{name: "C", phase: 5}
	d := &testRecord{name: "D", phase: 3}

	for _, r := range []*testRecord{a, b, c, d} {
		l.add(registry.elementFor(r))
	}

	var visited []string
	abandoned := l.traverse(func(r Record) { visited = append(visited, r.Name()) })

	require.False(t, abandoned)
	assert.Equal(t, []string{"A", "D", "B", "C"}, visited)
}

// TestScenario_S2_SelfRemoval is the literal scenario from spec.md §8
// S2: list [A, B, C], visit(B) calls scan_delete(B). A, B, C must each
// be visited exactly once; the list ends as [A, C].
func TestScenario_S2_SelfRemoval(t *testing.T) {
	l := newScanList("test", "s2-literal")
	registry := newElementRegistry()

	a := &testRecord{name: "A", phase: 0}
	b := &testRecord{name: "B", phase: 0}
	c := &testRecord{name: "C", phase: 0}

	for _, r := range []*testRecord{a, b, c} {
		l.add(registry.elementFor(r))
	}

	var visited []string
	l.traverse(func(r Record) {
		visited = append(visited, r.Name())
		if r.Name() == "B" {
			l.remove(registry.elementFor(b))
		}
	})
	assert.Equal(t, []string{"A", "B", "C"}, visited)

	var remaining []string
	l.traverse(func(r Record) { remaining = append(remaining, r.Name()) })
	assert.Equal(t, []string{"A", "C"}, remaining)
}

// TestScenario_S3_Replacement is the literal scenario from spec.md §8
// S3: list [A, B, C], visit(B) calls scan_delete(B) and scan_add(X)
// where X.phase=0. A, B, C must each be visited (X may or may not be
// visited this pass); the next pass visits [A, X, C] in that order.
func TestScenario_S3_Replacement(t *testing.T) {
	l := newScanList("test", "s3-literal")
	registry := newElementRegistry()

	a := &testRecord{name: "A", phase: 0}
	b := &testRecord{name: "B", phase: 1}
	c := &testRecord{name: "C", phase: 2}
	x := &testRecord{name: "X", phase: 0}

	for _, r := range []*testRecord{a, b, c} {
		l.add(registry.elementFor(r))
	}

	var visited []string
	l.traverse(func(r Record) {
		visited = append(visited, r.Name())
		if r.Name() == "B" {
			l.remove(registry.elementFor(b))
			l.add(registry.elementFor(x))
		}
	})
	for _, want := range []string{"A", "B", "C"} {
		assert.Contains(t, visited, want)
	}

	var next []string
	l.traverse(func(r Record) { next = append(next, r.Name()) })
	assert.Equal(t, []string{"A", "X", "C"}, next)
}

// TestScenario_S4_NeighborhoodCollapse is the literal scenario from
// spec.md §8 S4: list [A, B, C, D, E], visit(C) deletes B, C, D, E.
// Traversal visits A, B, C, then falls back and returns, since C's
// anchors (B and D) and C itself are all gone; the next pass traverses
// the surviving list ([A]) correctly.
func TestScenario_S4_NeighborhoodCollapse(t *testing.T) {
	l := newScanList("test", "s4-literal")
	registry := newElementRegistry()

	a := &testRecord{name: "A", phase: 0}
	b := &testRecord{name: "B", phase: 1}
	c := &testRecord{name: "C", phase: 2}
	d := &testRecord{name: "D", phase: 3}
	e := &testRecord{name: "E", phase: 4}

	for _, r := range []*testRecord{a, b, c, d, e} {
		l.add(registry.elementFor(r))
	}

	var visited []string
	abandoned := l.traverse(func(r Record) {
		visited = append(visited, r.Name())
		if r.Name() == "C" {
			l.remove(registry.elementFor(b))
			l.remove(registry.elementFor(c))
			l.remove(registry.elementFor(d))
			l.remove(registry.elementFor(e))
		}
	})

	assert.True(t, abandoned)
	assert.Equal(t, []string{"A", "B", "C"}, visited)

	var next []string
	l.traverse(func(r Record) { next = append(next, r.Name()) })
	assert.Equal(t, []string{"A"}, next)
}

// TestScenario_S5_EventCoalescing is the literal scenario from spec.md
// §8 S5: with the accept gate open, post_event(7) five times before the
// event worker runs once. The list for event 7 must be traversed at
// least once and at most five times; after the worker drains the ring
// and blocks, every record on that list has been visited at least once.
func TestScenario_S5_EventCoalescing(t *testing.T) {
	e := newTestEngine(t)

	r := newTestRecord("temp", ScanEvent)
	r.event = 7
	e.ScanAdd(r)

	var processedAt []time.Time
	r.onProcess = func(*testRecord) { processedAt = append(processedAt, time.Now()) }

	e.Start()
	defer e.Shutdown()

	for i := 0; i < 5; i++ {
		e.PostEvent(7)
	}

	require.Eventually(t, func() bool {
		return r.processed >= 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, r.processed, 1)
	assert.LessOrEqual(t, r.processed, 5)
}

// TestScenario_S6_PriorityFanOut is the literal scenario from spec.md
// §8 S6: an I/O source with 3 priority slots containing [R0], [R1,R2],
// [] calls io_scan_request. Callbacks must be enqueued at priorities 0
// and 1 only; R0, R1, R2 must each be processed exactly once.
func TestScenario_S6_PriorityFanOut(t *testing.T) {
	e := newTestEngine(t)
	e.Start()
	defer e.Shutdown()

	handle := e.IOScanInit()

	r0 := newTestRecord("R0", ScanIoEvent)
	r0.ioScan, r0.prio = handle, 0
	r1 := newTestRecord("R1", ScanIoEvent)
	r1.ioScan, r1.prio = handle, 1
	r2 := newTestRecord("R2", ScanIoEvent)
	r2.ioScan, r2.prio = handle, 1

	for _, r := range []*testRecord{r0, r1, r2} {
		e.ScanAdd(r)
	}

	var dispatched []int
	var mu sync.Mutex
	e.dispatcher = trackingDispatcher{dispatched: &dispatched, mu: &mu}

	e.IOScanRequest(handle)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return r0.processed == 1 && r1.processed == 1 && r2.processed == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{0, 1}, dispatched)
	assert.Equal(t, 1, r0.processed)
	assert.Equal(t, 1, r1.processed)
	assert.Equal(t, 1, r2.processed)
}

type trackingDispatcher struct {
	dispatched *[]int
	mu         *sync.Mutex
}

func (d trackingDispatcher) Dispatch(priority int, fn func()) {
	d.mu.Lock()
	*d.dispatched = append(*d.dispatched, priority)
	d.mu.Unlock()
	fn()
}
