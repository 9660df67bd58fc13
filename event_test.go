package scanengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_PushDrainOrder(t *testing.T) {
	q := newEventQueue()
	require.True(t, q.push(1))
	require.True(t, q.push(2))
	require.True(t, q.push(3))

	var drained []byte
	q.drain(func(e byte) { drained = append(drained, e) })
	assert.Equal(t, []byte{1, 2, 3}, drained)
}

func TestEventQueue_WakeIsIdempotent(t *testing.T) {
	q := newEventQueue()
	require.True(t, q.push(1))
	require.True(t, q.push(2))

	select {
	case <-q.wake:
	default:
		t.Fatal("expected a pending wake after first push")
	}
	select {
	case <-q.wake:
		t.Fatal("wake channel should not have a second pending signal")
	default:
	}
}

func TestEventQueue_OverflowReportsFalse(t *testing.T) {
	q := newEventQueue()
	for i := 0; i < EventQueueSize; i++ {
		require.True(t, q.push(byte(i)))
	}
	assert.False(t, q.push(99))
}

func TestEngine_PostEvent_IllegalID(t *testing.T) {
	e := newTestEngine(t)
	logger := &recordingLogger{}
	e.logger = logger
	e.acceptGate.Store(true)

	e.PostEvent(-1)
	e.PostEvent(MaxEvents)

	assert.True(t, logger.hasKind(IllegalEventID))
	assert.Equal(t, int64(0), e.metrics.eventsPosted.Load())
}

func TestEngine_PostEvent_BeforeStart_IsNoop(t *testing.T) {
	e := newTestEngine(t)
	e.PostEvent(1)
	assert.Equal(t, int64(0), e.metrics.eventsPosted.Load())
}

func TestEngine_EventDelivery(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRecord("temp", ScanEvent)
	r.event = 7
	e.ScanAdd(r)

	done := make(chan struct{})
	r.onProcess = func(*testRecord) { close(done) }

	e.Start()
	defer e.Shutdown()

	e.PostEvent(7)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("record was not processed after PostEvent")
	}
	assert.Equal(t, 1, r.processed)
}
