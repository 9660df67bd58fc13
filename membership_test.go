package scanengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanAdd_Passive_IsNoop(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRecord("passive", ScanPassive)
	e.ScanAdd(r)
	e.ScanDelete(r)
}

func TestScanAdd_Periodic(t *testing.T) {
	e := newTestEngineWithPeriods(t, "1 second", "2 second")
	r := newTestRecord("p0", Periodic(0))
	e.ScanAdd(r)

	var visited []string
	e.periodic[0].traverse(func(rec Record) { visited = append(visited, rec.Name()) })
	assert.Equal(t, []string{"p0"}, visited)
}

func TestScanAdd_Periodic_IllegalOrdinal(t *testing.T) {
	e := newTestEngineWithPeriods(t, "1 second")
	logger := &recordingLogger{}
	e.logger = logger

	r := newTestRecord("bad", Periodic(5))
	e.ScanAdd(r)

	assert.True(t, logger.hasKind(IllegalScanValue))
}

func TestScanAdd_Event_IllegalEventID(t *testing.T) {
	e := newTestEngine(t)
	logger := &recordingLogger{}
	e.logger = logger

	r := newTestRecord("bad-evt", ScanEvent)
	r.event = -5
	e.ScanAdd(r)

	assert.True(t, logger.hasKind(IllegalEventID))
}

func TestScanDelete_RemovesFromPeriodic(t *testing.T) {
	e := newTestEngineWithPeriods(t, "1 second")
	r := newTestRecord("p0", Periodic(0))
	e.ScanAdd(r)
	e.ScanDelete(r)

	count := 0
	e.periodic[0].traverse(func(Record) { count++ })
	assert.Equal(t, 0, count)
}

func TestScanDelete_EventWithNoList(t *testing.T) {
	e := newTestEngine(t)
	logger := &recordingLogger{}
	e.logger = logger

	r := newTestRecord("unregistered", ScanEvent)
	r.event = 42
	e.ScanDelete(r)

	assert.True(t, logger.hasKind(ListMismatch))
}

func TestScanAdd_IoEvent_NoDeviceSupport(t *testing.T) {
	e := newTestEngine(t)
	r := newTestRecord("no-support", ScanIoEvent)
	r.ioErr = assertError("no device support")
	e.ScanAdd(r)
}

func TestScanAdd_IoEvent_IllegalPriority(t *testing.T) {
	e := newTestEngine(t)
	logger := &recordingLogger{}
	e.logger = logger

	handle := e.IOScanInit()
	r := newTestRecord("bad-prio", ScanIoEvent)
	r.ioScan = handle
	r.prio = 999
	e.ScanAdd(r)

	assert.True(t, logger.hasKind(IllegalPriority))
}

func TestScanAdd_IoEvent_LegacyPath(t *testing.T) {
	e := newTestEngine(t)
	logger := &recordingLogger{}
	e.logger = logger

	r := newTestRecord("legacy", ScanIoEvent)
	r.ioErr = ErrLegacyIOScan
	e.ScanAdd(r)

	found := false
	for _, entry := range logger.snapshot() {
		if entry.Message == "legacy io_event scan path is unsupported" {
			found = true
		}
	}
	require.True(t, found)
}

type assertError string

func (e assertError) Error() string { return string(e) }
