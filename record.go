package scanengine

import "fmt"

// ScanPolicy selects when a Record is processed. The wire encoding
// matches the EPICS SCAN field convention: 0=Passive, 1=Event,
// 2=IoEvent, 3..N+2=Periodic(i=code-3).
type ScanPolicy int16

const (
	// ScanPassive means the record is never scanned by this engine; it
	// is processed only as a side effect of something else (e.g. being
	// a forward link target).
	ScanPassive ScanPolicy = iota
	// ScanEvent means the record is scanned when its EventID is posted
	// via PostEvent.
	ScanEvent
	// ScanIoEvent means the record is scanned when its device support
	// requests an I/O-event scan via IOScanRequest.
	ScanIoEvent
	// firstPeriodicChoice is the first reserved wire value for
	// Periodic(0). It mirrors EPICS's SCAN_1ST_PERIODIC.
	firstPeriodicChoice
)

// FirstPeriodicChoice is the number of non-periodic scan choices
// (Passive, Event, IoEvent) reserved ahead of Periodic(0) in the wire
// encoding. Embedders holding a raw SCAN choice list can use it to skip
// the leading non-periodic enum strings; Config.Periods itself takes the
// periodic strings only, and nothing in this package uses it.
const FirstPeriodicChoice = int(firstPeriodicChoice)

// Periodic returns the scan policy for the periodic list at ordinal i
// (0 = first configured period).
func Periodic(i int) ScanPolicy {
	return ScanPolicy(int(firstPeriodicChoice) + i)
}

// IsPeriodic reports whether p selects a periodic list, and if so its
// ordinal.
func (p ScanPolicy) IsPeriodic() (ordinal int, ok bool) {
	if p < firstPeriodicChoice {
		return 0, false
	}
	return int(p - firstPeriodicChoice), true
}

func (p ScanPolicy) String() string {
	switch p {
	case ScanPassive:
		return "Passive"
	case ScanEvent:
		return "Event"
	case ScanIoEvent:
		return "IoEvent"
	default:
		if i, ok := p.IsPeriodic(); ok {
			return fmt.Sprintf("Periodic(%d)", i)
		}
		return fmt.Sprintf("ScanPolicy(%d)", int(p))
	}
}

// IOCmd selects the direction of an IOIntInfo call: add to, or remove
// from, the device's I/O-event scan lists.
type IOCmd int

const (
	IOCmdAdd IOCmd = iota
	IOCmdRemove
)

// ErrLegacyIOScan is returned by IOIntInfo to indicate the device wants
// the legacy (cmd == -1) routing path, which this engine does not
// implement — see SPEC_FULL.md §2 and the "Legacy I/O event path"
// design note.
var ErrLegacyIOScan = legacyIOScanError{}

type legacyIOScanError struct{}

func (legacyIOScanError) Error() string { return "scanengine: legacy io_event scan path is unsupported" }

// IOScanList is the per-priority array of scan lists a device's
// IOIntInfo hands back to the membership manager. It is produced by
// Engine.IOScanInit and opaque to device support beyond that.
type IOScanList struct {
	priorities []*scanList
}

// Record is the opaque, externally-owned entity the scanning core
// dispatches onto. The core never inspects a Record beyond these
// methods; the record database, device support, and record processing
// logic all live outside this package.
type Record interface {
	// ScanPolicy returns the record's current scan policy.
	ScanPolicy() ScanPolicy
	// EventID returns the record's configured event identifier,
	// meaningful only when ScanPolicy() == ScanEvent.
	EventID() int
	// Priority returns the record's callback priority, meaningful only
	// when ScanPolicy() == ScanIoEvent.
	Priority() int
	// Phase returns the record's secondary ordering key within its
	// scan list. Lower values are visited first.
	Phase() int16

	// Lock acquires the record's own processing mutex. The engine
	// never holds a scan-list lock while calling Lock.
	Lock()
	// Unlock releases the record's processing mutex.
	Unlock()
	// Process evaluates the record. It may call ScanAdd/ScanDelete on
	// any record, including itself, from within this call.
	Process()

	// IOIntInfo is called only for ScanIoEvent records, once per
	// ScanAdd/ScanDelete. cmd is IOCmdAdd or IOCmdRemove. It returns
	// the device's priority-indexed IOScanList, or ErrLegacyIOScan if
	// the device only supports the legacy routing path, or any other
	// non-nil error if the record has no I/O-event device support
	// (scan_add/scan_delete becomes a no-op in that case).
	IOIntInfo(cmd IOCmd) (*IOScanList, error)

	// Name returns a human-readable identifier, used only in log
	// entries and debug dumps.
	Name() string
}
