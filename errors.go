package scanengine

import "fmt"

// ErrorKind classifies the failures enumerated in spec.md §7. None of
// these are ever returned across ScanAdd/ScanDelete/PostEvent — they are
// observable only via the Logger, matching the real-time constraint
// that control code cannot recover from routing errors in its hot path.
type ErrorKind int

const (
	// kindNone is the zero value, meaning "no ErrorKind" — most Entry
	// values don't carry one.
	kindNone ErrorKind = iota
	IllegalScanValue
	IllegalEventID
	IllegalPriority
	AllocationFailure
	QueueOverflow
	ListMismatch
	WorkerDeath
)

func (k ErrorKind) String() string {
	switch k {
	case kindNone:
		return ""
	case IllegalScanValue:
		return "IllegalScanValue"
	case IllegalEventID:
		return "IllegalEventID"
	case IllegalPriority:
		return "IllegalPriority"
	case AllocationFailure:
		return "AllocationFailure"
	case QueueOverflow:
		return "QueueOverflow"
	case ListMismatch:
		return "ListMismatch"
	case WorkerDeath:
		return "WorkerDeath"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// logKind writes a single Entry carrying an ErrorKind to the engine's
// Logger and bumps the illegal-input counter. Every logged ErrorKind
// flows through here except WorkerDeath, which watchdog.go logs directly
// without touching the counter; AllocationFailure is never emitted.
func (e *Engine) logKind(kind ErrorKind, category, record, message string) {
	e.metrics.illegalInputs.Add(1)
	e.logger.Log(Entry{Level: LevelWarn, Category: category, Kind: kind, Message: message, Record: record})
}
