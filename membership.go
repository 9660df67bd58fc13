package scanengine

// ScanAdd places a record onto the scan list appropriate for its current
// ScanPolicy, per spec.md §4.2. It is the single entry point the record
// database calls on record creation, and on any change to a record's
// SCAN/EVNT/PRIO fields the database must pair with a prior ScanDelete
// of the old policy (spec.md §4.2, last paragraph). ScanAdd never
// returns an error; failures are logged (spec.md §7).
func (e *Engine) ScanAdd(r Record) {
	switch policy := r.ScanPolicy(); policy {
	case ScanPassive:
		return

	case ScanEvent:
		evnt := r.EventID()
		if evnt < 0 || evnt >= MaxEvents {
			e.logIllegal(IllegalEventID, r, "scanAdd detected illegal EVNT value")
			return
		}
		list := e.eventListFor(evnt)
		list.add(e.elements.elementFor(r))

	case ScanIoEvent:
		list, ok := e.ioListFor(r, IOCmdAdd)
		if !ok {
			return
		}
		list.add(e.elements.elementFor(r))

	default:
		if ordinal, ok := policy.IsPeriodic(); ok {
			if ordinal < 0 || ordinal >= len(e.periodic) {
				e.logIllegal(IllegalScanValue, r, "scanAdd detected illegal SCAN value")
				return
			}
			e.periodic[ordinal].add(e.elements.elementFor(r))
			return
		}
		e.logIllegal(IllegalScanValue, r, "scanAdd detected illegal SCAN value")
	}
}

// ScanDelete removes a record from the scan list its current ScanPolicy
// names, per spec.md §4.2. A record with no element on that list is a
// silent no-op, except that deleting a ScanEvent record whose event has
// no list at all is logged as ListMismatch.
func (e *Engine) ScanDelete(r Record) {
	switch policy := r.ScanPolicy(); policy {
	case ScanPassive:
		return

	case ScanEvent:
		evnt := r.EventID()
		if evnt < 0 || evnt >= MaxEvents {
			e.logIllegal(IllegalEventID, r, "scanDelete detected illegal EVNT value")
			return
		}
		list, ok := e.existingEventList(evnt)
		if !ok {
			e.logIllegal(ListMismatch, r, "scanDelete for event with no list")
			return
		}
		e.removeChecked(list, r)

	case ScanIoEvent:
		list, ok := e.ioListFor(r, IOCmdRemove)
		if !ok {
			return
		}
		e.removeChecked(list, r)

	default:
		if ordinal, ok := policy.IsPeriodic(); ok {
			if ordinal < 0 || ordinal >= len(e.periodic) {
				e.logIllegal(IllegalScanValue, r, "scanDelete detected illegal SCAN value")
				return
			}
			e.removeChecked(e.periodic[ordinal], r)
			return
		}
		e.logIllegal(IllegalScanValue, r, "scanDelete detected illegal SCAN value")
	}
}

func (e *Engine) removeChecked(list *scanList, r Record) {
	el := e.elements.elementFor(r)
	if !list.remove(el) {
		e.logIllegal(ListMismatch, r, "scanDelete: element belongs to a different list")
	}
}

// ioListFor resolves the priority-indexed scan list a ScanIoEvent record
// belongs on, by querying the record's device support. It returns
// ok=false (with appropriate logging already done) if the record has no
// usable I/O-event routing.
func (e *Engine) ioListFor(r Record, cmd IOCmd) (*scanList, bool) {
	arr, err := r.IOIntInfo(cmd)
	if err == ErrLegacyIOScan {
		e.logger.Log(Entry{Level: LevelWarn, Category: "membership", Message: "legacy io_event scan path is unsupported", Record: r.Name()})
		return nil, false
	}
	if err != nil {
		// No device support for I/O-event scanning; matches the
		// original's `if(get_ioint_info==NULL) return;`.
		return nil, false
	}
	if arr == nil {
		return nil, false
	}
	priority := r.Priority()
	if priority < 0 || priority >= len(arr.priorities) {
		e.logIllegal(IllegalPriority, r, "illegal priority field")
		return nil, false
	}
	return arr.priorities[priority], true
}

func (e *Engine) logIllegal(kind ErrorKind, r Record, message string) {
	e.logKind(kind, "membership", r.Name(), message)
}
