package scanengine

import "strconv"

// ScanPPL prints every periodic list's current membership, one Entry
// per list header plus one per record, grounded on dbScan.c's scanppl/
// printList. Like the original, this is an operator debug aid: the list
// lock is dropped between records, so a concurrent add/remove can cause
// a record to be skipped or listed twice; it is never a consistent
// snapshot (spec.md §6).
func (e *Engine) ScanPPL() {
	for i, list := range e.periodic {
		dumpList(e.logger, list, "periodic", i)
	}
}

// ScanPEL prints every currently-allocated event list's membership,
// grounded on dbScan.c's scanpel.
func (e *Engine) ScanPEL() {
	e.eventMu.Lock()
	lists := make(map[int]*scanList, len(e.eventLists))
	for evnt, list := range e.eventLists {
		lists[evnt] = list
	}
	e.eventMu.Unlock()

	for evnt, list := range lists {
		dumpList(e.logger, list, "event", evnt)
	}
}

// ScanPIOL prints every registered I/O-event source's membership, one
// group per callback priority, grounded on dbScan.c's scanpiol.
func (e *Engine) ScanPIOL() {
	e.ioMu.Lock()
	heads := e.ioChains
	e.ioMu.Unlock()

	for priority, head := range heads {
		for chain := head; chain != nil; chain = chain.next {
			if priority < len(chain.lists.priorities) {
				dumpList(e.logger, chain.lists.priorities[priority], "ioevent", priority)
			}
		}
	}
}

// dumpList walks list front-to-back exactly once, logging one Entry per
// visited record plus a header Entry if the list is non-empty. It does
// not use scanList.traverse's mutation-safe protocol: like the
// original, a dump is allowed to miss or double-count a record under
// concurrent mutation, never to crash or loop forever, so it simply
// re-checks the record's own back-pointer on each step and bails out if
// it no longer matches.
func dumpList(logger Logger, list *scanList, kind string, id int) {
	listID := strconv.Itoa(id)

	m := list.lock()
	first := list.head
	m.Unlock()
	if first == nil {
		return
	}

	logger.Log(Entry{Level: LevelInfo, Category: "dump", Message: "scan list", ListKind: kind, ListID: listID})

	pse := first
	for pse != nil {
		logger.Log(Entry{Level: LevelInfo, Category: "dump", Message: "record", ListKind: kind, ListID: listID, Record: pse.record.Name()})

		m = list.lock()
		if pse.list != list {
			m.Unlock()
			logger.Log(Entry{Level: LevelInfo, Category: "dump", Message: "list changed mid-dump, stopping", ListKind: kind, ListID: listID})
			return
		}
		pse = pse.next
		m.Unlock()
	}
}
