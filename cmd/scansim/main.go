// Command scansim runs a small simulated record database against the
// scan engine: a handful of periodic records, one event-driven record
// posted from a background goroutine, and one I/O-event record driven
// by a fake interrupt source. It exists to exercise Engine end-to-end
// and as a worked usage example, following the teacher's
// eventloop/examples convention.
//
// Run with: go run ./cmd/scansim
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scanengine"
)

// simRecord is a minimal scanengine.Record backed by an in-memory value,
// standing in for a real database record.
type simRecord struct {
	mu sync.Mutex

	name   string
	policy scanengine.ScanPolicy
	event  int
	prio   int
	phase  int16

	ioScan *scanengine.IOScanList

	processed int
}

func (r *simRecord) ScanPolicy() scanengine.ScanPolicy { return r.policy }
func (r *simRecord) EventID() int                      { return r.event }
func (r *simRecord) Priority() int                     { return r.prio }
func (r *simRecord) Phase() int16                      { return r.phase }
func (r *simRecord) Name() string                      { return r.name }

func (r *simRecord) Lock()   { r.mu.Lock() }
func (r *simRecord) Unlock() { r.mu.Unlock() }

func (r *simRecord) Process() {
	r.processed++
}

func (r *simRecord) IOIntInfo(_ scanengine.IOCmd) (*scanengine.IOScanList, error) {
	if r.ioScan == nil {
		return nil, fmt.Errorf("scansim: %s has no io-event support", r.name)
	}
	return r.ioScan, nil
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	duration := flag.Duration("duration", 5*time.Second, "how long to run the simulation")
	flag.Parse()

	cfg := scanengine.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = scanengine.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("scansim: %v", err)
		}
	}

	engine, err := scanengine.New(cfg, scanengine.WithLogger(scanengine.NewDefaultLogger(scanengine.LevelInfo, nil)))
	if err != nil {
		log.Fatalf("scansim: constructing engine: %v", err)
	}

	periodic := make([]*simRecord, 0, engine.NumPeriodic())
	for i := 0; i < engine.NumPeriodic(); i++ {
		r := &simRecord{name: fmt.Sprintf("sim:periodic:%d", i), policy: scanengine.Periodic(i)}
		periodic = append(periodic, r)
		engine.ScanAdd(r)
	}

	eventRecord := &simRecord{name: "sim:event:temperature", policy: scanengine.ScanEvent, event: 1}
	engine.ScanAdd(eventRecord)

	ioHandle := engine.IOScanInit()
	ioRecord := &simRecord{name: "sim:ioevent:limit-switch", policy: scanengine.ScanIoEvent, prio: 0}
	ioRecord.ioScan = ioHandle
	engine.ScanAdd(ioRecord)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Start()
	defer engine.Shutdown()

	go simulateEvents(ctx, engine)
	go simulateInterrupts(ctx, engine, ioHandle)

	timer := time.NewTimer(*duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	snap := engine.Metrics()
	log.Printf("scansim: traversals=%d abandoned=%d events_posted=%d events_dropped=%d restarts=%d",
		snap.TraversalsStarted, snap.TraversalsAbandoned, snap.EventsPosted, snap.EventsDropped, snap.Restarts)
	for _, r := range periodic {
		log.Printf("scansim: %s processed=%d times", r.name, r.processed)
	}
	log.Printf("scansim: %s processed=%d times", eventRecord.name, eventRecord.processed)
	log.Printf("scansim: %s processed=%d times", ioRecord.name, ioRecord.processed)
}

func simulateEvents(ctx context.Context, engine *scanengine.Engine) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.PostEvent(1)
		}
	}
}

func simulateInterrupts(ctx context.Context, engine *scanengine.Engine, handle *scanengine.IOScanList) {
	for {
		delay := time.Duration(150+rand.Intn(300)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			engine.IOScanRequest(handle)
		}
	}
}
