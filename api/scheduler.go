/*
scheduler.go - Periodic like counter reconciliation

PURPOSE:
  Runs ReactionResolver.ReconcileAll on an interval so a counter that
  drifted from its like records (manual edits, partial restores, bugs)
  is repaired without an operator calling the admin endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps once immediately on start
  - Each counter repair commits in its own transaction, so a sweep never
    holds a lock across the whole table

CONFIGURATION:
  - CheckInterval: How often to sweep (COOKIEBOARD_RECONCILE_INTERVAL)
  - Enabled: false when the interval is zero

USAGE:
  scheduler := NewReconciliationScheduler(handler.Reactions, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReconcileLikes endpoint (single target, on demand)
  - forum/reaction.go: ReconcileAll
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/cookieboard/forum"
)

// ReconciliationScheduler repairs like counters in the background.
type ReconciliationScheduler struct {
	Reactions     *forum.ReactionResolver
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastReport forum.ReconcileReport
}

// NewReconciliationScheduler creates a scheduler; interval <= 0 disables it.
func NewReconciliationScheduler(reactions *forum.ReactionResolver, interval time.Duration) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Reactions:     reactions,
		CheckInterval: interval,
		Enabled:       interval > 0,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run(rs.ticker)

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight sweep.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	ticker := rs.ticker
	rs.ticker = nil
	rs.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

// LastReport returns the result of the most recent sweep.
func (rs *ReconciliationScheduler) LastReport() forum.ReconcileReport {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastReport
}

func (rs *ReconciliationScheduler) run(ticker *time.Ticker) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rs.stop
		cancel()
	}()

	// Run immediately on start
	rs.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			rs.sweep(ctx)
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) sweep(ctx context.Context) {
	start := time.Now()
	report, err := rs.Reactions.ReconcileAll(ctx)
	if err != nil {
		log.Printf("[Scheduler] Sweep failed after %d counters: %v", report.Checked, err)
		return
	}

	rs.mu.Lock()
	rs.lastReport = report
	rs.mu.Unlock()

	if report.Fixed > 0 {
		log.Printf("[Scheduler] Repaired %d of %d like counters in %v", report.Fixed, report.Checked, time.Since(start))
	}
}
