package remind

import (
	"log"
	"sync"
	"time"

	"tempo/internal/clock"
	"tempo/internal/metrics"
)

// SweepChecker is the safety net for occurrences whose one-shot timer never
// fired, typically because the process was suspended past the instant. It
// re-checks the store on a fixed interval and delivers anything that fell due
// within a trailing window sized to that interval, so long-stale reminders
// from a multi-day outage are not replayed.
type SweepChecker struct {
	clock    clock.Clock
	store    *Store
	sched    *OccurrenceScheduler
	interval time.Duration
	window   time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func NewSweepChecker(clk clock.Clock, store *Store, sched *OccurrenceScheduler, interval, window time.Duration) *SweepChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if window <= 0 {
		window = interval
	}
	return &SweepChecker{
		clock:    clk,
		store:    store,
		sched:    sched,
		interval: interval,
		window:   window,
	}
}

// Start launches the periodic pass.
func (s *SweepChecker) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go func() {
		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				s.Pass()
			}
		}
	}()
}

func (s *SweepChecker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	s.running = false
}

// Pass runs one catch-up sweep. It is exported so startup and tests can run
// a pass without waiting for the ticker.
func (s *SweepChecker) Pass() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in sweep pass: %v", rec)
		}
	}()

	if removed := s.sched.guard.Prune(s.clock.Now()); removed > 0 {
		log.Printf("Pruned %d delivered-occurrence entries", removed)
	}

	now := s.clock.Now()
	earliest := now.Add(-s.window)

	for _, r := range s.store.Pending() {
		if r.ScheduledTime.After(now) || r.ScheduledTime.Before(earliest) {
			continue
		}
		if s.sched.guard.Seen(r.ID, r.ScheduledTime) {
			continue
		}
		metrics.SweepCatchesTotal.Inc()
		s.sched.Fire(r, r.ScheduledTime)
	}
}
