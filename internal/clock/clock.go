package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts wall-clock access so scheduling code can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

type Timer interface {
	Stop() bool
}

type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// System returns a Clock backed by the time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTimer struct{ t *time.Timer }

func (t systemTimer) Stop() bool { return t.t.Stop() }

type systemTicker struct{ t *time.Ticker }

func (t systemTicker) Chan() <-chan time.Time { return t.t.C }
func (t systemTicker) Stop()                  { t.t.Stop() }

// Manual is a test clock advanced explicitly. AfterFunc callbacks run
// synchronously inside Advance, in deadline order, with the clock set to each
// callback's deadline.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	tickers []*manualTicker
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, at: m.now.Add(d), f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{clock: m, interval: d, next: m.now.Add(d), ch: make(chan time.Time, 1)}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward, firing due timers and tickers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		timer := m.nextDueLocked(target)
		if timer == nil {
			break
		}
		m.now = timer.at
		m.removeLocked(timer)
		f := timer.f
		m.mu.Unlock()
		f()
		m.mu.Lock()
	}

	m.now = target
	for _, ticker := range m.tickers {
		if ticker.stopped {
			continue
		}
		for !ticker.next.After(target) {
			select {
			case ticker.ch <- ticker.next:
			default:
			}
			ticker.next = ticker.next.Add(ticker.interval)
		}
	}
	m.mu.Unlock()
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.stopped && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	return due[0]
}

func (m *Manual) removeLocked(timer *manualTimer) {
	for i, t := range m.timers {
		if t == timer {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	clock   *Manual
	at      time.Time
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	t.clock.removeLocked(t)
	return was
}

type manualTicker struct {
	clock    *Manual
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *manualTicker) Chan() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
