package timer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"tempo/internal/clock"
	"tempo/internal/config"
	"tempo/internal/database"
	"tempo/internal/models"
	"tempo/internal/notify"
)

const snapshotKey = "countdown:state"

// tickInterval drives the completion check while a session runs. Remaining
// time is always derived from the start instant, never counted down, so the
// tick rate affects only completion latency.
const tickInterval = time.Second

// Countdown is the single process-wide focus/break session. State persists as
// an absolute snapshot (start instant + nominal duration); after a process
// restart the remaining time is recomputed, not read back.
type Countdown struct {
	mu         sync.Mutex
	kv         *database.KV
	clock      clock.Clock
	dispatcher *notify.Dispatcher
	cfg        config.TimerSettings

	mode      models.TimerMode
	duration  time.Duration
	frozen    time.Duration // remaining time captured at pause
	startedAt time.Time     // zero unless actively running
	active    bool
	paused    bool
	task      string
	sessions  int

	stopTick chan struct{}
}

// NewCountdown restores the persisted session. A session that was running
// when the process died resumes with its derived remaining time; one that
// expired while the process was down completes immediately.
func NewCountdown(kv *database.KV, clk clock.Clock, dispatcher *notify.Dispatcher, cfg config.TimerSettings) *Countdown {
	if cfg.SessionsBeforeLongBreak <= 0 {
		cfg.SessionsBeforeLongBreak = 4
	}

	c := &Countdown{
		kv:         kv,
		clock:      clk,
		dispatcher: dispatcher,
		cfg:        cfg,
		mode:       models.ModePomodoro,
	}

	var snap models.CountdownSnapshot
	found, err := kv.GetJSON(snapshotKey, &snap)
	if err != nil {
		log.Printf("Corrupt countdown snapshot, starting idle: %v", err)
		return c
	}
	if !found {
		return c
	}

	c.restore(snap)
	return c
}

func (c *Countdown) restore(snap models.CountdownSnapshot) {
	c.mu.Lock()

	if snap.Mode.Valid() {
		c.mode = snap.Mode
	}
	c.sessions = snap.Sessions
	c.task = snap.Task

	if !snap.IsActive {
		c.mu.Unlock()
		return
	}

	c.duration = time.Duration(snap.Duration) * time.Second
	c.active = true

	if snap.IsPaused || snap.StartedAt == nil {
		c.paused = true
		c.frozen = time.Duration(snap.TimeLeft) * time.Second
		c.mu.Unlock()
		return
	}

	c.startedAt = *snap.StartedAt
	if c.remainingLocked(c.clock.Now()) <= 0 {
		// Ran out while the process was down.
		notice, nextMode, task := c.completeLocked()
		c.mu.Unlock()
		c.afterComplete(notice, nextMode, task)
		return
	}

	c.startTickLocked()
	c.mu.Unlock()
	log.Printf("Resumed %s session with %s remaining", c.mode, c.remaining(c.clock.Now()))
}

// Start begins a new session from any state, cancelling a running one first.
func (c *Countdown) Start(duration time.Duration, mode models.TimerMode, task string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(duration, mode, task)
}

func (c *Countdown) startLocked(duration time.Duration, mode models.TimerMode, task string) {
	c.stopTickLocked()

	c.mode = mode
	c.duration = duration
	c.startedAt = c.clock.Now()
	c.frozen = 0
	c.active = true
	c.paused = false
	c.task = task

	c.persistLocked()
	c.startTickLocked()
}

// Pause freezes a running session, persisting the derived remaining time.
// Returns false unless the session is running and not already paused.
func (c *Countdown) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || c.paused {
		return false
	}

	c.stopTickLocked()
	c.frozen = c.remainingLocked(c.clock.Now())
	c.startedAt = time.Time{}
	c.paused = true
	c.persistLocked()
	return true
}

// Resume reconstructs an equivalent start instant from the frozen remaining
// time so the derived countdown continues where it left off.
func (c *Countdown) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || !c.paused {
		return false
	}

	c.startedAt = c.clock.Now().Add(-(c.duration - c.frozen))
	c.paused = false
	c.frozen = 0
	c.persistLocked()
	c.startTickLocked()
	return true
}

// Stop resets to idle from any state.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickLocked()
	c.active = false
	c.paused = false
	c.duration = 0
	c.frozen = 0
	c.startedAt = time.Time{}
	c.task = ""
	c.persistLocked()
}

// Snapshot returns the current session with remaining time derived from now.
func (c *Countdown) Snapshot() models.CountdownSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.clock.Now())
}

func (c *Countdown) snapshotLocked(now time.Time) models.CountdownSnapshot {
	snap := models.CountdownSnapshot{
		IsActive: c.active,
		IsPaused: c.paused,
		Mode:     c.mode,
		Duration: int(c.duration / time.Second),
		Task:     c.task,
		Sessions: c.sessions,
	}
	if c.active {
		snap.TimeLeft = int(c.remainingLocked(now) / time.Second)
	}
	if !c.startedAt.IsZero() {
		startedAt := c.startedAt
		snap.StartedAt = &startedAt
	}
	return snap
}

func (c *Countdown) remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked(now)
}

func (c *Countdown) remainingLocked(now time.Time) time.Duration {
	if c.paused {
		return c.frozen
	}
	if c.startedAt.IsZero() {
		return 0
	}
	left := c.duration - now.Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) startTickLocked() {
	c.stopTickLocked()
	stop := make(chan struct{})
	c.stopTick = stop

	go func() {
		ticker := c.clock.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				if c.tick() {
					return
				}
			}
		}
	}()
}

func (c *Countdown) stopTickLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// tick reports true once the session completed and the loop should exit.
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if !c.active || c.paused {
		c.mu.Unlock()
		return true
	}
	if c.remainingLocked(c.clock.Now()) > 0 {
		c.mu.Unlock()
		return false
	}
	notice, nextMode, task := c.completeLocked()
	c.mu.Unlock()
	c.afterComplete(notice, nextMode, task)
	return true
}

// completeLocked advances the mode cycle and persists the idle state,
// returning the completion alert for the caller to deliver after unlocking.
func (c *Countdown) completeLocked() (notify.Notice, models.TimerMode, string) {
	finished := c.mode
	task := c.task

	if finished == models.ModePomodoro {
		c.sessions++
	}
	nextMode := c.nextModeLocked(finished)

	c.stopTickLocked()
	c.active = false
	c.paused = false
	c.startedAt = time.Time{}
	c.frozen = 0
	c.mode = nextMode
	c.persistLocked()

	log.Printf("%s session completed, next mode %s", finished, nextMode)
	return completionNotice(finished, task), nextMode, task
}

// afterComplete runs the post-completion work that must not hold the mutex:
// alert delivery and the optional auto-start of the next session.
func (c *Countdown) afterComplete(notice notify.Notice, nextMode models.TimerMode, task string) {
	c.dispatcher.Deliver(notice)

	if c.cfg.AutoStartNext {
		c.mu.Lock()
		c.startLocked(c.durationFor(nextMode), nextMode, task)
		c.mu.Unlock()
	}
}

func (c *Countdown) nextModeLocked(finished models.TimerMode) models.TimerMode {
	if finished != models.ModePomodoro {
		return models.ModePomodoro
	}
	if c.sessions%c.cfg.SessionsBeforeLongBreak == 0 {
		return models.ModeLongBreak
	}
	return models.ModeShortBreak
}

func (c *Countdown) durationFor(mode models.TimerMode) time.Duration {
	switch mode {
	case models.ModeShortBreak:
		return c.cfg.ShortBreak
	case models.ModeLongBreak:
		return c.cfg.LongBreak
	default:
		return c.cfg.Pomodoro
	}
}

func completionNotice(finished models.TimerMode, task string) notify.Notice {
	n := notify.Notice{
		Category: models.CategoryTimer,
		Volume:   100,
		Data:     map[string]any{"mode": string(finished)},
	}
	if finished == models.ModePomodoro {
		n.Title = "Focus session complete"
		n.Body = "Time for a break."
		n.Sound = "bell"
		if task != "" {
			n.Body = fmt.Sprintf("Finished working on %q. Time for a break.", task)
		}
	} else {
		n.Title = "Break over"
		n.Body = "Back to focus."
		n.Sound = "chime"
	}
	return n
}

func (c *Countdown) persistLocked() {
	if err := c.kv.SetJSON(snapshotKey, c.snapshotLocked(c.clock.Now())); err != nil {
		log.Printf("Failed to persist countdown snapshot: %v", err)
	}
}
