package remind

import (
	"fmt"
	"log"
	"sync"
	"time"

	"tempo/internal/clock"
	"tempo/internal/metrics"
	"tempo/internal/models"
	"tempo/internal/notify"
)

// defaultVibration is the pattern sent when a reminder has vibration enabled.
var defaultVibration = []int{200, 100, 200}

// OccurrenceScheduler arms one one-shot callback per reminder for its next
// firing instant and owns the delivery disposition shared with the sweep
// checker.
type OccurrenceScheduler struct {
	mu         sync.Mutex
	clock      clock.Clock
	store      *Store
	dispatcher *notify.Dispatcher
	guard      *DedupGuard
	timers     map[string]clock.Timer
}

func NewOccurrenceScheduler(clk clock.Clock, store *Store, dispatcher *notify.Dispatcher, guard *DedupGuard) *OccurrenceScheduler {
	return &OccurrenceScheduler{
		clock:      clk,
		store:      store,
		dispatcher: dispatcher,
		guard:      guard,
		timers:     map[string]clock.Timer{},
	}
}

// Arm schedules the one-shot callback for a reminder's instant. Instants
// already in the past are left for the sweep checker. Re-arming an id
// replaces (and stops) any previous timer for it.
func (o *OccurrenceScheduler) Arm(r models.Reminder) {
	if r.Completed {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelLocked(r.ID)

	delay := r.ScheduledTime.Sub(o.clock.Now())
	if delay <= 0 {
		return
	}

	id, at := r.ID, r.ScheduledTime
	o.timers[id] = o.clock.AfterFunc(delay, func() {
		o.fire(id, at)
	})
	metrics.RemindersArmed.Set(float64(len(o.timers)))
}

// Cancel stops the pending one-shot for a reminder, if any.
func (o *OccurrenceScheduler) Cancel(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelLocked(id)
}

func (o *OccurrenceScheduler) cancelLocked(id string) {
	if t, ok := o.timers[id]; ok {
		t.Stop()
		delete(o.timers, id)
		metrics.RemindersArmed.Set(float64(len(o.timers)))
	}
}

// fire runs in a timer callback; nothing may panic across this boundary.
func (o *OccurrenceScheduler) fire(id string, at time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in reminder callback %s: %v", id, rec)
		}
	}()

	o.mu.Lock()
	delete(o.timers, id)
	metrics.RemindersArmed.Set(float64(len(o.timers)))
	o.mu.Unlock()

	r, ok := o.store.Get(id)
	if !ok || r.Completed {
		return
	}
	// The reminder was updated after this callback was armed; the new arm
	// owns delivery for the new instant.
	if !r.ScheduledTime.Equal(at) {
		return
	}

	o.Fire(r, at)
}

// Fire delivers one occurrence and applies its disposition. Both the one-shot
// path and the sweep checker route through here; the dedup guard makes the
// occurrence fire at most once no matter how the two interleave.
func (o *OccurrenceScheduler) Fire(r models.Reminder, at time.Time) {
	if !o.guard.MarkIfNew(r.ID, at) {
		metrics.DedupSuppressedTotal.Inc()
		return
	}

	o.dispatcher.Deliver(noticeFor(r))

	switch {
	case !r.Recurring:
		o.store.Complete(r.ID)
	default:
		next, ok := NextOccurrence(r.ScheduledTime, r.Pattern, r.Days, o.clock.Now())
		if !ok {
			// A recurrence that can no longer produce a next instant is
			// discarded rather than left dangling.
			log.Printf("Removing reminder %s: unresolvable recurrence pattern %q", r.ID, r.Pattern)
			o.store.Remove(r.ID)
			return
		}
		r.ScheduledTime = next
		r.Completed = false
		r.CompletedAt = nil
		o.store.Update(r)
	}
}

func noticeFor(r models.Reminder) notify.Notice {
	n := notify.Notice{
		Title:        r.Title,
		Body:         r.Description,
		Category:     r.Type,
		SuppressPush: !r.NotificationEnabled,
		Data:         routingData(r),
	}
	if n.Body == "" {
		n.Body = fmt.Sprintf("Reminder scheduled for %s", r.ScheduledTime.Format("15:04"))
	}
	if r.SoundEnabled {
		n.Sound = r.Sound
		if n.Sound == "" {
			n.Sound = "classic"
		}
		n.Volume = r.Volume
	}
	if r.VibrationEnabled {
		n.Vibration = defaultVibration
	}
	return n
}

func routingData(r models.Reminder) map[string]any {
	data := map[string]any{
		"reminderId": r.ID,
		"type":       string(r.Type),
	}
	for k, v := range r.Data {
		data[k] = v
	}
	return data
}
