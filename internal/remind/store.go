package remind

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tempo/internal/clock"
	"tempo/internal/database"
	"tempo/internal/models"
)

const remindersKey = "reminders"

// Scheduler arms and cancels one-shot firing callbacks for reminders. The
// store drives it on every lifecycle change so a stale callback can never
// fire with superseded data.
type Scheduler interface {
	Arm(r models.Reminder)
	Cancel(id string)
}

type noopScheduler struct{}

func (noopScheduler) Arm(models.Reminder) {}
func (noopScheduler) Cancel(string)       {}

// Store owns the reminder entities: an in-memory map mirrored synchronously
// to the persisted record on every mutation.
type Store struct {
	mu        sync.Mutex
	kv        *database.KV
	clock     clock.Clock
	sched     Scheduler
	reminders map[string]models.Reminder
}

// NewStore loads the persisted reminder record. A malformed record is logged
// and replaced with an empty state rather than failing startup.
func NewStore(kv *database.KV, clk clock.Clock) *Store {
	s := &Store{
		kv:        kv,
		clock:     clk,
		sched:     noopScheduler{},
		reminders: map[string]models.Reminder{},
	}

	var list []models.Reminder
	if _, err := kv.GetJSON(remindersKey, &list); err != nil {
		log.Printf("Corrupt reminder record, starting empty: %v", err)
		list = nil
	}
	for _, r := range list {
		if r.ID == "" {
			continue
		}
		s.reminders[r.ID] = r
	}
	return s
}

// SetScheduler wires the occurrence scheduler after construction (the
// scheduler needs the store too).
func (s *Store) SetScheduler(sched Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sched == nil {
		sched = noopScheduler{}
	}
	s.sched = sched
}

// ArmAll arms one-shot callbacks for every pending reminder. Called once at
// startup, after the scheduler is wired.
func (s *Store) ArmAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders {
		if !r.Completed {
			s.sched.Arm(r)
		}
	}
}

// Add inserts a reminder, assigning an id if missing, persists and arms
// scheduling. Returns the final id.
func (s *Store) Add(r models.Reminder) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Completed = false
	r.CompletedAt = nil

	s.reminders[r.ID] = r
	s.persistLocked()
	s.sched.Arm(r)
	return r.ID
}

// Update replaces a stored reminder. The pending one-shot for the old instant
// is cancelled first; scheduling is re-armed unless the reminder is completed.
// Returns false for an unknown id.
func (s *Store) Update(r models.Reminder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[r.ID]; !ok {
		return false
	}

	s.sched.Cancel(r.ID)
	s.reminders[r.ID] = r
	s.persistLocked()
	if !r.Completed {
		s.sched.Arm(r)
	}
	return true
}

// Complete marks a reminder done. Returns false for an unknown id or a
// reminder that is already completed, so completion happens exactly once.
func (s *Store) Complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok || r.Completed {
		return false
	}

	now := s.clock.Now()
	r.Completed = true
	r.CompletedAt = &now
	s.reminders[id] = r

	s.sched.Cancel(id)
	s.persistLocked()
	return true
}

// Remove deletes a reminder, cancelling any pending arm.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[id]; !ok {
		return false
	}

	s.sched.Cancel(id)
	delete(s.reminders, id)
	s.persistLocked()
	return true
}

func (s *Store) Get(id string) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	return r, ok
}

// All returns every reminder, sorted ascending by scheduled time.
func (s *Store) All() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortByTime(s.collectLocked(func(models.Reminder) bool { return true }))
}

// ByType returns reminders with the given category tag.
func (s *Store) ByType(category models.Category) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortByTime(s.collectLocked(func(r models.Reminder) bool {
		return r.Type == category
	}))
}

// Upcoming returns pending reminders scheduled within the window from now,
// sorted ascending by scheduled time.
func (s *Store) Upcoming(within time.Duration) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	end := now.Add(within)
	return sortByTime(s.collectLocked(func(r models.Reminder) bool {
		return !r.Completed && !r.ScheduledTime.Before(now) && !r.ScheduledTime.After(end)
	}))
}

// Pending returns every non-completed reminder; used by the sweep checker.
func (s *Store) Pending() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(r models.Reminder) bool { return !r.Completed })
}

func (s *Store) collectLocked(keep func(models.Reminder) bool) []models.Reminder {
	list := []models.Reminder{}
	for _, r := range s.reminders {
		if keep(r) {
			list = append(list, r)
		}
	}
	return list
}

func sortByTime(list []models.Reminder) []models.Reminder {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.Before(list[j].ScheduledTime)
	})
	return list
}

// persistLocked mirrors the map to the persisted record before control
// returns to the caller, so abrupt termination cannot lose a mutation.
func (s *Store) persistLocked() {
	list := make([]models.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		list = append(list, r)
	}
	sortByTime(list)
	if err := s.kv.SetJSON(remindersKey, list); err != nil {
		log.Printf("Failed to persist reminder record: %v", err)
	}
}
