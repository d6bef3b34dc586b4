package remind

import (
	"testing"
	"time"

	"tempo/internal/clock"
	"tempo/internal/database"
	"tempo/internal/models"
	"tempo/internal/notify"
	"tempo/internal/tone"
)

type fixture struct {
	clock     *clock.Manual
	kv        *database.KV
	store     *Store
	scheduler *OccurrenceScheduler
	sweep     *SweepChecker
	alerts    <-chan notify.Alert
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()

	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	kv := database.NewKV(db)
	clk := clock.NewManual(start)

	hub := notify.NewHub()
	alerts, cancel := hub.Subscribe(64)
	t.Cleanup(cancel)

	dispatcher := notify.NewDispatcher(notify.NewPermissionStore(kv), nil, hub, tone.NewSynthesizer())

	store := NewStore(kv, clk)
	guard := NewDedupGuard(kv, 30*24*time.Hour)
	scheduler := NewOccurrenceScheduler(clk, store, dispatcher, guard)
	store.SetScheduler(scheduler)
	sweep := NewSweepChecker(clk, store, scheduler, 30*time.Second, 30*time.Second)

	return &fixture{
		clock:     clk,
		kv:        kv,
		store:     store,
		scheduler: scheduler,
		sweep:     sweep,
		alerts:    alerts,
	}
}

func (f *fixture) drainAlerts() []notify.Alert {
	alerts := []notify.Alert{}
	for {
		select {
		case a := <-f.alerts:
			alerts = append(alerts, a)
		default:
			return alerts
		}
	}
}

func testReminder(title string, at time.Time) models.Reminder {
	return models.CreateReminderRequest{
		Title:         title,
		ScheduledTime: at,
		Type:          models.CategoryTask,
	}.ToReminder()
}
