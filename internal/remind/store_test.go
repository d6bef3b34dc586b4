package remind

import (
	"testing"
	"time"

	"tempo/internal/clock"
	"tempo/internal/database"
	"tempo/internal/models"
)

var testStart = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

func TestAddAssignsIDAndDefaults(t *testing.T) {
	f := newFixture(t, testStart)

	id := f.store.Add(testReminder("Vitamin D", testStart.Add(time.Hour)))
	if id == "" {
		t.Fatal("expected an assigned id")
	}

	r, ok := f.store.Get(id)
	if !ok {
		t.Fatal("expected reminder to be stored")
	}
	if !r.SoundEnabled || !r.NotificationEnabled || !r.VibrationEnabled {
		t.Fatal("expected delivery flags to default on")
	}
	if r.Volume != 100 {
		t.Fatalf("expected default volume 100, got %d", r.Volume)
	}
	if r.Completed {
		t.Fatal("new reminder must not be completed")
	}
}

func TestAddKeepsCallerValues(t *testing.T) {
	f := newFixture(t, testStart)

	off := false
	vol := 25
	r := models.CreateReminderRequest{
		ID:            "custom-id",
		Title:         "Quiet",
		ScheduledTime: testStart.Add(time.Hour),
		SoundEnabled:  &off,
		Volume:        &vol,
	}.ToReminder()

	id := f.store.Add(r)
	if id != "custom-id" {
		t.Fatalf("expected caller id to win, got %s", id)
	}
	stored, _ := f.store.Get(id)
	if stored.SoundEnabled {
		t.Fatal("explicit soundEnabled=false was overwritten")
	}
	if stored.Volume != 25 {
		t.Fatalf("explicit volume was overwritten, got %d", stored.Volume)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t, testStart)
	id := f.store.Add(testReminder("Once", testStart.Add(time.Hour)))

	if !f.store.Complete(id) {
		t.Fatal("first complete should succeed")
	}
	if f.store.Complete(id) {
		t.Fatal("second complete should report failure")
	}

	r, _ := f.store.Get(id)
	if !r.Completed || r.CompletedAt == nil {
		t.Fatal("expected completed flag and timestamp")
	}
}

func TestUpdateUnknownID(t *testing.T) {
	f := newFixture(t, testStart)

	r := testReminder("Ghost", testStart.Add(time.Hour))
	r.ID = "missing"
	if f.store.Update(r) {
		t.Fatal("update of unknown id should fail")
	}
	if f.store.Remove("missing") {
		t.Fatal("remove of unknown id should fail")
	}
	if f.store.Complete("missing") {
		t.Fatal("complete of unknown id should fail")
	}
}

func TestUpcomingWindowAndOrder(t *testing.T) {
	f := newFixture(t, testStart)

	f.store.Add(testReminder("soon", testStart.Add(10*time.Minute)))
	f.store.Add(testReminder("sooner", testStart.Add(5*time.Minute)))
	f.store.Add(testReminder("too late", testStart.Add(3*time.Hour)))
	donePast := f.store.Add(testReminder("done", testStart.Add(15*time.Minute)))
	f.store.Complete(donePast)

	got := f.store.Upcoming(time.Hour)
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming reminders, got %d", len(got))
	}
	if got[0].Title != "sooner" || got[1].Title != "soon" {
		t.Fatalf("expected ascending order, got %q then %q", got[0].Title, got[1].Title)
	}
}

func TestByType(t *testing.T) {
	f := newFixture(t, testStart)

	f.store.Add(testReminder("task", testStart.Add(time.Minute)))
	med := models.CreateReminderRequest{
		Title:         "pill",
		ScheduledTime: testStart.Add(time.Minute),
		Type:          models.CategoryMedication,
	}.ToReminder()
	f.store.Add(med)

	got := f.store.ByType(models.CategoryMedication)
	if len(got) != 1 || got[0].Title != "pill" {
		t.Fatalf("unexpected ByType result: %+v", got)
	}
}

func TestStoreReloadsPersistedRecord(t *testing.T) {
	f := newFixture(t, testStart)

	id := f.store.Add(testReminder("durable", testStart.Add(time.Hour)))

	reloaded := NewStore(f.kv, f.clock)
	r, ok := reloaded.Get(id)
	if !ok {
		t.Fatal("expected reminder to survive reload")
	}
	if !r.ScheduledTime.Equal(testStart.Add(time.Hour)) {
		t.Fatalf("scheduled time corrupted by reload: %v", r.ScheduledTime)
	}
}

func TestStoreSurvivesCorruptRecord(t *testing.T) {
	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	kv := database.NewKV(db)
	if err := kv.Set("reminders", "{not json"); err != nil {
		t.Fatal(err)
	}

	store := NewStore(kv, clock.NewManual(testStart))
	if len(store.All()) != 0 {
		t.Fatal("corrupt record should yield an empty store")
	}

	// The store must still accept writes afterwards.
	if id := store.Add(testReminder("fresh", testStart.Add(time.Hour))); id == "" {
		t.Fatal("expected add to work after corrupt load")
	}
}
