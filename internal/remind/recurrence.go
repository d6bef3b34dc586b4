package remind

import (
	"strings"
	"time"

	"tempo/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NextOccurrence computes the next firing instant for a recurring reminder,
// given the previous scheduled instant. Returns false for a pattern it does
// not recognize; the caller must treat that as "do not reschedule".
func NextOccurrence(prev time.Time, pattern string, days []string, now time.Time) (time.Time, bool) {
	switch pattern {
	case models.PatternDaily:
		return prev.AddDate(0, 0, 1), true
	case models.PatternWeekly:
		if len(days) > 0 {
			return nextFromWeekdaySet(prev, days, now)
		}
		return prev.AddDate(0, 0, 7), true
	case models.PatternMonthly:
		return addMonthClamped(prev), true
	}

	if names := splitWeekdayList(pattern); names != nil {
		return nextFromWeekdayList(prev, names, now)
	}

	return time.Time{}, false
}

// nextFromWeekdaySet finds, among the listed weekdays, the earliest future
// instant carrying the previous occurrence's time-of-day. A candidate landing
// today with an already-passed time-of-day rolls a full week; the
// earliest-wins pick across candidates is what makes a Mon/Wed/Fri reminder
// skip to Wednesday rather than next Monday.
func nextFromWeekdaySet(prev time.Time, days []string, now time.Time) (time.Time, bool) {
	var best time.Time
	found := false

	for _, name := range days {
		target, ok := weekdayNames[normalizeDay(name)]
		if !ok {
			continue
		}

		delta := (int(target) - int(now.Weekday()) + 7) % 7
		candidate := atTimeOfDay(now.AddDate(0, 0, delta), prev)
		if delta == 0 && !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}

		if !found || candidate.Before(best) {
			best = candidate
			found = true
		}
	}

	if !found {
		return time.Time{}, false
	}
	return best, true
}

// nextFromWeekdayList handles the legacy comma-joined pattern form: scan
// forward day-by-day from today, reusing the previous instant's time-of-day,
// and take the first listed weekday that is still in the future.
func nextFromWeekdayList(prev time.Time, names []string, now time.Time) (time.Time, bool) {
	wanted := map[time.Weekday]bool{}
	for _, name := range names {
		if wd, ok := weekdayNames[name]; ok {
			wanted[wd] = true
		}
	}
	if len(wanted) == 0 {
		return time.Time{}, false
	}

	for i := 0; i <= 7; i++ {
		candidate := atTimeOfDay(now.AddDate(0, 0, i), prev)
		if wanted[candidate.Weekday()] && candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// addMonthClamped advances one calendar month, clamping the day-of-month to
// the last day of the target month (Jan 31 -> Feb 28/29) instead of letting
// the date roll over into March.
func addMonthClamped(prev time.Time) time.Time {
	year, month, day := prev.Date()
	hour, min, sec := prev.Clock()

	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, prev.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+1, day, hour, min, sec, prev.Nanosecond(), prev.Location())
}

func splitWeekdayList(pattern string) []string {
	parts := strings.Split(pattern, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := normalizeDay(part)
		if _, ok := weekdayNames[name]; !ok {
			return nil
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

func normalizeDay(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func atTimeOfDay(date, source time.Time) time.Time {
	hour, min, sec := source.Clock()
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, source.Nanosecond(), source.Location())
}
