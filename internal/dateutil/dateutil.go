// Package dateutil holds the day-granularity date helpers used by overdue
// detection, lead-time statistics and notification rendering.
package dateutil

import (
	"math"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used in notifications and day keys.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CivilDate keeps the calendar date carried by t (as stored, without zone
// conversion) and places it at midnight in loc. Postgres DATE values decode
// as UTC midnight, so converting them with In(loc) would shift the day west
// of UTC.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsOverdue reports whether deadline falls on a day strictly before now's day.
func IsOverdue(deadline, now time.Time, loc *time.Location) bool {
	return StartOfDay(deadline, loc).Before(StartOfDay(now, loc))
}

// FormatDate renders t as YYYY-MM-DD using t's own calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayKey returns the YYYY-MM-DD string of now's day in loc.
func DayKey(now time.Time, loc *time.Location) string {
	return StartOfDay(now, loc).Format(DateLayout)
}

// DaysBetween returns the absolute distance between a and b rounded to whole days.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Round(diff.Hours() / 24))
}
