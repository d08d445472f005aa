// Package datewindow computes and enforces bookable date ranges.
//
// All dates are canonical YYYY-MM-DD keys, so lexicographic comparison is
// chronological comparison. Calendar arithmetic is anchored at a
// timezone-naive midnight (UTC) so day shifts are unaffected by DST
// transitions in the user's locale.
package datewindow

import "time"

const keyLayout = "2006-01-02"

// AdminRadiusDays bounds staff browsing to ±60 days around today.
const AdminRadiusDays = 60

// Bounds is an inclusive date window.
type Bounds struct {
	Min string
	Max string
}

// Contains reports whether the date lies within the window.
func (b Bounds) Contains(date string) bool {
	return date >= b.Min && date <= b.Max
}

// Key formats a wall-clock instant as the calendar date of its location.
func Key(t time.Time) string {
	return t.Format(keyLayout)
}

// Compute derives a window of [today-radiusBack, today+radiusForward]
// around now's calendar day.
func Compute(now time.Time, radiusBack, radiusForward int) Bounds {
	today := Key(now)
	return Bounds{
		Min: addDays(today, -radiusBack),
		Max: addDays(today, radiusForward),
	}
}

// ReservationWindow is the guest-facing window: today through
// today+openDays-1 inclusive.
func ReservationWindow(now time.Time, openDays int) Bounds {
	if openDays < 1 {
		openDays = 1
	}
	return Compute(now, 0, openDays-1)
}

// AdminWindow is the staff browsing window: ±AdminRadiusDays around today.
func AdminWindow(now time.Time) Bounds {
	return Compute(now, AdminRadiusDays, AdminRadiusDays)
}

// Clamp saturates a date into the window: dates below Min return Min,
// dates above Max return Max, in-window dates pass through.
func Clamp(date string, b Bounds) string {
	if date < b.Min {
		return b.Min
	}
	if date > b.Max {
		return b.Max
	}
	return date
}

// Shift moves a date by deltaDays. Unlike Clamp it rejects rather than
// saturates: a result strictly outside the window returns ok=false so
// navigation is a silent no-op instead of a surprising jump.
func Shift(date string, deltaDays int, b Bounds) (string, bool) {
	anchor, err := time.Parse(keyLayout, date)
	if err != nil {
		return "", false
	}
	next := anchor.AddDate(0, 0, deltaDays).Format(keyLayout)
	if !b.Contains(next) {
		return "", false
	}
	return next, true
}

func addDays(key string, n int) string {
	anchor, err := time.Parse(keyLayout, key)
	if err != nil {
		return key
	}
	return anchor.AddDate(0, 0, n).Format(keyLayout)
}
