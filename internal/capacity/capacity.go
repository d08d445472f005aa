// Package capacity derives slot display status and the accept/reject rule
// from occupied guest counts against a fixed per-deployment slot capacity.
package capacity

// Status is the display state of a slot.
type Status string

const (
	StatusOpen    Status = "open"
	StatusLimited Status = "limited"
	StatusFull    Status = "full"
)

// DefaultSlotCapacity is the stock maximum guest count per slot.
const DefaultSlotCapacity = 10

// LimitedThreshold is the occupied count at which a slot turns limited:
// ceil(capacity * 0.7).
func LimitedThreshold(capacity int) int {
	return (capacity*7 + 9) / 10
}

// StatusOf maps an occupied count to a display status.
func StatusOf(occupied, capacity int) Status {
	switch {
	case occupied >= capacity:
		return StatusFull
	case occupied >= LimitedThreshold(capacity):
		return StatusLimited
	default:
		return StatusOpen
	}
}

// CanAccept is the authoritative accept rule: the requested party still
// fits into the slot. Used both for disabling slots in the UI and for
// gating submission.
func CanAccept(occupied, requestedGuests, capacity int) bool {
	return occupied+requestedGuests <= capacity
}
