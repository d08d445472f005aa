// Package session holds the guest's mutable selection state: date, meal
// period and timeslot. Every transition is a named user action; remote
// effects go through the availability store.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"turquaz/internal/availability"
	"turquaz/internal/capacity"
	"turquaz/internal/datewindow"
	"turquaz/internal/models"
)

// State is the implicit progress of the selection.
type State string

const (
	StateNoDate   State = "no_date_selected"
	StateDateOnly State = "date_selected_no_time"
	StateReady    State = "date_and_time_selected"
)

var (
	ErrUnknownMeal = errors.New("unknown meal period")
	ErrNoDate      = errors.New("no date selected")
	ErrNotInMenu   = errors.New("timeslot does not belong to the selected meal")
	ErrSlotFull    = errors.New("timeslot is full")
)

// SlotView is one slot of the selected meal rendered against the cached
// occupancy snapshot.
type SlotView struct {
	Time     string
	Occupied int
	Status   capacity.Status
	Selected bool
}

// Session is the reservation selection state machine. It persists for the
// page lifetime; it is reset, never destroyed, after a submission.
type Session struct {
	menus    models.Menus
	window   datewindow.Bounds
	capacity int
	store    *availability.Store
	logger   *zerolog.Logger

	mu      sync.Mutex
	date    string
	meal    models.Meal
	timeKey string
}

// New builds an empty session bound to the reservation window.
func New(store *availability.Store, menus models.Menus, window datewindow.Bounds, slotCapacity int, logger *zerolog.Logger) *Session {
	return &Session{
		menus:    menus,
		window:   window,
		capacity: slotCapacity,
		store:    store,
		logger:   logger,
		meal:     models.MealDinner,
	}
}

// Init assigns today as the selected date and infers the default meal from
// the wall-clock hour. The returned error is the availability fetch
// outcome and is recoverable.
func (s *Session) Init(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	s.meal = models.MealForHour(now.Hour())
	s.mu.Unlock()
	return s.SelectDate(ctx, datewindow.Key(now))
}

// SelectDate clamps the date into the reservation window, clears any
// selected time, and fetches occupancy for the date.
func (s *Session) SelectDate(ctx context.Context, date string) error {
	bounded := datewindow.Clamp(date, s.window)

	s.mu.Lock()
	s.date = bounded
	s.timeKey = ""
	s.mu.Unlock()

	_, err := s.store.Fetch(ctx, bounded)
	if errors.Is(err, availability.ErrSuperseded) {
		// A newer selection's fetch already owns the snapshot.
		return nil
	}
	return err
}

// ShiftDate moves the selected date by deltaDays. Shifts that would leave
// the window are silently rejected, not clamped.
func (s *Session) ShiftDate(ctx context.Context, deltaDays int) (bool, error) {
	s.mu.Lock()
	current := s.date
	s.mu.Unlock()
	if current == "" {
		return false, nil
	}

	next, ok := datewindow.Shift(current, deltaDays, s.window)
	if !ok {
		return false, nil
	}
	return true, s.SelectDate(ctx, next)
}

// SelectMeal switches the meal tab. The selected time is always cleared,
// even when the same label exists in the new meal's menu: a time is only
// valid within the meal it was chosen under.
func (s *Session) SelectMeal(meal models.Meal) error {
	if _, ok := s.menus.ByID(meal); !ok {
		return ErrUnknownMeal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meal = meal
	s.timeKey = ""
	return nil
}

// SelectTime picks a timeslot. The slot must belong to the selected
// meal's menu and must not be full; the session re-validates against the
// cached snapshot even though the UI never offers full slots, as defense
// against stale renders.
func (s *Session) SelectTime(timeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.date == "" {
		return ErrNoDate
	}
	if !s.menus.Contains(s.meal, timeKey) {
		return ErrNotInMenu
	}

	occupied := s.store.Cached(s.date).Occupied(timeKey)
	if capacity.StatusOf(occupied, s.capacity) == capacity.StatusFull {
		return ErrSlotFull
	}

	s.timeKey = timeKey
	return nil
}

// State derives the selection progress.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.date == "":
		return StateNoDate
	case s.timeKey == "":
		return StateDateOnly
	default:
		return StateReady
	}
}

// Selection returns the current date, meal and time.
func (s *Session) Selection() (date string, meal models.Meal, timeKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date, s.meal, s.timeKey
}

// Window returns the reservation window the session clamps into.
func (s *Session) Window() datewindow.Bounds {
	return s.window
}

// SlotViews renders the selected meal's slot menu against the cached
// occupancy for the selected date.
func (s *Session) SlotViews() []SlotView {
	s.mu.Lock()
	date, meal, selected := s.date, s.meal, s.timeKey
	s.mu.Unlock()

	if date == "" {
		return nil
	}
	menu, ok := s.menus.ByID(meal)
	if !ok {
		return nil
	}

	occ := s.store.Cached(date)
	views := make([]SlotView, 0, len(menu.Slots))
	for _, slot := range menu.Slots {
		occupied := occ.Occupied(slot)
		views = append(views, SlotView{
			Time:     slot,
			Occupied: occupied,
			Status:   capacity.StatusOf(occupied, s.capacity),
			Selected: slot == selected,
		})
	}
	return views
}
