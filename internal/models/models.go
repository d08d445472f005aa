package models

import (
	"regexp"
	"time"
)

// Meal identifies a meal period.
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

// MealMenu is the fixed ordered slot list owned by one meal period.
type MealMenu struct {
	ID    Meal
	Label string
	Slots []string
}

// Menus is the ordered set of meal menus for a deployment.
type Menus []MealMenu

// DefaultMenus returns the stock restaurant menus (half-hour slots).
func DefaultMenus() Menus {
	return Menus{
		{ID: MealBreakfast, Label: "Breakfast", Slots: []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30"}},
		{ID: MealLunch, Label: "Lunch", Slots: []string{"12:00", "12:30", "13:00", "13:30", "14:00", "14:30", "15:00", "15:30"}},
		{ID: MealDinner, Label: "Dinner", Slots: []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30", "20:00", "20:30", "21:00", "21:30"}},
	}
}

// ByID returns the menu for a meal.
func (m Menus) ByID(meal Meal) (MealMenu, bool) {
	for _, menu := range m {
		if menu.ID == meal {
			return menu, true
		}
	}
	return MealMenu{}, false
}

// Contains reports whether timeKey belongs to the meal's slot menu.
func (m Menus) Contains(meal Meal, timeKey string) bool {
	menu, ok := m.ByID(meal)
	if !ok {
		return false
	}
	for _, slot := range menu.Slots {
		if slot == timeKey {
			return true
		}
	}
	return false
}

// MealForTime infers the meal period owning a slot. Falls back to dinner
// when no menu claims the slot.
func (m Menus) MealForTime(timeKey string) Meal {
	for _, menu := range m {
		for _, slot := range menu.Slots {
			if slot == timeKey {
				return menu.ID
			}
		}
	}
	return MealDinner
}

// MealForHour picks the default meal tab for a wall-clock hour.
func MealForHour(hour int) Meal {
	switch {
	case hour < 11:
		return MealBreakfast
	case hour < 16:
		return MealLunch
	default:
		return MealDinner
	}
}

// Reservation is a single booking request/record. Immutable once built.
type Reservation struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Guests    int       `json:"guests"`
	Note      string    `json:"note,omitempty"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // HH:MM
	Meal      Meal      `json:"meal"`
	CreatedAt time.Time `json:"createdAt"`
}

// SlotOccupancy maps TimeKey -> accumulated guest count for one date.
type SlotOccupancy map[string]int

// Occupied returns the guest count booked into a slot (zero when unknown).
func (o SlotOccupancy) Occupied(timeKey string) int {
	if o == nil {
		return 0
	}
	return o[timeKey]
}

var (
	dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeKeyPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
	looseTime      = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// dateLayouts are tried in order when a wire value is not already canonical.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02.01.2006",
}

// NormalizeDate coerces a wire value into canonical YYYY-MM-DD form.
// Unparseable values pass through unchanged; malformed data degrades
// to an opaque string rather than failing the whole response.
func NormalizeDate(value string) string {
	if value == "" {
		return ""
	}
	if dateKeyPattern.MatchString(value) {
		return value
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return value
}

// NormalizeTime coerces a wire value into canonical HH:MM form, padding
// single-digit hours. Unparseable values pass through unchanged.
func NormalizeTime(value string) string {
	if value == "" {
		return ""
	}
	if timeKeyPattern.MatchString(value) {
		return value
	}
	if m := looseTime.FindStringSubmatch(value); m != nil {
		hh := m[1]
		if len(hh) == 1 {
			hh = "0" + hh
		}
		return hh + ":" + m[2]
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("15:04")
		}
	}
	return value
}
