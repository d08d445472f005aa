package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	t.Run("Canonical", func(t *testing.T) {
		assert.Equal(t, "2025-03-09", NormalizeDate("2025-03-09"))
	})

	t.Run("Timestamp", func(t *testing.T) {
		assert.Equal(t, "2025-03-09", NormalizeDate("2025-03-09T00:00:00Z"))
		assert.Equal(t, "2025-03-09", NormalizeDate("2025-03-09 18:30:00"))
	})

	t.Run("Opaque", func(t *testing.T) {
		assert.Equal(t, "next tuesday", NormalizeDate("next tuesday"))
		assert.Equal(t, "", NormalizeDate(""))
	})
}

func TestNormalizeTime(t *testing.T) {
	t.Run("Canonical", func(t *testing.T) {
		assert.Equal(t, "19:30", NormalizeTime("19:30"))
	})

	t.Run("Padding", func(t *testing.T) {
		assert.Equal(t, "08:00", NormalizeTime("8:00"))
	})

	t.Run("Embedded", func(t *testing.T) {
		assert.Equal(t, "18:30", NormalizeTime("2025-03-09T18:30:00Z"))
	})

	t.Run("Opaque", func(t *testing.T) {
		assert.Equal(t, "noon", NormalizeTime("noon"))
	})
}

func TestMenus(t *testing.T) {
	menus := DefaultMenus()

	t.Run("ByID", func(t *testing.T) {
		lunch, ok := menus.ByID(MealLunch)
		assert.True(t, ok)
		assert.Equal(t, "Lunch", lunch.Label)
		assert.Equal(t, "12:00", lunch.Slots[0])

		_, ok = menus.ByID(Meal("brunch"))
		assert.False(t, ok)
	})

	t.Run("Contains", func(t *testing.T) {
		assert.True(t, menus.Contains(MealDinner, "19:30"))
		assert.False(t, menus.Contains(MealBreakfast, "19:30"))
	})

	t.Run("MealForTime", func(t *testing.T) {
		assert.Equal(t, MealBreakfast, menus.MealForTime("08:30"))
		assert.Equal(t, MealLunch, menus.MealForTime("14:00"))
		// Unknown slots default to dinner, matching the submission payload rule.
		assert.Equal(t, MealDinner, menus.MealForTime("23:45"))
	})
}

func TestMealForHour(t *testing.T) {
	assert.Equal(t, MealBreakfast, MealForHour(7))
	assert.Equal(t, MealBreakfast, MealForHour(10))
	assert.Equal(t, MealLunch, MealForHour(11))
	assert.Equal(t, MealLunch, MealForHour(15))
	assert.Equal(t, MealDinner, MealForHour(16))
	assert.Equal(t, MealDinner, MealForHour(23))
}

func TestSlotOccupancy(t *testing.T) {
	var nilOcc SlotOccupancy
	assert.Equal(t, 0, nilOcc.Occupied("19:00"))

	occ := SlotOccupancy{"19:00": 8}
	assert.Equal(t, 8, occ.Occupied("19:00"))
	assert.Equal(t, 0, occ.Occupied("20:00"))
}
