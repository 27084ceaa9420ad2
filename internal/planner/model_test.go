package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendus/internal/geo"
)

func TestNewTimeSlot(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, testZone)

	slot, err := NewTimeSlot(start, 90)
	require.NoError(t, err)
	assert.Equal(t, start.Add(90*time.Minute), slot.End())

	_, err = NewTimeSlot(start, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = NewTimeSlot(start, -5)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestSearchState_ExtendLeavesParentUntouched(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, testZone)
	mk := func(id string, at time.Time, score float64) PlanStep {
		return PlanStep{
			Place: Place{ID: id, Location: geo.Point{Lat: 10.78, Lon: 106.70}},
			Slot:  TimeSlot{Start: at, DurationMinutes: 60},
			Score: ScoreBreakdown{Total: score},
		}
	}

	root := NewSearchState(hcmc, start)
	one := root.Extend(mk("a", start, 1))
	left := one.Extend(mk("b", start.Add(time.Hour), 0.5))
	right := one.Extend(mk("c", start.Add(time.Hour), 0.25))

	assert.Zero(t, root.Depth())
	assert.False(t, root.Visited("a"))
	assert.Equal(t, hcmc, root.Location())

	assert.Equal(t, 1, one.Depth())
	assert.False(t, one.Visited("b"))
	assert.False(t, one.Visited("c"))
	assert.Equal(t, start.Add(time.Hour), one.Cursor())

	assert.Equal(t, "b", left.Steps()[1].Place.ID)
	assert.Equal(t, "c", right.Steps()[1].Place.ID)
	assert.True(t, left.Visited("a"))
	assert.False(t, left.Visited("c"))
	assert.InDelta(t, 1.5, left.Score(), 1e-12)
	assert.InDelta(t, 1.25, right.Score(), 1e-12)

	steps := left.Steps()
	steps[0].Place.ID = "mutated"
	assert.Equal(t, "a", left.Steps()[0].Place.ID)
}

func TestSearchState_CursorNeverMovesBackwards(t *testing.T) {
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, testZone)
	s := NewSearchState(hcmc, start).Extend(PlanStep{
		Place: Place{ID: "early"},
		Slot:  TimeSlot{Start: start.Add(-3 * time.Hour), DurationMinutes: 30},
	})
	assert.Equal(t, start, s.Cursor())
}

func TestIntent_Text(t *testing.T) {
	assert.Equal(t, "Ăn trưa", Intent{SearchQuery: "Cơm tấm", Description: "Ăn trưa"}.Text())
	assert.Equal(t, "Cơm tấm", Intent{SearchQuery: "Cơm tấm"}.Text())
}
