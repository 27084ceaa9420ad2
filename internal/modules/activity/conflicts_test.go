package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckConflicts(t *testing.T) {
	acts := []Activity{
		{ID: 1, Name: "Buffet Hải sản", Price: 650000, StartTime: "2026-10-18 07:30:00"},
		{ID: 2, Name: "Cà phê", Price: 45000, StartTime: "2026-10-18 09:00:00"},
		{ID: 3, Name: "Không giờ", Price: 0},
	}
	cons := []Constraint{
		{Type: ConstraintPrice, Intensity: IntensityRough, Value: "500000"},
		{Type: ConstraintTime, Intensity: IntensitySoft, Value: "08:00"},
		{Type: ConstraintPrice, Intensity: IntensitySoft, Value: "rẻ thôi"},
	}

	got := CheckConflicts(acts, cons)

	assert.Equal(t, map[int64][]Conflict{
		1: {
			{Message: "Over budget (500000)", Level: LevelCritical},
			{Message: "Too early (before 08:00)", Level: LevelWarning},
		},
	}, got)
}

func TestCheckConflicts_ClockFormats(t *testing.T) {
	tests := []struct {
		start string
		limit string
		early bool
	}{
		{"07:59", "08:00", true},
		{"8:00", "08:00", false},
		{"2026-10-18 06:15", "6h30", true},
		{"2026-10-18 10:00:00", "9h", false},
		{"", "08:00", false},
		{"whenever", "08:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.start+" vs "+tt.limit, func(t *testing.T) {
			got := CheckConflicts(
				[]Activity{{ID: 7, StartTime: tt.start}},
				[]Constraint{{Type: ConstraintTime, Intensity: IntensityRough, Value: tt.limit}},
			)
			assert.Equal(t, tt.early, len(got[7]) == 1)
		})
	}
}

func TestCheckConflicts_NoConstraints(t *testing.T) {
	assert.Empty(t, CheckConflicts([]Activity{{ID: 1, Price: 1e9}}, nil))
}
