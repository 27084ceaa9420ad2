package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in        string
		start     time.Duration
		end       time.Duration
		wantError bool
	}{
		{in: "09:00 - 21:00", start: 9 * time.Hour, end: 21 * time.Hour},
		{in: "9h-21h30", start: 9 * time.Hour, end: 21*time.Hour + 30*time.Minute},
		{in: "18:00 – 02:00", start: 18 * time.Hour, end: 2 * time.Hour},
		{in: "8 to 17", start: 8 * time.Hour, end: 17 * time.Hour},
		{in: "09:00", wantError: true},
		{in: "25:00 - 26:00", wantError: true},
		{in: "10:00 - 10:00", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeRange(tt.in)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, got.Start)
			assert.Equal(t, tt.end, got.End)
		})
	}
}

func TestTimeRange_EndOnCrossesMidnight(t *testing.T) {
	day := time.Date(2026, 10, 18, 15, 0, 0, 0, testZone)
	r := TimeRange{Start: 18 * time.Hour, End: 2 * time.Hour}
	assert.Equal(t, time.Date(2026, 10, 19, 2, 0, 0, 0, testZone), r.EndOn(day))
	assert.Equal(t, time.Date(2026, 10, 18, 18, 0, 0, 0, testZone), r.StartOn(day))
}

func TestInitialCursor(t *testing.T) {
	at := func(day, h, m int) time.Time { return time.Date(2026, 10, day, h, m, 0, 0, testZone) }
	tests := []struct {
		name  string
		now   time.Time
		prefs Preferences
		want  time.Time
	}{
		{name: "early morning waits for window", now: at(18, 7, 30), want: at(18, 9, 0)},
		{name: "mid-morning starts now rounded", now: at(18, 10, 12), want: at(18, 10, 15)},
		{name: "exact five minutes kept", now: at(18, 10, 15), want: at(18, 10, 15)},
		{name: "late evening rolls to next day", now: at(18, 21, 30), want: at(19, 9, 0)},
		{name: "custom range", now: at(18, 6, 0), prefs: Preferences{TimeRange: "08:00 - 12:00"}, want: at(18, 8, 0)},
		{name: "custom range already closed", now: at(18, 13, 0), prefs: Preferences{TimeRange: "08:00 - 12:00"}, want: at(19, 8, 0)},
		{name: "tomorrow", now: at(18, 10, 0), prefs: Preferences{Date: "ngày mai"}, want: at(19, 9, 0)},
		{name: "explicit date", now: at(18, 10, 0), prefs: Preferences{Date: "2026-10-25"}, want: at(25, 9, 0)},
		{name: "past date treated as today", now: at(18, 7, 0), prefs: Preferences{Date: "2026-10-01"}, want: at(18, 9, 0)},
		{name: "garbage range uses default", now: at(18, 7, 0), prefs: Preferences{TimeRange: "whenever"}, want: at(18, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := initialCursor(tt.now, tt.prefs, "09:00 - 21:00", 21)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}
