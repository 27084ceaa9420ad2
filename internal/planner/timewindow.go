package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeRange is a daily window as offsets from midnight.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

var (
	rangeSeparator = regexp.MustCompile(`\s*(?:-|–|—|~|\bto\b|đến)\s*`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2})(?:\s*[:hg]\s*(\d{2})?)?$`)
)

// ParseTimeRange reads "09:00 - 21:00" style windows. "9h - 21h30" also works.
func ParseTimeRange(s string) (TimeRange, error) {
	parts := rangeSeparator.Split(strings.TrimSpace(strings.ToLower(s)), 2)
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("invalid time range %q", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeRange{}, err
	}
	if start == end {
		return TimeRange{}, fmt.Errorf("empty time range %q", s)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseClock(s string) (time.Duration, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	minutes := 0
	if m[2] != "" {
		minutes, _ = strconv.Atoi(m[2])
	}
	if h > 24 || minutes > 59 || (h == 24 && minutes > 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// StartOn returns the window start on the given calendar day.
func (r TimeRange) StartOn(day time.Time) time.Time {
	return midnight(day).Add(r.Start)
}

// EndOn returns the window end for a window starting on day. Windows that end
// at or before their start run past midnight.
func (r TimeRange) EndOn(day time.Time) time.Time {
	end := midnight(day).Add(r.End)
	if r.End <= r.Start {
		end = end.Add(24 * time.Hour)
	}
	return end
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// planDay resolves the "date" preference against today.
func planDay(pref string, today time.Time) time.Time {
	p := Fold(strings.TrimSpace(pref))
	switch p {
	case "", "today", "hom nay", "nay":
		return today
	case "tomorrow", "ngay mai", "mai":
		return today.AddDate(0, 0, 1)
	case "day after tomorrow", "ngay kia", "mot":
		return today.AddDate(0, 0, 2)
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006"} {
		if d, err := time.ParseInLocation(layout, p, today.Location()); err == nil {
			if d.Before(today) {
				return today
			}
			return d
		}
	}
	return today
}

// initialCursor picks when the first step starts: the window start on the plan
// day, or now (rounded up to five minutes) when planning today after the
// window opened. Late in the evening, or once today's window has closed, the
// plan moves to the next morning.
func initialCursor(now time.Time, prefs Preferences, defaultRange string, lateHour int) time.Time {
	r, err := ParseTimeRange(prefs.TimeRange)
	if err != nil {
		if r, err = ParseTimeRange(defaultRange); err != nil {
			r = TimeRange{Start: 9 * time.Hour, End: 21 * time.Hour}
		}
	}

	today := midnight(now)
	day := planDay(prefs.Date, today)
	if day.After(today) {
		return r.StartOn(day)
	}

	start := r.StartOn(today)
	if now.After(start) {
		start = roundUp(now, 5*time.Minute)
	}
	if now.Hour() >= lateHour || !start.Before(r.EndOn(today)) {
		return r.StartOn(today.AddDate(0, 0, 1))
	}
	return start
}

func roundUp(t time.Time, step time.Duration) time.Time {
	r := t.Truncate(step)
	if r.Before(t) {
		r = r.Add(step)
	}
	return r
}
