package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"friendus/internal/planner"
)

// CheckConflicts evaluates every constraint against every activity. Constraints
// with unparseable values are ignored. Activities without conflicts are absent
// from the result.
func CheckConflicts(activities []Activity, constraints []Constraint) map[int64][]Conflict {
	out := map[int64][]Conflict{}
	for _, a := range activities {
		var found []Conflict
		for _, c := range constraints {
			level := LevelWarning
			if c.Intensity == IntensityRough {
				level = LevelCritical
			}
			switch c.Type {
			case ConstraintPrice:
				limit, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
				if err != nil {
					continue
				}
				if a.Price > limit {
					found = append(found, Conflict{
						Message: fmt.Sprintf("Over budget (%s)", strconv.FormatFloat(limit, 'f', -1, 64)),
						Level:   level,
					})
				}
			case ConstraintTime:
				limit, ok := clockOf(c.Value)
				start, hasStart := clockOf(a.StartTime)
				if ok && hasStart && start < limit {
					found = append(found, Conflict{
						Message: fmt.Sprintf("Too early (before %s)", limit),
						Level:   level,
					})
				}
			}
		}
		if len(found) > 0 {
			out[a.ID] = found
		}
	}
	return out
}

// clockOf extracts a zero-padded "15:04" from a full timestamp or a clock string.
func clockOf(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{planner.DateTimeLayout, "2006-01-02 15:04", planner.ClockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(planner.ClockLayout), true
		}
	}
	if r, err := planner.ParseTimeRange(s + " - 23:59"); err == nil {
		t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(r.Start)
		return t.Format(planner.ClockLayout), true
	}
	return "", false
}
