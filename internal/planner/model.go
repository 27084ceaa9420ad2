// README: Planner data model: places, time slots, plan steps and the immutable beam-search state.
package planner

import (
	"errors"
	"time"

	"friendus/internal/geo"
	"friendus/internal/weather"
)

// Category values produced by the resolver. Providers may supply others.
const (
	CategoryGeneral       = "general"
	CategoryFood          = "food"
	CategoryCafe          = "cafe"
	CategoryMuseum        = "museum"
	CategoryShopping      = "shopping"
	CategoryPark          = "park"
	CategoryNightlife     = "nightlife"
	CategoryEntertainment = "entertainment"
)

// Place is a resolved (or fallback) point of interest.
type Place struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Location geo.Point `json:"location"`
	Indoor   bool      `json:"indoor"`
	Category string    `json:"category"`
	// Rating is on a 0..5 scale when the provider knows it.
	Rating *float64 `json:"rating,omitempty"`
	// Popularity is normalized to 0..1 when the provider knows it.
	Popularity *float64 `json:"popularity,omitempty"`
	Unresolved bool     `json:"unresolved,omitempty"`
}

// TimeSlot is a scheduled visit window.
type TimeSlot struct {
	Start           time.Time
	DurationMinutes int
}

var ErrInvalidDuration = errors.New("duration must be positive")

func NewTimeSlot(start time.Time, minutes int) (TimeSlot, error) {
	if minutes <= 0 {
		return TimeSlot{}, ErrInvalidDuration
	}
	return TimeSlot{Start: start, DurationMinutes: minutes}, nil
}

func (s TimeSlot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Travel is the move from the previous stop to this one.
type Travel struct {
	Minutes int
	Km      float64
}

// ScoreBreakdown keeps the weighted total and the raw per-component values.
type ScoreBreakdown struct {
	Total      float64            `json:"total"`
	Components map[string]float64 `json:"components"`
}

// Intent is one sub-request extracted from the user's message.
type Intent struct {
	SearchQuery string `json:"search_query"`
	Description string `json:"description"`
	// DurationMinutes of zero lets the planner apply its default.
	DurationMinutes int `json:"duration_minutes"`
}

// Text returns what the step satisfies, for display.
func (i Intent) Text() string {
	if i.Description != "" {
		return i.Description
	}
	return i.SearchQuery
}

// PlanStep is one scheduled stop.
type PlanStep struct {
	Intent Intent
	Place  Place
	Slot   TimeSlot
	// Travel is nil for the first step.
	Travel *Travel
	Score  ScoreBreakdown
}

// Preferences are the free-form user hints carried with a request.
type Preferences struct {
	Date       string   `json:"date"`
	TimeRange  string   `json:"time_range"`
	Budget     string   `json:"budget"`
	Companions string   `json:"companions"`
	Location   string   `json:"location"`
	Interests  []string `json:"interests"`
}

// UserContext is everything the planner knows about the requester.
type UserContext struct {
	Anchor      geo.Point        `json:"anchor"`
	Preferences Preferences      `json:"preferences"`
	Weather     []weather.Sample `json:"weather,omitempty"`
}

// SearchState is an immutable partial plan. Extending a state returns a new
// value and never touches the receiver's slices or visited set.
type SearchState struct {
	steps    []PlanStep
	score    float64
	location geo.Point
	cursor   time.Time
	visited  map[string]struct{}
}

// NewSearchState returns the empty state at anchor with the time cursor at start.
func NewSearchState(anchor geo.Point, start time.Time) SearchState {
	return SearchState{location: anchor, cursor: start, visited: map[string]struct{}{}}
}

// Extend appends step and returns the new state. The cursor moves to the end
// of the step's slot and the location to the step's place.
func (s SearchState) Extend(step PlanStep) SearchState {
	steps := make([]PlanStep, len(s.steps), len(s.steps)+1)
	copy(steps, s.steps)
	steps = append(steps, step)

	visited := make(map[string]struct{}, len(s.visited)+1)
	for id := range s.visited {
		visited[id] = struct{}{}
	}
	visited[step.Place.ID] = struct{}{}

	cursor := step.Slot.End()
	if cursor.Before(s.cursor) {
		cursor = s.cursor
	}
	return SearchState{
		steps:    steps,
		score:    s.score + step.Score.Total,
		location: step.Place.Location,
		cursor:   cursor,
		visited:  visited,
	}
}

func (s SearchState) Steps() []PlanStep {
	out := make([]PlanStep, len(s.steps))
	copy(out, s.steps)
	return out
}

func (s SearchState) Depth() int { return len(s.steps) }

func (s SearchState) Score() float64 { return s.score }

func (s SearchState) Location() geo.Point { return s.location }

func (s SearchState) Cursor() time.Time { return s.cursor }

func (s SearchState) Visited(id string) bool {
	_, ok := s.visited[id]
	return ok
}
