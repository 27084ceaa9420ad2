package planner

import (
	"time"
)

// Layouts used in plan output. DateTimeLayout matches what the activity store persists.
const (
	ClockLayout    = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// PlanResult is the serializable itinerary handed back to callers.
type PlanResult struct {
	Steps      []StepRecord `json:"steps"`
	TotalScore float64      `json:"total_score"`
	Timestamp  string       `json:"timestamp"`
}

type StepRecord struct {
	StepNumber    int                `json:"step_number"`
	Intent        string             `json:"intent"`
	SearchQuery   string             `json:"search_query"`
	Place         PlaceRecord        `json:"place"`
	Time          TimeRecord         `json:"time"`
	StartFull     string             `json:"start_full"`
	EndFull       string             `json:"end_full"`
	TravelMinutes int                `json:"travel_minutes"`
	TravelKm      float64            `json:"travel_km"`
	Score         map[string]float64 `json:"score"`
}

type PlaceRecord struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Category   string  `json:"category"`
	Indoor     bool    `json:"indoor"`
	Unresolved bool    `json:"unresolved"`
}

type TimeRecord struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Format converts a search state into a PlanResult. It is pure: now is only
// used for the timestamp.
func Format(state SearchState, now time.Time) PlanResult {
	steps := state.Steps()
	out := PlanResult{
		Steps:      make([]StepRecord, 0, len(steps)),
		TotalScore: state.Score(),
		Timestamp:  now.Format(time.RFC3339),
	}
	for i, s := range steps {
		rec := StepRecord{
			StepNumber:  i + 1,
			Intent:      s.Intent.Text(),
			SearchQuery: s.Intent.SearchQuery,
			Place: PlaceRecord{
				ID:         s.Place.ID,
				Name:       s.Place.Name,
				Address:    s.Place.Address,
				Lat:        s.Place.Location.Lat,
				Lon:        s.Place.Location.Lon,
				Category:   s.Place.Category,
				Indoor:     s.Place.Indoor,
				Unresolved: s.Place.Unresolved,
			},
			Time: TimeRecord{
				Start: s.Slot.Start.Format(ClockLayout),
				End:   s.Slot.End().Format(ClockLayout),
			},
			StartFull: s.Slot.Start.Format(DateTimeLayout),
			EndFull:   s.Slot.End().Format(DateTimeLayout),
			Score:     copyComponents(s.Score.Components),
		}
		if s.Travel != nil {
			rec.TravelMinutes = s.Travel.Minutes
			rec.TravelKm = s.Travel.Km
		}
		out.Steps = append(out.Steps, rec)
	}
	return out
}

func copyComponents(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
