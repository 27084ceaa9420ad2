// README: Multi-factor scorer: weather, distance decay, time-of-day fit, popularity and preference affinity.
package planner

import (
	"math"
	"time"

	"friendus/internal/config"
	"friendus/internal/weather"
)

// hourWindow is a half-open [From, To) range in fractional hours.
type hourWindow struct{ From, To float64 }

var preferredHours = map[string][]hourWindow{
	CategoryFood:          {{11, 14}, {17, 21}},
	CategoryCafe:          {{7, 11}, {14, 18}},
	CategoryMuseum:        {{9, 17}},
	CategoryPark:          {{6, 10}, {16, 19}},
	CategoryNightlife:     {{19, 24}},
	CategoryShopping:      {{10, 22}},
	CategoryEntertainment: {{10, 23}},
}

const (
	neutralScore      = 0.5
	unknownTimeFit    = 0.6
	offWindowTimeFit  = 0.4
	overrunMultiplier = 0.25
)

var componentOrder = []string{
	config.WeightWeather,
	config.WeightDistance,
	config.WeightTimeOfDay,
	config.WeightPopularity,
	config.WeightPreference,
}

// Scorer is pure: the same step, context and sample always give the same breakdown.
type Scorer struct {
	weights map[string]float64
	decayK  float64
}

func NewScorer(weights map[string]float64, decayK float64) *Scorer {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		if v > 0 {
			w[k] = v
		}
	}
	if decayK <= 0 {
		decayK = 0.15
	}
	return &Scorer{weights: w, decayK: decayK}
}

func (s *Scorer) Score(step PlanStep, uc UserContext, sample *weather.Sample) ScoreBreakdown {
	km := uc.Anchor.DistanceTo(step.Place.Location)
	if step.Travel != nil {
		km = step.Travel.Km
	}

	components := map[string]float64{
		config.WeightWeather:    weatherScore(step.Place, sample),
		config.WeightDistance:   clamp01(math.Exp(-s.decayK * km)),
		config.WeightTimeOfDay:  timeOfDayScore(step.Place.Category, step.Slot, uc.Preferences.TimeRange),
		config.WeightPopularity: popularityScore(step.Place),
		config.WeightPreference: preferenceScore(step.Place, uc.Preferences.Interests),
	}

	// Fixed summation order keeps totals bit-identical between runs.
	total := 0.0
	for _, name := range componentOrder {
		total += s.weights[name] * components[name]
	}
	return ScoreBreakdown{Total: total, Components: components}
}

func weatherScore(p Place, sample *weather.Sample) float64 {
	if p.Indoor || sample == nil {
		return 1
	}
	penalty := math.Max(sample.RainProbability, weather.CodePenalty(sample.Code))
	return clamp01(1 - penalty)
}

func timeOfDayScore(category string, slot TimeSlot, timeRange string) float64 {
	fit := unknownTimeFit
	if windows, ok := preferredHours[category]; ok {
		fit = offWindowTimeFit
		h := float64(slot.Start.Hour()) + float64(slot.Start.Minute())/60
		for _, w := range windows {
			if h >= w.From && h < w.To {
				fit = 1
				break
			}
		}
	}

	if r, err := ParseTimeRange(timeRange); err == nil {
		day := time.Date(slot.Start.Year(), slot.Start.Month(), slot.Start.Day(), 0, 0, 0, 0, slot.Start.Location())
		if slot.End().After(r.EndOn(day)) {
			fit *= overrunMultiplier
		}
	}
	return clamp01(fit)
}

func popularityScore(p Place) float64 {
	switch {
	case p.Unresolved:
		return 0
	case p.Popularity != nil:
		return clamp01(*p.Popularity)
	case p.Rating != nil:
		return clamp01(*p.Rating / 5)
	default:
		return neutralScore
	}
}

func preferenceScore(p Place, interests []string) float64 {
	if len(interests) == 0 {
		return neutralScore
	}
	if p.Unresolved {
		return 0
	}
	text := p.Name + " " + p.Category
	matched, total := 0, 0
	for _, interest := range interests {
		if len(tokens(interest)) == 0 {
			continue
		}
		total++
		cat := classifyCategory(interest)
		if containsPhrase(text, interest) || (cat != CategoryGeneral && cat == p.Category) {
			matched++
		}
	}
	if total == 0 {
		return neutralScore
	}
	return float64(matched) / float64(total)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
