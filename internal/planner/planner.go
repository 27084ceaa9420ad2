// README: Beam-search itinerary planner driving intent extraction, place resolution, travel estimation and scoring.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"friendus/internal/config"
	"friendus/internal/geo"
	"friendus/internal/metrics"
	"friendus/internal/weather"
)

// weatherMatchWindow bounds how far a forecast sample may be from the arrival time.
const weatherMatchWindow = 90 * time.Minute

// PlaceSearcher resolves a query near an anchor. *Resolver is the production implementation.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, anchor geo.Point, radiusKm float64) []Place
}

// RouteProvider estimates door-to-door travel time.
type RouteProvider interface {
	TravelTime(ctx context.Context, from, to geo.Point) (time.Duration, error)
}

type Planner struct {
	intents IntentSource
	places  PlaceSearcher
	routes  RouteProvider
	scorer  *Scorer
	cfg     config.PlannerConfig
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Planner)

// WithRouteProvider replaces the speed-based travel estimate with a routing service.
func WithRouteProvider(r RouteProvider) Option {
	return func(p *Planner) { p.routes = r }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(intents IntentSource, places PlaceSearcher, cfg config.PlannerConfig, opts ...Option) (*Planner, error) {
	if intents == nil || places == nil {
		return nil, errors.New("planner: intent source and place searcher are required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("planner: load timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.BeamWidth <= 0 {
		cfg.BeamWidth = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultStepMinutes <= 0 {
		cfg.DefaultStepMinutes = DefaultDurationMinutes
	}
	if cfg.AvgSpeedKmh <= 0 {
		cfg.AvgSpeedKmh = 25
	}
	if cfg.ProviderTimeoutMS <= 0 {
		cfg.ProviderTimeoutMS = 5000
	}
	p := &Planner{
		intents: intents,
		places:  places,
		scorer:  NewScorer(cfg.Weights, cfg.DistanceDecayK),
		cfg:     cfg,
		loc:     loc,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GeneratePlan extracts intents from message and searches for the best itinerary.
// It fails only when intents cannot be determined or ctx is cancelled; a message
// with no intents yields an empty plan.
func (p *Planner) GeneratePlan(ctx context.Context, message string, uc UserContext) (PlanResult, error) {
	started := time.Now()
	if !uc.Anchor.Valid() {
		uc.Anchor = geo.Point{Lat: p.cfg.DefaultLat, Lon: p.cfg.DefaultLon}
	}

	intents, err := p.intents.Extract(ctx, message, uc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PlanResult{}, ctxErr
		}
		metrics.PlansTotal.WithLabelValues("intent_unavailable").Inc()
		if errors.Is(err, ErrIntentUnavailable) {
			return PlanResult{}, err
		}
		return PlanResult{}, fmt.Errorf("%w: %w", ErrIntentUnavailable, err)
	}

	best, err := p.Search(ctx, intents, uc)
	if err != nil {
		metrics.PlansTotal.WithLabelValues("cancelled").Inc()
		return PlanResult{}, err
	}

	result := Format(best, p.now().In(p.loc))
	metrics.PlansTotal.WithLabelValues("ok").Inc()
	metrics.PlanSteps.Observe(float64(len(result.Steps)))
	metrics.PlanDuration.Observe(time.Since(started).Seconds())
	p.logger.Info("plan generated",
		zap.Int("intents", len(intents)),
		zap.Int("steps", len(result.Steps)),
		zap.Float64("total_score", result.TotalScore),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

// Search runs the beam search over intents in order and returns the best final state.
// With no intents it returns the initial state.
func (p *Planner) Search(ctx context.Context, intents []Intent, uc UserContext) (SearchState, error) {
	start := initialCursor(p.now().In(p.loc), uc.Preferences, p.cfg.DefaultTimeRange, p.cfg.LateHour)
	beam := []SearchState{NewSearchState(uc.Anchor, start)}

	for depth, intent := range intents {
		if err := ctx.Err(); err != nil {
			return SearchState{}, err
		}

		// Each beam member expands into its own slot so the merged order depends
		// only on enumeration order, never on goroutine completion order.
		expansions := make([][]SearchState, len(beam))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Concurrency)
		for i, state := range beam {
			g.Go(func() error {
				expansions[i] = p.expand(gctx, depth, intent, state, uc)
				return nil
			})
		}
		_ = g.Wait()

		var next []SearchState
		for _, states := range expansions {
			next = append(next, states...)
		}
		if len(next) == 0 {
			break
		}
		sort.SliceStable(next, func(a, b int) bool { return next[a].Score() > next[b].Score() })
		if len(next) > p.cfg.BeamWidth {
			next = next[:p.cfg.BeamWidth]
		}
		beam = next

		p.logger.Debug("beam depth complete",
			zap.Int("depth", depth+1),
			zap.String("query", intent.SearchQuery),
			zap.Int("kept", len(beam)),
			zap.Float64("best_score", beam[0].Score()))
	}
	return beam[0], nil
}

// expand returns the successors of state for one intent. A state always gets at
// least one successor: when no candidate is usable a synthetic step at the
// current location stands in.
func (p *Planner) expand(ctx context.Context, depth int, intent Intent, state SearchState, uc UserContext) []SearchState {
	places := p.places.Search(ctx, intent.SearchQuery, state.Location(), p.cfg.SearchRadiusKm)

	out := make([]SearchState, 0, len(places))
	for _, place := range places {
		if state.Visited(place.ID) {
			continue
		}
		step, ok := p.buildStep(ctx, intent, place, state, uc)
		if !ok {
			continue
		}
		out = append(out, state.Extend(step))
	}
	if len(out) > 0 {
		return out
	}

	fallback := Place{
		ID:         fmt.Sprintf("unresolved:%d:%s", depth, slug(intent.SearchQuery)),
		Name:       displayName(intent.SearchQuery),
		Address:    FallbackAddress,
		Location:   state.Location(),
		Indoor:     true,
		Category:   classifyCategory(intent.SearchQuery),
		Unresolved: true,
	}
	step, ok := p.buildStep(ctx, intent, fallback, state, uc)
	if !ok {
		step.Score = ScoreBreakdown{Components: map[string]float64{}}
	}
	return []SearchState{state.Extend(step)}
}

// buildStep schedules place after state. It reports false when the step cannot
// be scored.
func (p *Planner) buildStep(ctx context.Context, intent Intent, place Place, state SearchState, uc UserContext) (PlanStep, bool) {
	arrival := state.Cursor()
	var travel *Travel
	if state.Depth() > 0 {
		km := state.Location().DistanceTo(place.Location)
		minutes := p.travelMinutes(ctx, state.Location(), place.Location, km)
		travel = &Travel{Minutes: minutes, Km: km}
		arrival = arrival.Add(time.Duration(minutes) * time.Minute)
	}

	duration := intent.DurationMinutes
	if duration <= 0 {
		duration = p.cfg.DefaultStepMinutes
	}
	slot, err := NewTimeSlot(arrival, duration)
	if err != nil {
		return PlanStep{Intent: intent, Place: place, Travel: travel}, false
	}

	step := PlanStep{Intent: intent, Place: place, Slot: slot, Travel: travel}
	step.Score = p.scorer.Score(step, uc, weather.Nearest(uc.Weather, arrival, weatherMatchWindow))
	if math.IsNaN(step.Score.Total) || math.IsInf(step.Score.Total, 0) {
		p.logger.Warn("dropping candidate with non-finite score", zap.String("place_id", place.ID))
		return step, false
	}
	return step, true
}

// travelMinutes asks the routing provider when configured and falls back to
// the average-speed estimate.
func (p *Planner) travelMinutes(ctx context.Context, from, to geo.Point, km float64) int {
	if p.routes != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ProviderTimeout())
		d, err := p.routes.TravelTime(callCtx, from, to)
		cancel()
		if err == nil && d >= 0 {
			return int(math.Ceil(d.Minutes()))
		}
		metrics.ProviderErrors.WithLabelValues("routes").Inc()
		p.logger.Debug("route estimate failed, using speed heuristic", zap.Error(err))
	}
	return EstimateTravelMinutes(km, p.cfg.AvgSpeedKmh, p.cfg.TravelOverheadMinutes)
}

// EstimateTravelMinutes is the speed-based travel estimate: distance at the
// average speed, rounded up, plus a fixed overhead.
func EstimateTravelMinutes(km, speedKmh float64, overheadMinutes int) int {
	if km < 0 || math.IsNaN(km) {
		km = 0
	}
	return int(math.Ceil(km/speedKmh*60)) + overheadMinutes
}
