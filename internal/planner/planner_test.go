package planner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"friendus/internal/config"
	"friendus/internal/geo"
)

var saturdayMorning = time.Date(2026, 10, 18, 7, 30, 0, 0, testZone)

func newTestPlanner(t *testing.T, intents IntentSource, provider PlaceProvider, cfg config.PlannerConfig, opts ...Option) *Planner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts = append([]Option{WithClock(fixedClock(saturdayMorning)), WithLogger(logger)}, opts...)
	p, err := New(intents, NewResolver(provider, cfg, logger), cfg, opts...)
	require.NoError(t, err)
	return p
}

func lunchAndMuseum() (staticIntents, *stubProvider) {
	intents := staticIntents{intents: []Intent{
		{SearchQuery: "Phở Hòa", Description: "Ăn sáng", DurationMinutes: 60},
		{SearchQuery: "Bảo tàng Chứng tích Chiến tranh", DurationMinutes: 90},
	}}
	provider := newStubProvider().
		add("Phở Hòa",
			candidate("pho-pasteur", "Phở Hòa Pasteur", 10.7893, 106.6893),
			candidate("pho-q3", "Phở Hòa Quận 3", 10.7800, 106.6850)).
		add("Bảo tàng",
			candidate("war-museum", "Bảo tàng Chứng tích Chiến tranh", 10.7795, 106.6921),
			candidate("fine-arts", "Bảo tàng Mỹ thuật", 10.7697, 106.6994))
	return intents, provider
}

func TestGeneratePlan_TwoStops(t *testing.T) {
	intents, provider := lunchAndMuseum()
	p := newTestPlanner(t, intents, provider, testPlannerConfig())

	got, err := p.GeneratePlan(context.Background(), "ăn phở rồi đi bảo tàng", UserContext{Anchor: hcmc})
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)

	first, second := got.Steps[0], got.Steps[1]
	assert.Equal(t, "09:00", first.Time.Start)
	assert.Equal(t, "10:00", first.Time.End)
	assert.Zero(t, first.TravelMinutes)
	assert.Equal(t, CategoryFood, first.Place.Category)
	assert.Equal(t, "Ăn sáng", first.Intent)
	assert.Equal(t, CategoryMuseum, second.Place.Category)

	firstEnd, err := time.ParseInLocation(DateTimeLayout, first.EndFull, testZone)
	require.NoError(t, err)
	secondStart, err := time.ParseInLocation(DateTimeLayout, second.StartFull, testZone)
	require.NoError(t, err)
	assert.Positive(t, second.TravelMinutes)
	assert.Equal(t, firstEnd.Add(time.Duration(second.TravelMinutes)*time.Minute), secondStart)

	km := geo.Point{Lat: first.Place.Lat, Lon: first.Place.Lon}.DistanceTo(geo.Point{Lat: second.Place.Lat, Lon: second.Place.Lon})
	assert.InDelta(t, km, second.TravelKm, 1e-9)
	assert.Equal(t, EstimateTravelMinutes(km, 25, 5), second.TravelMinutes)

	assert.Equal(t, "2026-10-18T07:30:00+07:00", got.Timestamp)
}

func TestGeneratePlan_NoIntentsGivesEmptyPlan(t *testing.T) {
	p := newTestPlanner(t, staticIntents{}, newStubProvider(), testPlannerConfig())

	got, err := p.GeneratePlan(context.Background(), "", UserContext{Anchor: hcmc})
	require.NoError(t, err)
	assert.Empty(t, got.Steps)
	assert.Zero(t, got.TotalScore)
}

func TestGeneratePlan_EmptyMessageWithTextSplitter(t *testing.T) {
	p := newTestPlanner(t, TextSplitIntentSource{}, newStubProvider(), testPlannerConfig())

	for _, msg := range []string{"", "   ", " , ; "} {
		got, err := p.GeneratePlan(context.Background(), msg, UserContext{Anchor: hcmc})
		require.NoError(t, err, "message %q", msg)
		require.NotNil(t, got.Steps)
		assert.Empty(t, got.Steps)
		assert.Zero(t, got.TotalScore)

		body, err := json.Marshal(got)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"steps":[]`)
	}
}

func TestSearch_ScoreNeverDecreasesWithDepth(t *testing.T) {
	intents := []Intent{
		{SearchQuery: "Phở Hòa", DurationMinutes: 60},
		{SearchQuery: "Bảo tàng Chứng tích Chiến tranh", DurationMinutes: 90},
		{SearchQuery: "Cà phê", DurationMinutes: 45},
		{SearchQuery: "Công viên Tao Đàn", DurationMinutes: 60},
		{SearchQuery: "nowhere at all", DurationMinutes: 30},
	}
	_, provider := lunchAndMuseum()
	provider.
		add("Cà phê",
			candidate("cong-caphe", "Cộng Cà Phê", 10.7760, 106.7030),
			candidate("highlands", "Highlands Coffee", 10.7728, 106.6983)).
		add("Công viên",
			candidate("tao-dan", "Công viên Tao Đàn", 10.7745, 106.6925))

	for _, width := range []int{1, 2, 3} {
		cfg := testPlannerConfig()
		cfg.BeamWidth = width
		p := newTestPlanner(t, staticIntents{}, provider, cfg)

		prev := 0.0
		for i := 1; i <= len(intents); i++ {
			best, err := p.Search(context.Background(), intents[:i], UserContext{Anchor: hcmc})
			require.NoError(t, err)
			require.Equal(t, i, best.Depth())
			assert.GreaterOrEqual(t, best.Score(), prev, "beam %d depth %d", width, i)
			for _, st := range best.Steps() {
				assert.GreaterOrEqual(t, st.Score.Total, 0.0)
			}
			prev = best.Score()
		}
	}
}

func TestGeneratePlan_Deterministic(t *testing.T) {
	cfg := testPlannerConfig()
	cfg.Concurrency = 8

	var runs []PlanResult
	for i := 0; i < 3; i++ {
		intents, provider := lunchAndMuseum()
		p := newTestPlanner(t, intents, provider, cfg)
		got, err := p.GeneratePlan(context.Background(), "x", UserContext{Anchor: hcmc, Preferences: Preferences{Interests: []string{"bảo tàng"}}})
		require.NoError(t, err)
		runs = append(runs, got)
	}
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, runs[0], runs[2])
}

// The greedy choice at depth one leaves only a far candidate at depth two;
// a wider beam keeps the runner-up and finds the better plan.
func TestSearch_WiderBeamEscapesGreedyTrap(t *testing.T) {
	near := candidate("a1", "Alpha One", hcmc.Lat, hcmc.Lon)
	runnerUp := candidate("a2", "Alpha Two", hcmc.Lat+0.01, hcmc.Lon)
	far := candidate("c", "Gamma", hcmc.Lat+0.5, hcmc.Lon)
	intents := []Intent{{SearchQuery: "alpha", DurationMinutes: 60}, {SearchQuery: "beta", DurationMinutes: 60}}

	run := func(width int) SearchState {
		provider := newStubProvider().add("alpha", near, runnerUp).add("beta", near, far)
		cfg := testPlannerConfig()
		cfg.BeamWidth = width
		p := newTestPlanner(t, staticIntents{}, provider, cfg)
		best, err := p.Search(context.Background(), intents, UserContext{Anchor: hcmc})
		require.NoError(t, err)
		return best
	}

	greedy, beam := run(1), run(3)
	assert.Equal(t, []string{"a1", "c"}, placeIDs(greedy))
	assert.Equal(t, []string{"a2", "a1"}, placeIDs(beam))
	assert.Greater(t, beam.Score(), greedy.Score())
}

func TestSearch_BeamOfOnePicksHighestScore(t *testing.T) {
	provider := newStubProvider().add("coffee",
		candidate("far", "Far Coffee", hcmc.Lat+0.1, hcmc.Lon),
		candidate("near", "Near Coffee", hcmc.Lat+0.001, hcmc.Lon))
	cfg := testPlannerConfig()
	cfg.BeamWidth = 1
	p := newTestPlanner(t, staticIntents{}, provider, cfg)

	best, err := p.Search(context.Background(), []Intent{{SearchQuery: "coffee"}}, UserContext{Anchor: hcmc})
	require.NoError(t, err)
	assert.Equal(t, []string{"near"}, placeIDs(best))
	assert.Equal(t, DefaultDurationMinutes, best.Steps()[0].Slot.DurationMinutes)
}

func TestSearch_VisitedPlaceGetsSyntheticStep(t *testing.T) {
	provider := newStubProvider().add("coffee", candidate("only", "The Only Coffee", 10.78, 106.70))
	p := newTestPlanner(t, staticIntents{}, provider, testPlannerConfig())

	best, err := p.Search(context.Background(),
		[]Intent{{SearchQuery: "coffee"}, {SearchQuery: "coffee"}},
		UserContext{Anchor: hcmc})
	require.NoError(t, err)

	steps := best.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "only", steps[0].Place.ID)
	assert.Equal(t, "unresolved:1:coffee", steps[1].Place.ID)
	assert.True(t, steps[1].Place.Unresolved)
	assert.Equal(t, steps[0].Place.Location, steps[1].Place.Location)
	assert.Zero(t, steps[1].Travel.Km)
	assert.Equal(t, 5, steps[1].Travel.Minutes)
}

func TestSearch_EveryIntentYieldsAStep(t *testing.T) {
	p := newTestPlanner(t, staticIntents{}, newStubProvider(), testPlannerConfig())
	intents := []Intent{{SearchQuery: "nowhere one"}, {SearchQuery: "nowhere two"}, {SearchQuery: "nowhere three"}}

	best, err := p.Search(context.Background(), intents, UserContext{Anchor: hcmc})
	require.NoError(t, err)
	require.Len(t, best.Steps(), 3)

	seen := map[string]bool{}
	for _, s := range best.Steps() {
		assert.True(t, s.Place.Unresolved)
		assert.False(t, seen[s.Place.ID], s.Place.ID)
		seen[s.Place.ID] = true
	}
}

func TestGeneratePlan_IntentFailure(t *testing.T) {
	p := newTestPlanner(t, staticIntents{err: errProviderDown}, newStubProvider(), testPlannerConfig())

	_, err := p.GeneratePlan(context.Background(), "anything", UserContext{Anchor: hcmc})
	require.ErrorIs(t, err, ErrIntentUnavailable)
	assert.ErrorIs(t, err, errProviderDown)
}

func TestGeneratePlan_Cancelled(t *testing.T) {
	intents, provider := lunchAndMuseum()
	p := newTestPlanner(t, intents, provider, testPlannerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GeneratePlan(ctx, "x", UserContext{Anchor: hcmc})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneratePlan_InvalidAnchorUsesDefault(t *testing.T) {
	cfg := testPlannerConfig()
	p := newTestPlanner(t, staticIntents{intents: []Intent{{SearchQuery: "somewhere"}}}, newStubProvider(), cfg)

	got, err := p.GeneratePlan(context.Background(), "x", UserContext{})
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, cfg.DefaultLat, got.Steps[0].Place.Lat)
	assert.Equal(t, cfg.DefaultLon, got.Steps[0].Place.Lon)
}

func TestSearch_RouteProvider(t *testing.T) {
	intents, provider := lunchAndMuseum()

	t.Run("uses provider estimate", func(t *testing.T) {
		p := newTestPlanner(t, intents, provider, testPlannerConfig(), WithRouteProvider(stubRoutes{d: 16*time.Minute + 10*time.Second}))
		best, err := p.Search(context.Background(), intents.intents, UserContext{Anchor: hcmc})
		require.NoError(t, err)
		assert.Equal(t, 17, best.Steps()[1].Travel.Minutes)
	})

	t.Run("falls back to heuristic", func(t *testing.T) {
		p := newTestPlanner(t, intents, provider, testPlannerConfig(), WithRouteProvider(stubRoutes{err: errProviderDown}))
		best, err := p.Search(context.Background(), intents.intents, UserContext{Anchor: hcmc})
		require.NoError(t, err)
		travel := best.Steps()[1].Travel
		assert.Equal(t, EstimateTravelMinutes(travel.Km, 25, 5), travel.Minutes)
	})
}

func TestEstimateTravelMinutes(t *testing.T) {
	assert.Equal(t, 5, EstimateTravelMinutes(0, 25, 5))
	assert.Equal(t, 17, EstimateTravelMinutes(5, 25, 5))
	assert.Equal(t, 8, EstimateTravelMinutes(1, 25, 5))
	assert.Equal(t, 5, EstimateTravelMinutes(-1, 25, 5))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, NewResolver(nil, testPlannerConfig(), nil), testPlannerConfig())
	assert.Error(t, err)

	cfg := testPlannerConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	_, err = New(staticIntents{}, NewResolver(nil, cfg, nil), cfg)
	assert.Error(t, err)
}

func placeIDs(s SearchState) []string {
	var ids []string
	for _, step := range s.Steps() {
		ids = append(ids, step.Place.ID)
	}
	return ids
}
