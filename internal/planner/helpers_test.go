package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"friendus/internal/config"
	"friendus/internal/geo"
)

var (
	hcmc     = geo.Point{Lat: 10.7769, Lon: 106.7009}
	testZone = mustLoad("Asia/Ho_Chi_Minh")
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testPlannerConfig() config.PlannerConfig {
	cfg := config.DefaultPlanner()
	cfg.ProviderTimeoutMS = 500
	return cfg
}

// stubProvider answers queries whose text starts with a registered prefix.
// Longer prefixes are matched first.
type stubProvider struct {
	mu      sync.Mutex
	results map[string][]Candidate
	err     error
	calls   []SearchRequest
}

func newStubProvider() *stubProvider {
	return &stubProvider{results: map[string][]Candidate{}}
}

func (s *stubProvider) add(prefix string, cands ...Candidate) *stubProvider {
	s.results[prefix] = cands
	return s
}

func (s *stubProvider) SearchPlaces(ctx context.Context, req SearchRequest) ([]Candidate, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	best := ""
	for prefix := range s.results {
		if strings.HasPrefix(req.Query, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, nil
	}
	return s.results[best], nil
}

func (s *stubProvider) queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Query
	}
	return out
}

func candidate(id, name string, lat, lon float64) Candidate {
	return Candidate{ID: id, Name: name, Address: name + " address", Location: geo.Point{Lat: lat, Lon: lon}}
}

func ptr[T any](v T) *T { return &v }

// staticIntents returns a fixed list of intents.
type staticIntents struct {
	intents []Intent
	err     error
}

func (s staticIntents) Extract(context.Context, string, UserContext) ([]Intent, error) {
	return s.intents, s.err
}

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type stubRoutes struct {
	d   time.Duration
	err error
}

func (s stubRoutes) TravelTime(context.Context, geo.Point, geo.Point) (time.Duration, error) {
	return s.d, s.err
}

var errProviderDown = errors.New("provider down")
