package maps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendus/internal/cache"
	"friendus/internal/geo"
	"friendus/internal/planner"
)

type countingProvider struct {
	calls int
	out   []planner.Candidate
	err   error
}

func (p *countingProvider) SearchPlaces(context.Context, planner.SearchRequest) ([]planner.Candidate, error) {
	p.calls++
	return p.out, p.err
}

func TestCachedProvider(t *testing.T) {
	rating := 4.2
	next := &countingProvider{out: []planner.Candidate{{ID: "osm:1", Name: "Cộng Cà Phê", Location: geo.Point{Lat: 10.78, Lon: 106.70}, Rating: &rating}}}
	p := NewCachedProvider(next, cache.NewMemoryStore(time.Minute, time.Minute), time.Minute, nil)
	ctx := context.Background()
	req := planner.SearchRequest{Query: "Cộng  Cà Phê", Anchor: geo.Point{Lat: 10.77691, Lon: 106.70089}, RadiusKm: 20}

	first, err := p.SearchPlaces(ctx, req)
	require.NoError(t, err)
	second, err := p.SearchPlaces(ctx, planner.SearchRequest{Query: "cộng cà phê", Anchor: geo.Point{Lat: 10.77701, Lon: 106.70102}, RadiusKm: 20})
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	_, err = p.SearchPlaces(ctx, planner.SearchRequest{Query: "cộng cà phê", RadiusKm: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	next := &countingProvider{err: errors.New("boom")}
	p := NewCachedProvider(next, cache.NewMemoryStore(time.Minute, time.Minute), time.Minute, nil)
	req := planner.SearchRequest{Query: "x"}

	_, err := p.SearchPlaces(context.Background(), req)
	assert.Error(t, err)
	_, err = p.SearchPlaces(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

type timedNext struct {
	countingProvider
	timeout time.Duration
}

func (p *timedNext) SearchPlacesWithin(ctx context.Context, req planner.SearchRequest, timeout time.Duration) ([]planner.Candidate, error) {
	p.timeout = timeout
	return p.SearchPlaces(ctx, req)
}

func TestCachedProvider_PassesTimeoutOnMiss(t *testing.T) {
	next := &timedNext{countingProvider: countingProvider{out: []planner.Candidate{{ID: "osm:9", Name: "Bánh mì Huỳnh Hoa"}}}}
	p := NewCachedProvider(next, cache.NewMemoryStore(time.Minute, time.Minute), time.Minute, nil)
	req := planner.SearchRequest{Query: "bánh mì"}

	_, err := p.SearchPlacesWithin(context.Background(), req, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, next.timeout)

	next.timeout = 0
	_, err = p.SearchPlacesWithin(context.Background(), req, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Zero(t, next.timeout)
}
