// README: Google Maps adapters: Places text search for the resolver and Directions for travel time.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"googlemaps.github.io/maps"

	"friendus/internal/geo"
	"friendus/internal/planner"
)

// popularityCeiling is the review count treated as maximally popular.
const popularityCeiling = 10000

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a new PlacesService. Extra client options (such as
// maps.WithBaseURL) are passed through.
func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// SearchPlaces runs a text search biased to req.Anchor when a radius is given.
func (s *PlacesService) SearchPlaces(ctx context.Context, req planner.SearchRequest) ([]planner.Candidate, error) {
	r := &maps.TextSearchRequest{
		Query:    req.Query,
		Language: "vi",
		Region:   "vn",
	}
	if req.RadiusKm > 0 {
		r.Location = &maps.LatLng{Lat: req.Anchor.Lat, Lng: req.Anchor.Lon}
		r.Radius = uint(math.Round(req.RadiusKm * 1000))
	}

	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	out := make([]planner.Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		kind := googleKind(result.Types)
		c := planner.Candidate{
			ID:       "gmaps:" + result.PlaceID,
			Name:     result.Name,
			Address:  result.FormattedAddress,
			Location: geo.Point{Lat: result.Geometry.Location.Lat, Lon: result.Geometry.Location.Lng},
			Category: kind.category,
			Indoor:   kind.indoor,
		}
		if result.Rating > 0 {
			rating := float64(result.Rating)
			c.Rating = &rating
		}
		if result.UserRatingsTotal > 0 {
			pop := math.Min(1, math.Log10(1+float64(result.UserRatingsTotal))/math.Log10(1+popularityCeiling))
			c.Popularity = &pop
		}
		out = append(out, c)
	}
	return out, nil
}

// RouteService handles interactions with Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// TravelTime returns the driving duration of the first route between two points.
func (s *RouteService) TravelTime(ctx context.Context, from, to geo.Point) (time.Duration, error) {
	r := &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        maps.TravelModeDriving,
		Language:    "vi",
		Region:      "vn",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, errors.New("no route found")
	}
	return routes[0].Legs[0].Duration, nil
}
