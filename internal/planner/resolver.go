// README: Place resolver: query variants, bounded-then-broad search, fallback place, indoor/category tagging.
package planner

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"friendus/internal/config"
	"friendus/internal/geo"
	"friendus/internal/metrics"
)

// Candidate is a raw hit returned by a place-search provider.
type Candidate struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Location geo.Point `json:"location"`
	Category string    `json:"category,omitempty"`
	// Indoor is set when the provider's own typing settles the question.
	Indoor     *bool    `json:"indoor,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Popularity *float64 `json:"popularity,omitempty"`
}

// SearchRequest is one provider query. RadiusKm of zero means unbounded.
type SearchRequest struct {
	Query    string
	Anchor   geo.Point
	RadiusKm float64
}

// PlaceProvider is an external place-search service.
type PlaceProvider interface {
	SearchPlaces(ctx context.Context, req SearchRequest) ([]Candidate, error)
}

// TimedPlaceProvider applies the per-call timeout to its own round trip. A
// rate-limited provider implements it so that time spent queued for a request
// slot does not count against the call.
type TimedPlaceProvider interface {
	PlaceProvider
	SearchPlacesWithin(ctx context.Context, req SearchRequest, timeout time.Duration) ([]Candidate, error)
}

// FallbackAddress marks places that no provider could resolve.
const FallbackAddress = "unresolved"

var (
	districtPattern = regexp.MustCompile(`(?i)\bQ\.?\s?(\d{1,2})\b`)
	cityMarkers     = []string{"ho chi minh", "hcm", "tphcm", "saigon", "sai gon"}
)

type Resolver struct {
	provider      PlaceProvider
	cityQualifier string
	maxCandidates int
	timeout       time.Duration
	logger        *zap.Logger
}

func NewResolver(provider PlaceProvider, cfg config.PlannerConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	return &Resolver{
		provider:      provider,
		cityQualifier: cfg.CityQualifier,
		maxCandidates: maxCandidates,
		timeout:       cfg.ProviderTimeout(),
		logger:        logger,
	}
}

// Search resolves query around anchor. It never fails: when nothing resolves it
// returns exactly one fallback place located at the anchor.
func (r *Resolver) Search(ctx context.Context, query string, anchor geo.Point, radiusKm float64) []Place {
	query = strings.TrimSpace(query)
	if query == "" || r.provider == nil {
		metrics.ResolverFallbacks.Inc()
		return []Place{fallbackPlace(query, anchor)}
	}

	radii := []float64{radiusKm, 0}
	if radiusKm <= 0 {
		radii = []float64{0}
	}
	variants := r.queryVariants(query)

	for _, radius := range radii {
		for _, variant := range variants {
			if ctx.Err() != nil {
				metrics.ResolverFallbacks.Inc()
				return []Place{fallbackPlace(query, anchor)}
			}
			candidates := r.searchOnce(ctx, SearchRequest{Query: variant, Anchor: anchor, RadiusKm: radius})
			if len(candidates) == 0 {
				continue
			}
			places := make([]Place, 0, len(candidates))
			for _, c := range candidates {
				places = append(places, toPlace(c, query))
				if len(places) == r.maxCandidates {
					break
				}
			}
			return places
		}
	}

	r.logger.Info("place unresolved, using fallback", zap.String("query", query))
	metrics.ResolverFallbacks.Inc()
	return []Place{fallbackPlace(query, anchor)}
}

// searchOnce runs one bounded provider call and drops hits without usable coordinates.
func (r *Resolver) searchOnce(ctx context.Context, req SearchRequest) []Candidate {
	found, err := r.call(ctx, req)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("places").Inc()
		r.logger.Warn("place search failed",
			zap.String("query", req.Query),
			zap.Float64("radius_km", req.RadiusKm),
			zap.Error(err))
		return nil
	}

	out := found[:0:0]
	for _, c := range found {
		if !c.Location.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Resolver) call(ctx context.Context, req SearchRequest) ([]Candidate, error) {
	if timed, ok := r.provider.(TimedPlaceProvider); ok {
		return timed.SearchPlacesWithin(ctx, req, r.timeout)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.provider.SearchPlaces(ctx, req)
}

// queryVariants returns the distinct rewrites of query in the order they are tried.
func (r *Resolver) queryVariants(query string) []string {
	var out []string
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			return
		}
		for _, existing := range out {
			if existing == q {
				return
			}
		}
		out = append(out, q)
	}

	add(r.qualify(query))
	if expanded := districtPattern.ReplaceAllString(query, "Quận $1"); expanded != query {
		add(r.qualify(expanded))
	}
	if head, _, ok := strings.Cut(query, " - "); ok {
		add(r.qualify(head))
	}
	return out
}

func (r *Resolver) qualify(q string) string {
	if r.cityQualifier == "" || namesCity(q) {
		return q
	}
	return q + " " + r.cityQualifier
}

func namesCity(q string) bool {
	for _, marker := range cityMarkers {
		if containsPhrase(q, marker) {
			return true
		}
	}
	return false
}

func toPlace(c Candidate, query string) Place {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = displayName(query)
	}
	category := c.Category
	if category == "" {
		category = classifyCategory(name)
	}
	if category == CategoryGeneral {
		category = classifyCategory(query)
	}
	indoor := classifyIndoor(name + " " + query)
	if c.Indoor != nil {
		indoor = *c.Indoor
	}
	id := c.ID
	if id == "" {
		id = "geo:" + c.Location.Rounded(5).String() + ":" + slug(name)
	}
	return Place{
		ID:         id,
		Name:       name,
		Address:    c.Address,
		Location:   c.Location,
		Indoor:     indoor,
		Category:   category,
		Rating:     c.Rating,
		Popularity: c.Popularity,
	}
}

// fallbackPlace stands in for a query nothing could resolve. Its id is derived
// from the query so different unresolved queries never collide.
func fallbackPlace(query string, anchor geo.Point) Place {
	return Place{
		ID:         "unresolved:" + slug(query),
		Name:       displayName(query),
		Address:    FallbackAddress,
		Location:   anchor,
		Indoor:     true,
		Category:   classifyCategory(query),
		Unresolved: true,
	}
}

func displayName(query string) string {
	head, _, _ := strings.Cut(query, " - ")
	if name := strings.TrimSpace(head); name != "" {
		return name
	}
	if name := strings.TrimSpace(query); name != "" {
		return name
	}
	return "Unknown place"
}

func slug(s string) string {
	if t := tokens(s); len(t) > 0 {
		return strings.Join(t, "-")
	}
	return "empty"
}
