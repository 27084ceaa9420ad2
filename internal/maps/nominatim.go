package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"friendus/internal/geo"
	"friendus/internal/planner"
)

// kmPerDegree approximates one degree of latitude.
const kmPerDegree = 111.0

// NominatimClient searches OpenStreetMap through a Nominatim server. Calls are
// rate limited; the public server allows one request per second.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNominatimClient(baseURL, userAgent string, requestsPerSecond float64, timeout time.Duration) *NominatimClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      5,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type nominatimResult struct {
	PlaceID     int64             `json:"place_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Importance  float64           `json:"importance"`
	Address     map[string]string `json:"address"`
}

func (c *NominatimClient) SearchPlaces(ctx context.Context, req planner.SearchRequest) ([]planner.Candidate, error) {
	return c.SearchPlacesWithin(ctx, req, 0)
}

// SearchPlacesWithin waits for a request slot under ctx, then bounds the HTTP
// round trip by timeout. Zero leaves only the client timeout.
func (c *NominatimClient) SearchPlacesWithin(ctx context.Context, req planner.SearchRequest, timeout time.Duration) ([]planner.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("addressdetails", "1")
	q.Set("accept-language", "vi")
	if req.RadiusKm > 0 {
		d := req.RadiusKm / kmPerDegree
		a := req.Anchor
		q.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f", a.Lon-d, a.Lat-d, a.Lon+d, a.Lat+d))
		q.Set("bounded", "1")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}

	out := make([]planner.Candidate, 0, len(results))
	for _, r := range results {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		kind := osmKind(r.Category, r.Type)
		c := planner.Candidate{
			ID:       "osm:" + strconv.FormatInt(r.PlaceID, 10),
			Name:     r.Name,
			Address:  shortAddress(r),
			Location: geo.Point{Lat: lat, Lon: lon},
			Category: kind.category,
			Indoor:   kind.indoor,
		}
		if r.Importance > 0 {
			pop := r.Importance
			c.Popularity = &pop
		}
		out = append(out, c)
	}
	return out, nil
}

// shortAddress renders "road, suburb", falling back to the first part of the
// display name when the road is unknown.
func shortAddress(r nominatimResult) string {
	area := firstNonEmpty(r.Address["suburb"], r.Address["city_district"], r.Address["district"], r.Address["city"])
	head := r.Address["road"]
	if head == "" {
		head, _, _ = strings.Cut(r.DisplayName, ",")
		head = strings.TrimSpace(head)
	}
	switch {
	case head == "":
		return area
	case area == "":
		return head
	default:
		return head + ", " + area
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
