// README: Open-Meteo hourly forecast client used to weight outdoor stops.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"friendus/internal/geo"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Sample is one hourly forecast point.
type Sample struct {
	Time            time.Time `json:"time"`
	TemperatureC    float64   `json:"temperature_c"`
	RainProbability float64   `json:"rain_probability"` // 0..1
	Code            int       `json:"code"`
}

// Client fetches hourly samples from the Open-Meteo forecast API.
type Client struct {
	baseURL string
	loc     *time.Location
	http    *http.Client
}

// NewClient returns a Client. An empty baseURL uses the public endpoint; timezone
// is an IANA name used both for the request and for parsing the returned times.
func NewClient(baseURL, timezone string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("weather: load timezone %q: %w", timezone, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, loc: loc, http: &http.Client{Timeout: timeout}}, nil
}

type forecastResponse struct {
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []*int     `json:"weathercode"`
	} `json:"hourly"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Hourly returns the next three days of hourly samples around p, ordered by time.
func (c *Client) Hourly(ctx context.Context, p geo.Point) ([]Sample, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(p.Lon, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,precipitation_probability,weathercode")
	q.Set("timezone", c.loc.String())
	q.Set("forecast_days", "3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("weather: read body: %w", err)
	}
	var out forecastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("weather: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Error {
		return nil, fmt.Errorf("weather: status %d: %s", resp.StatusCode, out.Reason)
	}

	h := out.Hourly
	samples := make([]Sample, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.ParseInLocation("2006-01-02T15:04", raw, c.loc)
		if err != nil {
			continue
		}
		s := Sample{Time: ts}
		if i < len(h.Temperature2m) && h.Temperature2m[i] != nil {
			s.TemperatureC = *h.Temperature2m[i]
		}
		if i < len(h.PrecipitationProbability) && h.PrecipitationProbability[i] != nil {
			s.RainProbability = *h.PrecipitationProbability[i] / 100
		}
		if i < len(h.WeatherCode) && h.WeatherCode[i] != nil {
			s.Code = *h.WeatherCode[i]
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Nearest returns the sample closest to t, or nil when none lies within maxGap.
func Nearest(samples []Sample, t time.Time, maxGap time.Duration) *Sample {
	var best *Sample
	bestGap := maxGap + 1
	for i := range samples {
		gap := samples[i].Time.Sub(t)
		if gap < 0 {
			gap = -gap
		}
		if gap < bestGap {
			best = &samples[i]
			bestGap = gap
		}
	}
	if best == nil || bestGap > maxGap {
		return nil
	}
	return best
}
