// README: Config loader: .env file, env defaults, optional TOML overrides for planner tuning, validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Score component names. Weights are keyed by these.
const (
	WeightWeather    = "weather"
	WeightDistance   = "distance"
	WeightTimeOfDay  = "time_of_day"
	WeightPopularity = "popularity"
	WeightPreference = "preference"
)

// PlannerConfig tunes the beam search and the scorer.
type PlannerConfig struct {
	BeamWidth             int                `toml:"beam_width" validate:"gte=1,lte=10"`
	MaxCandidates         int                `toml:"max_candidates" validate:"gte=1,lte=5"`
	SearchRadiusKm        float64            `toml:"search_radius_km" validate:"gt=0"`
	DefaultStepMinutes    int                `toml:"default_step_minutes" validate:"gt=0"`
	AvgSpeedKmh           float64            `toml:"avg_speed_kmh" validate:"gt=0"`
	TravelOverheadMinutes int                `toml:"travel_overhead_minutes" validate:"gte=0"`
	DistanceDecayK        float64            `toml:"distance_decay_k" validate:"gt=0"`
	LateHour              int                `toml:"late_hour" validate:"gte=0,lte=23"`
	DefaultTimeRange      string             `toml:"default_time_range" validate:"required"`
	CityQualifier         string             `toml:"city_qualifier"`
	Timezone              string             `toml:"timezone" validate:"required"`
	ProviderTimeoutMS     int                `toml:"provider_timeout_ms" validate:"gt=0"`
	Concurrency           int                `toml:"concurrency" validate:"gte=1"`
	DefaultLat            float64            `toml:"default_lat" validate:"gte=-90,lte=90"`
	DefaultLon            float64            `toml:"default_lon" validate:"gte=-180,lte=180"`
	Weights               map[string]float64 `toml:"weights" validate:"required,dive,gte=0"`
}

// ProviderTimeout is the per-call bound for place search and routing.
func (p PlannerConfig) ProviderTimeout() time.Duration {
	return time.Duration(p.ProviderTimeoutMS) * time.Millisecond
}

// DefaultPlanner returns the planner settings used when nothing overrides them.
func DefaultPlanner() PlannerConfig {
	return PlannerConfig{
		BeamWidth:             3,
		MaxCandidates:         3,
		SearchRadiusKm:        20,
		DefaultStepMinutes:    60,
		AvgSpeedKmh:           25,
		TravelOverheadMinutes: 5,
		DistanceDecayK:        0.15,
		LateHour:              21,
		DefaultTimeRange:      "09:00 - 21:00",
		CityQualifier:         "Ho Chi Minh City",
		Timezone:              "Asia/Ho_Chi_Minh",
		ProviderTimeoutMS:     5000,
		Concurrency:           4,
		DefaultLat:            10.762622,
		DefaultLon:            106.660172,
		Weights: map[string]float64{
			WeightWeather:    0.3,
			WeightDistance:   0.2,
			WeightTimeOfDay:  0.2,
			WeightPopularity: 0.15,
			WeightPreference: 0.15,
		},
	}
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
		// Migrate runs the embedded migrations up at startup.
		Migrate bool
	}
	Redis struct {
		Addr string
	}
	Log struct {
		Level string
	}
	AI struct {
		// Provider is one of "gemini", "openai" or "none" (text splitting only).
		Provider      string
		GeminiKey     string
		GeminiModel   string
		OpenAIKey     string
		OpenAIBaseURL string
		OpenAIModel   string
		Timeout       time.Duration
	}
	Maps struct {
		// Provider is "google" or "nominatim".
		Provider      string
		GoogleKey     string
		UseDirections bool
		NominatimURL  string
		UserAgent     string
		RatePerSecond float64
		CacheTTL      time.Duration
	}
	Weather struct {
		Enabled bool
		BaseURL string
	}
	Jobs struct {
		MaxConcurrent int
		Timeout       time.Duration
		TTL           time.Duration
	}
	Quota struct {
		MonthlyCredits int
	}
	Planner PlannerConfig
}

var validate = validator.New()

// Load reads .env (when present), environment variables and the optional TOML
// file named by FRIENDUS_CONFIG, in that order of increasing precedence for the
// planner section.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FRIENDUS_HTTP_ADDR", ":8080")
	cfg.DB.DSN = envOrDefault("FRIENDUS_DB_DSN", "")
	cfg.DB.Migrate = envOrDefaultBool("FRIENDUS_DB_MIGRATE", false)
	cfg.Redis.Addr = envOrDefault("FRIENDUS_REDIS_ADDR", "")
	cfg.Log.Level = envOrDefault("FRIENDUS_LOG_LEVEL", "info")

	cfg.AI.Provider = strings.ToLower(envOrDefault("FRIENDUS_AI_PROVIDER", "gemini"))
	cfg.AI.GeminiKey = envOrDefault("GEMINI_API_KEY", "")
	cfg.AI.GeminiModel = envOrDefault("FRIENDUS_GEMINI_MODEL", "gemini-2.0-flash")
	cfg.AI.OpenAIKey = envOrDefault("FRIENDUS_OPENAI_API_KEY", "")
	cfg.AI.OpenAIBaseURL = envOrDefault("FRIENDUS_OPENAI_BASE_URL", "https://api.sea-lion.ai/v1")
	cfg.AI.OpenAIModel = envOrDefault("FRIENDUS_OPENAI_MODEL", "aisingapore/Gemma-SEA-LION-v4-27B-IT")
	cfg.AI.Timeout = envOrDefaultDuration("FRIENDUS_AI_TIMEOUT", 15*time.Second)

	cfg.Maps.Provider = strings.ToLower(envOrDefault("FRIENDUS_MAPS_PROVIDER", "nominatim"))
	cfg.Maps.GoogleKey = envOrDefault("GOOGLE_MAPS_API_KEY", "")
	cfg.Maps.UseDirections = envOrDefaultBool("FRIENDUS_MAPS_DIRECTIONS", false)
	cfg.Maps.NominatimURL = envOrDefault("FRIENDUS_NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	cfg.Maps.UserAgent = envOrDefault("FRIENDUS_NOMINATIM_USER_AGENT", "FriendUS-Planner/3.0")
	cfg.Maps.RatePerSecond = envOrDefaultFloat("FRIENDUS_NOMINATIM_RPS", 1)
	cfg.Maps.CacheTTL = envOrDefaultDuration("FRIENDUS_PLACES_CACHE_TTL", 6*time.Hour)

	cfg.Weather.Enabled = envOrDefaultBool("FRIENDUS_WEATHER_ENABLED", true)
	cfg.Weather.BaseURL = envOrDefault("FRIENDUS_WEATHER_URL", "")

	cfg.Jobs.MaxConcurrent = envOrDefaultInt("FRIENDUS_JOBS_MAX_CONCURRENT", 8)
	cfg.Jobs.Timeout = envOrDefaultDuration("FRIENDUS_JOBS_TIMEOUT", 90*time.Second)
	cfg.Jobs.TTL = envOrDefaultDuration("FRIENDUS_JOBS_TTL", 24*time.Hour)

	cfg.Quota.MonthlyCredits = envOrDefaultInt("FRIENDUS_MONTHLY_CREDITS", 100)

	cfg.Planner = DefaultPlanner()
	if path := os.Getenv("FRIENDUS_CONFIG"); path != "" {
		if err := loadPlannerFile(path, &cfg.Planner); err != nil {
			return Config{}, err
		}
	}
	cfg.Planner.BeamWidth = envOrDefaultInt("FRIENDUS_BEAM_WIDTH", cfg.Planner.BeamWidth)
	cfg.Planner.Timezone = envOrDefault("FRIENDUS_TIMEZONE", cfg.Planner.Timezone)
	cfg.Planner.CityQualifier = envOrDefault("FRIENDUS_CITY_QUALIFIER", cfg.Planner.CityQualifier)
	if raw := os.Getenv("FRIENDUS_PLANNER_WEIGHTS"); raw != "" {
		weights, err := ParseWeights(raw)
		if err != nil {
			return Config{}, err
		}
		for k, v := range weights {
			cfg.Planner.Weights[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c.Planner); err != nil {
		return fmt.Errorf("invalid planner config: %w", err)
	}
	for name, w := range c.Planner.Weights {
		if err := checkWeight(name, w); err != nil {
			return fmt.Errorf("invalid planner config: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Planner.Timezone); err != nil {
		return fmt.Errorf("invalid planner timezone %q: %w", c.Planner.Timezone, err)
	}
	switch c.AI.Provider {
	case "gemini":
		if c.AI.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY is required when FRIENDUS_AI_PROVIDER=gemini")
		}
	case "openai":
		if c.AI.OpenAIKey == "" {
			return errors.New("FRIENDUS_OPENAI_API_KEY is required when FRIENDUS_AI_PROVIDER=openai")
		}
	case "none":
	default:
		return fmt.Errorf("unknown FRIENDUS_AI_PROVIDER %q", c.AI.Provider)
	}
	switch c.Maps.Provider {
	case "google":
		if c.Maps.GoogleKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is required when FRIENDUS_MAPS_PROVIDER=google")
		}
	case "nominatim":
	default:
		return fmt.Errorf("unknown FRIENDUS_MAPS_PROVIDER %q", c.Maps.Provider)
	}
	if c.Maps.UseDirections && c.Maps.GoogleKey == "" {
		return errors.New("GOOGLE_MAPS_API_KEY is required when FRIENDUS_MAPS_DIRECTIONS is enabled")
	}
	return nil
}

type fileConfig struct {
	Planner PlannerConfig `toml:"planner"`
}

// loadPlannerFile overlays the [planner] table of a TOML file onto dst.
// Keys missing from the file keep their current values.
func loadPlannerFile(path string, dst *PlannerConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return decodePlanner(raw, dst)
}

func decodePlanner(raw []byte, dst *PlannerConfig) error {
	fc := fileConfig{Planner: *dst}
	fc.Planner.Weights = nil
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse planner config: %w", err)
	}
	merged := make(map[string]float64, len(dst.Weights))
	for k, v := range dst.Weights {
		merged[k] = v
	}
	for k, v := range fc.Planner.Weights {
		merged[k] = v
	}
	*dst = fc.Planner
	dst.Weights = merged
	return nil
}

// ParseWeights reads "weather=0.4,distance=0.2" into a weight map.
func ParseWeights(raw string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q: want name=value", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", pair, err)
		}
		name = strings.TrimSpace(name)
		if err := checkWeight(name, w); err != nil {
			return nil, err
		}
		out[name] = w
	}
	return out, nil
}

// checkWeight rejects unknown scorer components and non-finite or negative values.
func checkWeight(name string, w float64) error {
	switch name {
	case WeightWeather, WeightDistance, WeightTimeOfDay, WeightPopularity, WeightPreference:
	default:
		return fmt.Errorf("unknown score component %q", name)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("weight %s must be finite", name)
	}
	if w < 0 {
		return fmt.Errorf("weight %s must not be negative", name)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
