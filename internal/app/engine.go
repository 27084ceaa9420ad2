// README: Builds the planning engine (intent sources, place search, routing, weather) from config.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"friendus/internal/ai"
	"friendus/internal/cache"
	"friendus/internal/config"
	"friendus/internal/maps"
	"friendus/internal/planner"
	"friendus/internal/weather"
)

// Engine is the wired planner plus the optional weather source.
type Engine struct {
	Planner *planner.Planner
	// Weather is nil when forecasts are disabled.
	Weather *weather.Client

	completer ai.Provider
}

// NewEngine wires the planner. kv caches place searches; nil disables caching.
func NewEngine(ctx context.Context, cfg config.Config, kv cache.Store, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{}

	places, err := newPlaceProvider(cfg)
	if err != nil {
		return nil, err
	}
	if kv != nil {
		places = maps.NewCachedProvider(places, kv, cfg.Maps.CacheTTL, logger)
	}
	resolver := planner.NewResolver(places, cfg.Planner, logger.Named("resolver"))

	intents, err := e.newIntentSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []planner.Option{planner.WithLogger(logger.Named("planner"))}
	if cfg.Maps.UseDirections {
		routes, err := maps.NewRouteService(cfg.Maps.GoogleKey)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("routes: %w", err)
		}
		opts = append(opts, planner.WithRouteProvider(routes))
	}

	e.Planner, err = planner.New(intents, resolver, cfg.Planner, opts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	if cfg.Weather.Enabled {
		e.Weather, err = weather.NewClient(cfg.Weather.BaseURL, cfg.Planner.Timezone, cfg.Planner.ProviderTimeout())
		if err != nil {
			e.Close()
			return nil, err
		}
	}

	logger.Info("planning engine ready",
		zap.String("places", cfg.Maps.Provider),
		zap.String("ai", cfg.AI.Provider),
		zap.Bool("directions", cfg.Maps.UseDirections),
		zap.Bool("weather", e.Weather != nil),
		zap.Int("beam_width", cfg.Planner.BeamWidth))
	return e, nil
}

func newPlaceProvider(cfg config.Config) (planner.PlaceProvider, error) {
	switch cfg.Maps.Provider {
	case "google":
		svc, err := maps.NewPlacesService(cfg.Maps.GoogleKey)
		if err != nil {
			return nil, fmt.Errorf("places: %w", err)
		}
		return svc, nil
	case "nominatim", "":
		return maps.NewNominatimClient(cfg.Maps.NominatimURL, cfg.Maps.UserAgent, cfg.Maps.RatePerSecond, cfg.Planner.ProviderTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown maps provider %q", cfg.Maps.Provider)
	}
}

// newIntentSource prefers the completion service and falls back to text splitting.
func (e *Engine) newIntentSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (planner.IntentSource, error) {
	split := planner.TextSplitIntentSource{}
	provider, err := ai.New(ctx, ai.Options{
		Provider:      cfg.AI.Provider,
		GeminiKey:     cfg.AI.GeminiKey,
		GeminiModel:   cfg.AI.GeminiModel,
		OpenAIKey:     cfg.AI.OpenAIKey,
		OpenAIBaseURL: cfg.AI.OpenAIBaseURL,
		OpenAIModel:   cfg.AI.OpenAIModel,
	})
	if errors.Is(err, ai.ErrDisabled) {
		return split, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ai: %w", err)
	}
	e.completer = provider
	return planner.FallbackIntentSource{
		Primary:   planner.NewLLMIntentSource(provider, cfg.AI.Timeout),
		Secondary: split,
		Logger:    logger.Named("intent"),
	}, nil
}

func (e *Engine) Close() error {
	if e.completer == nil {
		return nil
	}
	return e.completer.Close()
}
