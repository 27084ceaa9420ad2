package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"friendus/internal/cache"
	"friendus/internal/config"
	"friendus/internal/planner"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.AI.Provider = "none"
	cfg.Maps.Provider = "nominatim"
	cfg.Maps.NominatimURL = "http://127.0.0.1:1"
	cfg.Maps.UserAgent = "friendus-test"
	cfg.Maps.RatePerSecond = 1
	cfg.Planner = config.DefaultPlanner()
	return cfg
}

func TestNewEngine_TextSplitOnly(t *testing.T) {
	e, err := NewEngine(context.Background(), testConfig(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.NotNil(t, e.Planner)
	assert.Nil(t, e.Weather)
	assert.Nil(t, e.completer)
}

func TestNewEngine_OpenAIWithFallback(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Provider = "openai"
	cfg.AI.OpenAIKey = "sk-test"
	cfg.AI.OpenAIBaseURL = "http://127.0.0.1:1/v1"
	cfg.Weather.Enabled = true
	kv := cache.NewMemoryStore(0, 0)

	e, err := NewEngine(context.Background(), cfg, kv, nil)
	require.NoError(t, err)
	defer e.Close()

	assert.NotNil(t, e.Weather)
	require.NotNil(t, e.completer)
	assert.Equal(t, "openai", e.completer.Name())

	src, err := e.newIntentSource(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, ok := src.(planner.FallbackIntentSource)
	assert.True(t, ok)
}

func TestNewEngine_GooglePlacesAndDirections(t *testing.T) {
	cfg := testConfig()
	cfg.Maps.Provider = "google"
	cfg.Maps.GoogleKey = "AIza-test"
	cfg.Maps.UseDirections = true

	e, err := NewEngine(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, e.Planner)
}

func TestNewEngine_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Maps.Provider = "bing"
	_, err := NewEngine(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.AI.Provider = "claude"
	_, err = NewEngine(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Planner.Timezone = "Mars/Olympus"
	_, err = NewEngine(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
