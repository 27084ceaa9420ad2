// README: Chat-completion providers (Gemini, OpenAI-compatible) used for intent extraction.
package ai

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "aisingapore/Gemma-SEA-LION-v4-27B-IT"
)

// ErrDisabled is returned by New when no completion provider is configured.
var ErrDisabled = errors.New("ai provider disabled")

// Provider is a chat-completion backend. It satisfies planner.Completer.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
	Close() error
}

type Options struct {
	// Provider is "gemini", "openai" or "none".
	Provider      string
	GeminiKey     string
	GeminiModel   string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// New builds the provider selected by opts.Provider.
func New(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, opts.GeminiKey, opts.GeminiModel)
	case "openai":
		return NewOpenAIProvider(opts.OpenAIKey, opts.OpenAIBaseURL, opts.OpenAIModel), nil
	case "", "none":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}
