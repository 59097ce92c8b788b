package ai

import (
	"context"
	"fmt"
	"io"
	"time"

	"quizmaster-backend/internal/models"
)

// Generator is implemented by every provider in this package.
type Generator interface {
	GenerateQuestions(ctx context.Context, topic string, count int, difficulty string) ([]models.Question, error)
}

type Config struct {
	Provider       string // "gemini" | "openai" | "http" | "" for none
	Endpoint       string
	APIKey         string
	Model          string
	Timeout        time.Duration
	ConcurrentReqs int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured provider. It returns a nil Generator when no
// provider is configured; callers treat that as "AI unavailable".
func New(ctx context.Context, cfg Config) (Generator, io.Closer, error) {
	switch cfg.Provider {
	case "":
		return nil, nopCloser{}, nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("ai: gemini provider needs an API key")
		}
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.ConcurrentReqs)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("ai: openai provider needs an API key")
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.Endpoint), nopCloser{}, nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, nil, fmt.Errorf("ai: http provider needs an endpoint")
		}
		return NewHTTPGenerator(cfg.Endpoint, cfg.APIKey, cfg.Timeout), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
}
