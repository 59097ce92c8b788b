package ai

import (
	"context"
	"testing"
)

func TestNewProvider(t *testing.T) {
	g, closer, err := New(context.Background(), Config{})
	if err != nil || g != nil || closer == nil {
		t.Fatalf("no provider: got %v, %v, %v", g, closer, err)
	}

	g, _, err = New(context.Background(), Config{Provider: "http", Endpoint: "http://localhost:9/generate"})
	if err != nil {
		t.Fatalf("http provider: %v", err)
	}
	if _, ok := g.(*HTTPGenerator); !ok {
		t.Fatalf("http provider type = %T", g)
	}

	g, _, err = New(context.Background(), Config{Provider: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("openai provider: %v", err)
	}
	if _, ok := g.(*OpenAIGenerator); !ok {
		t.Fatalf("openai provider type = %T", g)
	}

	for _, cfg := range []Config{
		{Provider: "http"},
		{Provider: "openai"},
		{Provider: "gemini"},
		{Provider: "watson"},
	} {
		if _, _, err := New(context.Background(), cfg); err == nil {
			t.Errorf("New(%+v): expected error", cfg)
		}
	}
}
