package llm

import (
	"context"
	"fmt"

	"github.com/keikapi/AIApp/internal/config"
)

type gateway struct {
	providers       map[string]Provider
	defaultProvider string
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.DefaultProvider,
	}

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}

	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	name := req.Provider
	if name == "" {
		name = g.defaultProvider
	}
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}
	return p.Complete(ctx, req)
}

// Embed always routes to openai; it is the only configured provider with an
// embedding endpoint.
func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	p, err := g.Provider("openai")
	if err != nil {
		return nil, fmt.Errorf("embeddings unavailable: %w", err)
	}
	return p.Embed(ctx, req)
}
