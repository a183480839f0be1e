package llm

import (
	"context"
)

// Provider abstracts a managed generation/embedding service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Name() string
}

// Gateway routes requests to a configured provider. A single gateway instance
// is shared process-wide and injected into the pipelines.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Provider(name string) (Provider, error)
}

// CompletionRequest is a single-prompt completion. The prompt carries the full
// assembled context; each call is one blocking round trip, no streaming.
type CompletionRequest struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type CompletionResponse struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Content     string `json:"content"`
	TotalTokens int    `json:"total_tokens"`
}

type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbeddingResponse struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
	Tokens     int         `json:"tokens"`
}
