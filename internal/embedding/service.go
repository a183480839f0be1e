package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keikapi/AIApp/internal/llm"
)

// ErrEmptyInput is returned before any service call when there is nothing to
// embed.
var ErrEmptyInput = errors.New("empty embedding input")

type Service struct {
	gateway llm.Gateway
	model   string
}

func NewService(gw llm.Gateway, model string) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{gateway: gw, model: model}
}

// EmbedText returns the fixed-length vector for a single text. Zero-length
// input is rejected locally, no external call is made.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, ErrEmptyInput
	}

	resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
		Model: s.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embeddings[0], nil
}
