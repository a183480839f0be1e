package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/llm"
	"github.com/keikapi/AIApp/internal/models"
	"github.com/keikapi/AIApp/internal/searchindex"
)

// ErrGeneration means the generation service call failed. Nothing is appended
// to the session when this is returned.
var ErrGeneration = errors.New("response generation failed")

// stopSequence marks end-of-turn for the completion model.
const stopSequence = "\n\nHuman:"

// Responder answers a chat turn with retrieval-augmented generation: retrieve
// relevant passages, assemble a grounded prompt, complete it. Retrieval runs
// to completion (or degrades to zero results) before the prompt is built;
// generation never sees a partially retrieved set.
type Responder struct {
	index         searchindex.Index
	gateway       llm.Gateway
	model         string
	maxTokens     int
	temperature   float64
	topK          int
	historyWindow int
}

func NewResponder(index searchindex.Index, gw llm.Gateway, cfg config.LLMConfig, chatCfg config.ChatConfig) *Responder {
	topK := chatCfg.TopK
	if topK <= 0 {
		topK = 5
	}
	window := chatCfg.HistoryWindow
	if window <= 0 {
		window = 5
	}
	return &Responder{
		index:         index,
		gateway:       gw,
		model:         cfg.CompletionModel,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topK:          topK,
		historyWindow: window,
	}
}

// Respond produces the assistant message for a new user turn. A retrieval
// failure degrades to an empty-context prompt rather than blocking the user;
// a generation failure aborts and leaves the session untouched.
func (r *Responder) Respond(ctx context.Context, session *models.ChatSession, userMessage string) (*models.ChatMessage, error) {
	hits, err := r.index.Search(ctx, userMessage, r.topK)
	if err != nil {
		slog.Warn("retrieval failed, answering without context",
			"session_id", session.ID, "error", err)
		hits = nil
	}

	prompt := r.buildPrompt(session, userMessage, hits)

	resp, err := r.gateway.Complete(ctx, llm.CompletionRequest{
		Model:       r.model,
		Prompt:      prompt,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		Stop:        []string{stopSequence},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	documentIDs := make([]string, len(hits))
	for i, h := range hits {
		documentIDs[i] = h.ID
	}

	return &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now(),
		Metadata: &models.MessageMetadata{
			DocumentIDs: documentIDs,
		},
	}, nil
}

// buildPrompt renders a single text block: style directive, retrieved passages
// in ranked order, the most recent history turns, then the new user message.
func (r *Responder) buildPrompt(session *models.ChatSession, userMessage string, hits []searchindex.Hit) string {
	var sb strings.Builder

	style := "courteous and professional"
	if session.Preferences.ResponseStyle == models.StyleCasual {
		style = "friendly and approachable"
	}
	fmt.Fprintf(&sb, "You are a %s AI assistant. Answer the user's question using the information below.\n\n", style)

	if len(hits) > 0 {
		sb.WriteString("Reference material:\n")
		for _, h := range hits {
			fmt.Fprintf(&sb, "- %s\n", h.Text)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Conversation history:\n")
	history := session.Messages
	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", speaker(msg.Role), msg.Content)
	}

	fmt.Fprintf(&sb, "\nHuman: %s\nAssistant:", userMessage)
	return sb.String()
}

func speaker(role string) string {
	if role == models.RoleUser {
		return "Human"
	}
	return "Assistant"
}
