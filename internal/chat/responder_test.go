package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/llm"
	"github.com/keikapi/AIApp/internal/models"
	"github.com/keikapi/AIApp/internal/searchindex"
)

type stubIndex struct {
	hits []searchindex.Hit
	err  error
	topK int
}

func (s *stubIndex) EnsureCollection(_ context.Context) error { return nil }

func (s *stubIndex) Upsert(_ context.Context, _ searchindex.Entry) error { return nil }

func (s *stubIndex) Search(_ context.Context, _ string, topK int) ([]searchindex.Hit, error) {
	s.topK = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type stubGateway struct {
	lastReq llm.CompletionRequest
	content string
	err     error
}

func (g *stubGateway) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.CompletionResponse{Content: g.content}, nil
}

func (g *stubGateway) Embed(_ context.Context, _ llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) Provider(_ string) (llm.Provider, error) {
	return nil, errors.New("not used")
}

func newTestResponder(index *stubIndex, gw *stubGateway) *Responder {
	return NewResponder(index, gw, config.LLMConfig{
		CompletionModel: "gpt-4o-mini",
		MaxTokens:       1024,
		Temperature:     0.7,
	}, config.ChatConfig{TopK: 5, HistoryWindow: 5})
}

func formalSession(messages ...models.ChatMessage) *models.ChatSession {
	return &models.ChatSession{
		ID:          "session-1",
		UserID:      "alice",
		Preferences: models.Preferences{ResponseStyle: models.StyleFormal, Language: "en"},
		Messages:    messages,
	}
}

func userTurn(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleUser, Content: content, Timestamp: time.Now()}
}

func assistantTurn(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleAssistant, Content: content, Timestamp: time.Now()}
}

func TestRespondWithRetrievedContext(t *testing.T) {
	index := &stubIndex{hits: []searchindex.Hit{
		{ID: "1-report.txt", Score: 2.1, Text: "revenue grew 12 percent"},
		{ID: "2-memo.txt", Score: 1.4, Text: "costs were flat"},
	}}
	gw := &stubGateway{content: "Revenue grew 12 percent while costs stayed flat."}
	r := newTestResponder(index, gw)

	reply, err := r.Respond(context.Background(), formalSession(), "how did revenue do?")
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "session-1", reply.SessionID)
	assert.Equal(t, gw.content, reply.Content)
	require.NotNil(t, reply.Metadata)
	assert.Equal(t, []string{"1-report.txt", "2-memo.txt"}, reply.Metadata.DocumentIDs)

	assert.Equal(t, 5, index.topK)
	assert.Contains(t, gw.lastReq.Prompt, "Reference material:")
	assert.Contains(t, gw.lastReq.Prompt, "- revenue grew 12 percent")
	assert.Contains(t, gw.lastReq.Prompt, "- costs were flat")
	assert.Contains(t, gw.lastReq.Prompt, "Human: how did revenue do?\nAssistant:")
}

func TestRespondPassesGenerationParameters(t *testing.T) {
	gw := &stubGateway{content: "ok"}
	r := newTestResponder(&stubIndex{}, gw)

	_, err := r.Respond(context.Background(), formalSession(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", gw.lastReq.Model)
	assert.Equal(t, 1024, gw.lastReq.MaxTokens)
	assert.InDelta(t, 0.7, gw.lastReq.Temperature, 1e-9)
	assert.Equal(t, []string{"\n\nHuman:"}, gw.lastReq.Stop)
}

func TestRespondHistoryWindow(t *testing.T) {
	var msgs []models.ChatMessage
	for i := 1; i <= 12; i++ {
		if i%2 == 1 {
			msgs = append(msgs, userTurn(fmt.Sprintf("question %d", i)))
		} else {
			msgs = append(msgs, assistantTurn(fmt.Sprintf("answer %d", i)))
		}
	}
	gw := &stubGateway{content: "ok"}
	r := newTestResponder(&stubIndex{}, gw)

	_, err := r.Respond(context.Background(), formalSession(msgs...), "next question")
	require.NoError(t, err)

	// Only the last five turns make it into the prompt.
	assert.NotContains(t, gw.lastReq.Prompt, "question 7")
	assert.Contains(t, gw.lastReq.Prompt, "answer 8")
	assert.Contains(t, gw.lastReq.Prompt, "question 9")
	assert.Contains(t, gw.lastReq.Prompt, "answer 12")
}

func TestRespondShortHistoryKeptWhole(t *testing.T) {
	gw := &stubGateway{content: "ok"}
	r := newTestResponder(&stubIndex{}, gw)

	session := formalSession(userTurn("first"), assistantTurn("second"))
	_, err := r.Respond(context.Background(), session, "third")
	require.NoError(t, err)

	assert.Contains(t, gw.lastReq.Prompt, "Human: first")
	assert.Contains(t, gw.lastReq.Prompt, "Assistant: second")
}

func TestRespondNoHitsOmitsReferenceSection(t *testing.T) {
	gw := &stubGateway{content: "I don't have documents on that."}
	r := newTestResponder(&stubIndex{}, gw)

	reply, err := r.Respond(context.Background(), formalSession(), "anything?")
	require.NoError(t, err)

	assert.NotContains(t, gw.lastReq.Prompt, "Reference material:")
	require.NotNil(t, reply.Metadata)
	assert.NotNil(t, reply.Metadata.DocumentIDs)
	assert.Empty(t, reply.Metadata.DocumentIDs)
}

func TestRespondRetrievalFailureDegrades(t *testing.T) {
	index := &stubIndex{err: errors.New("search backend down")}
	gw := &stubGateway{content: "answering from memory"}
	r := newTestResponder(index, gw)

	reply, err := r.Respond(context.Background(), formalSession(), "still there?")
	require.NoError(t, err)

	assert.Equal(t, "answering from memory", reply.Content)
	assert.NotContains(t, gw.lastReq.Prompt, "Reference material:")
	assert.Empty(t, reply.Metadata.DocumentIDs)
}

func TestRespondGenerationFailure(t *testing.T) {
	gw := &stubGateway{err: errors.New("model overloaded")}
	r := newTestResponder(&stubIndex{}, gw)

	reply, err := r.Respond(context.Background(), formalSession(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Nil(t, reply)
}

func TestRespondStyleDirective(t *testing.T) {
	gw := &stubGateway{content: "ok"}
	r := newTestResponder(&stubIndex{}, gw)

	_, err := r.Respond(context.Background(), formalSession(), "hi")
	require.NoError(t, err)
	assert.Contains(t, gw.lastReq.Prompt, "courteous and professional")

	casual := formalSession()
	casual.Preferences.ResponseStyle = models.StyleCasual
	_, err = r.Respond(context.Background(), casual, "hi")
	require.NoError(t, err)
	assert.Contains(t, gw.lastReq.Prompt, "friendly and approachable")
}

func TestBuildPromptOrdering(t *testing.T) {
	r := newTestResponder(&stubIndex{}, &stubGateway{})
	session := formalSession(userTurn("earlier question"))

	prompt := r.buildPrompt(session, "new question", []searchindex.Hit{{ID: "1", Text: "a passage"}})

	refIdx := indexOf(t, prompt, "Reference material:")
	histIdx := indexOf(t, prompt, "Conversation history:")
	newIdx := indexOf(t, prompt, "Human: new question")

	assert.Less(t, refIdx, histIdx)
	assert.Less(t, histIdx, newIdx)
	assert.True(t, strings.HasSuffix(prompt, "Assistant:"))
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	idx := strings.Index(s, sub)
	require.GreaterOrEqual(t, idx, 0, "%q not found in prompt", sub)
	return idx
}
