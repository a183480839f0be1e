package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/keikapi/AIApp/internal/auth"
	"github.com/keikapi/AIApp/internal/chat"
	"github.com/keikapi/AIApp/internal/models"
)

type ChatHandler struct {
	responder
	store *chat.Store
	chat  *chat.Responder
}

func NewChatHandler(store *chat.Store, resp *chat.Responder, production bool) *ChatHandler {
	return &ChatHandler{responder: responder{production: production}, store: store, chat: resp}
}

type createSessionRequest struct {
	ResponseStyle string `json:"response_style,omitempty"`
	Language      string `json:"language,omitempty"`
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createSessionRequest
	if r.Body != nil {
		// Body is optional; defaults come from user preferences.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	prefs := user.Preferences
	if req.ResponseStyle != "" {
		prefs.ResponseStyle = req.ResponseStyle
	}
	if req.Language != "" {
		prefs.Language = req.Language
	}

	session, err := h.store.CreateSession(r.Context(), user.ID.String(), prefs)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	session, err := h.store.GetSession(r.Context(), user.ID.String(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type postMessageRequest struct {
	Message string `json:"message"`
}

// PostMessage runs one chat turn: retrieve, generate, then persist both the
// user turn and the assistant reply. Nothing is persisted when generation
// fails.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message required"})
		return
	}

	userID := user.ID.String()
	session, err := h.store.GetSession(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	userMsg := models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
	}

	reply, err := h.chat.Respond(r.Context(), session, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrGeneration) {
			h.fail(w, http.StatusBadGateway, err)
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	if err := h.store.AppendMessage(r.Context(), userID, userMsg); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.store.AppendMessage(r.Context(), userID, *reply); err != nil {
		// The user turn is already stored; surface the reply anyway.
		slog.Error("persist assistant message failed", "session_id", session.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, reply)
}
