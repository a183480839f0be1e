package models

import (
	"time"
)

type ChatSession struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Preferences  Preferences   `json:"preferences"`
	Messages     []ChatMessage `json:"messages"`
}

type Preferences struct {
	ResponseStyle string `json:"response_style"` // "formal" or "casual"
	Language      string `json:"language"`
}

type ChatMessage struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Role      string           `json:"role"` // "user" or "assistant"
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

type MessageMetadata struct {
	DocumentIDs []string `json:"document_ids"`
	Confidence  float64  `json:"confidence,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	StyleFormal = "formal"
	StyleCasual = "casual"
)
