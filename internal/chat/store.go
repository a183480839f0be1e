package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/keikapi/AIApp/internal/models"
)

// ErrSessionNotFound is returned when a session id does not exist (or has
// expired) for the given user.
var ErrSessionNotFound = errors.New("chat session not found")

// Store keeps chat sessions in Redis: one key per session holding the
// metadata, one sorted set per session holding messages scored by timestamp.
// Both carry a TTL so idle conversations expire on their own.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:session:%s:%s", userID, sessionID)
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("chat:messages:%s", sessionID)
}

type sessionMeta struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`
	Preferences  models.Preferences `json:"preferences"`
}

func (s *Store) CreateSession(ctx context.Context, userID string, prefs models.Preferences) (*models.ChatSession, error) {
	if prefs.ResponseStyle == "" {
		prefs.ResponseStyle = models.StyleFormal
	}
	if prefs.Language == "" {
		prefs.Language = "en"
	}

	now := time.Now()
	meta := sessionMeta{
		ID:           uuid.New().String(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Preferences:  prefs,
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(userID, meta.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &models.ChatSession{
		ID:           meta.ID,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Preferences:  prefs,
	}, nil
}

func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	data, err := s.client.Get(ctx, sessionKey(userID, sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var meta sessionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	raw, err := s.client.ZRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, m)
	}

	return &models.ChatSession{
		ID:           meta.ID,
		UserID:       meta.UserID,
		CreatedAt:    meta.CreatedAt,
		LastActivity: meta.LastActivity,
		Preferences:  meta.Preferences,
		Messages:     messages,
	}, nil
}

// AppendMessage adds one message to the session's time-ordered list and
// refreshes the session TTL.
func (s *Store) AppendMessage(ctx context.Context, userID string, msg models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	msgKey := messagesKey(msg.SessionID)
	sessKey := sessionKey(userID, msg.SessionID)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, msgKey, redis.Z{
		Score:  float64(msg.Timestamp.UnixNano()),
		Member: data,
	})
	pipe.Expire(ctx, msgKey, s.ttl)
	pipe.Expire(ctx, sessKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	return s.touch(ctx, sessKey)
}

func (s *Store) touch(ctx context.Context, sessKey string) error {
	data, err := s.client.Get(ctx, sessKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("touch session: %w", err)
	}

	var meta sessionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return fmt.Errorf("unmarshal session: %w", err)
	}
	meta.LastActivity = time.Now()

	updated, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, sessKey, updated, s.ttl).Err()
}
