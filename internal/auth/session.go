package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCookie is the name of the dashboard session cookie.
const SessionCookie = "aerosky_session"

const sessionKeyPrefix = "session:"

// SessionData is what a session record carries: a subject reference only.
// Role and organization are re-read from the identity row on every request.
type SessionData struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Login      string    `json:"login"`
	Email      string    `json:"email,omitempty"`
}

// SessionStore keeps dashboard sessions in Redis, keyed by an opaque id
// carried in the session cookie.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores a new session and returns its opaque id.
func (s *SessionStore) Create(ctx context.Context, data SessionData) (string, error) {
	id := uuid.New().String()
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+id, body, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the session data for an id, or nil when absent or expired.
func (s *SessionStore) Get(ctx context.Context, id string) (*SessionData, error) {
	if id == "" {
		return nil, nil
	}
	body, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data SessionData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, nil
	}
	return &data, nil
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// TTL returns the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
