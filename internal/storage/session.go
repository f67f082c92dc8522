package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tastoria/tastoria-backend/internal/models"
)

// SessionTTL is the inactivity window after which a conversation expires
const SessionTTL = 30 * time.Minute

const sessionKeyPrefix = "session:"

// SessionStore persists one conversation session per customer as a JSON
// blob with a TTL refreshed on every write. Absence is not an error:
// Get returns (nil, nil) and callers start a fresh idle session.
type SessionStore interface {
	Get(ctx context.Context, customerID string) (*models.Session, error)
	Set(ctx context.Context, customerID string, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, customerID string) error
}

// RedisSessionStore implements SessionStore on a shared Redis instance so
// multiple server processes see the same conversation state
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Get(ctx context.Context, customerID string) (*models.Session, error) {
	val, err := s.client.Get(ctx, sessionKeyPrefix+customerID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("corrupt session for %s: %w", customerID, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, customerID string, session *models.Session, ttl time.Duration) error {
	val, err := json.Marshal(session)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+customerID, val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, customerID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+customerID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return nil
}

// MemorySessionStore implements SessionStore with an in-process map.
// Only for local development and tests, never multi-process deployments.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySessionEntry
}

type memorySessionEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySessionEntry),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, customerID string) (*models.Session, error) {
	s.mu.RLock()
	entry, exists := s.sessions[customerID]
	s.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	var session models.Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, customerID string, session *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[customerID] = memorySessionEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, customerID)
	return nil
}
