package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupWindow bounds how long a provider message id is remembered.
// Redelivery after the window is treated as a new event.
const DedupWindow = 2 * time.Minute

const dedupKeyPrefix = "dedup:"

// DedupGuard suppresses duplicate webhook deliveries of the same event.
// MarkSeen is a single atomic check-and-mark: it returns true exactly once
// per event id within the dedup window, even under concurrent deliveries.
// Unmark releases a reservation so that when processing fails retryably,
// the provider's redelivery is not suppressed as a duplicate.
type DedupGuard interface {
	MarkSeen(ctx context.Context, eventID string) (bool, error)
	Unmark(ctx context.Context, eventID string) error
}

// RedisDedupGuard implements DedupGuard with SET NX so the check and the
// mark cannot be split by a concurrent duplicate. A small in-process cache
// in front absorbs rapid re-deliveries without a network round trip; it is
// an optimization only, the Redis key is what makes dedup hold across
// processes.
type RedisDedupGuard struct {
	client *redis.Client
	window time.Duration
	local  *localSeenCache
}

// NewRedisDedupGuard creates a Redis-backed dedup guard
func NewRedisDedupGuard(client *redis.Client) *RedisDedupGuard {
	return &RedisDedupGuard{
		client: client,
		window: DedupWindow,
		local:  newLocalSeenCache(DedupWindow),
	}
}

func (g *RedisDedupGuard) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	if g.local.seen(eventID) {
		return false, nil
	}

	first, err := g.client.SetNX(ctx, dedupKeyPrefix+eventID, 1, g.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}

	g.local.mark(eventID)
	return first, nil
}

func (g *RedisDedupGuard) Unmark(ctx context.Context, eventID string) error {
	g.local.forget(eventID)
	if err := g.client.Del(ctx, dedupKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("dedup release failed: %w", err)
	}
	return nil
}

// MemoryDedupGuard implements DedupGuard in-process, for development and tests
type MemoryDedupGuard struct {
	cache *localSeenCache
}

// NewMemoryDedupGuard creates an in-memory dedup guard
func NewMemoryDedupGuard() *MemoryDedupGuard {
	return &MemoryDedupGuard{cache: newLocalSeenCache(DedupWindow)}
}

func (g *MemoryDedupGuard) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	return g.cache.markSeen(eventID), nil
}

func (g *MemoryDedupGuard) Unmark(ctx context.Context, eventID string) error {
	g.cache.forget(eventID)
	return nil
}

// localSeenCache is a tiny TTL set of message ids
type localSeenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
}

func newLocalSeenCache(ttl time.Duration) *localSeenCache {
	return &localSeenCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

func (c *localSeenCache) seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.entries[id]
	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		delete(c.entries, id)
		return false
	}
	return true
}

func (c *localSeenCache) mark(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(id)
}

// markSeen is check-and-set under a single lock acquisition, so two
// concurrent duplicates cannot both observe the id as unseen
func (c *localSeenCache) markSeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.entries[id]
	if exists && time.Now().Before(expiry) {
		return false
	}

	c.markLocked(id)
	return true
}

func (c *localSeenCache) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *localSeenCache) markLocked(id string) {
	// Opportunistic sweep so the map does not grow unbounded
	if len(c.entries) > 1024 {
		now := time.Now()
		for k, expiry := range c.entries {
			if now.After(expiry) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[id] = time.Now().Add(c.ttl)
}
