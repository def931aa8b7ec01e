package auth

import (
	"context"
	"sync"
	"time"

	"github.com/sahilchouksey/coursehub-api/utils/cache"
)

// RefreshRegistry records consumed refresh-token ids. Consume returns
// false when the id was already used.
type RefreshRegistry interface {
	Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	Purge(ctx context.Context) int
}

// RedisRefreshRegistry stores consumed ids as keys expiring with the token
type RedisRefreshRegistry struct {
	cache *cache.RedisCache
}

func NewRedisRefreshRegistry(c *cache.RedisCache) *RedisRefreshRegistry {
	return &RedisRefreshRegistry{cache: c}
}

func (r *RedisRefreshRegistry) Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.cache.SetNX(ctx, "refresh:used:"+jti, "1", ttl)
}

// Purge is a no-op, Redis expires keys itself
func (r *RedisRefreshRegistry) Purge(context.Context) int { return 0 }

// MemoryRefreshRegistry keeps consumed ids in process memory
type MemoryRefreshRegistry struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewMemoryRefreshRegistry() *MemoryRefreshRegistry {
	return &MemoryRefreshRegistry{used: make(map[string]time.Time)}
}

func (r *MemoryRefreshRegistry) Consume(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.used[jti]; ok {
		return false, nil
	}
	r.used[jti] = expiresAt
	return true, nil
}

// Purge drops ids whose token has expired and returns how many were removed
func (r *MemoryRefreshRegistry) Purge(context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for jti, exp := range r.used {
		if now.After(exp) {
			delete(r.used, jti)
			removed++
		}
	}
	return removed
}
