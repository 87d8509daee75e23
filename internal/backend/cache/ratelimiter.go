package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults for admin login throttling
const (
	DefaultMaxAttempts    = 5
	DefaultWindow         = 15 * time.Minute
	DefaultMemoryCapacity = 10000
)

// RateLimiter counts failures per key within a fixed window
type RateLimiter interface {
	// Allow reports whether the key may try again
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

const rateKeyPrefix = "ratelimit:"

// RedisRateLimiter counts with INCR and lets the window expire with EXPIRE NX,
// both sent in one MULTI/EXEC
type RedisRateLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewRedisRateLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Get(ctx, rateKeyPrefix+key).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read attempts of %s: %w", key, err)
	}
	return count < r.maxAttempts, nil
}

func (r *RedisRateLimiter) RecordFailure(ctx context.Context, key string) error {
	redisKey := rateKeyPrefix + key
	// the window starts with the first failure; NX also repairs a counter
	// that was left without a TTL
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record attempt of %s: %w", key, err)
	}
	return nil
}

func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, rateKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts of %s: %w", key, err)
	}
	return nil
}

type attemptEntry struct {
	key       string
	count     int
	expiresAt time.Time
}

// MemoryRateLimiter is a bounded LRU of attempt counters with expiry.
// The least recently used key is evicted once capacity is reached.
type MemoryRateLimiter struct {
	maxAttempts int
	window      time.Duration
	capacity    int
	now         func() time.Time

	mu      sync.Mutex
	items   map[string]*list.Element
	lruList *list.List
}

func NewMemoryRateLimiter(maxAttempts int, window time.Duration, capacity int) *MemoryRateLimiter {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		capacity:    capacity,
		now:         time.Now,
		items:       make(map[string]*list.Element),
		lruList:     list.New(),
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.get(key)
	if entry == nil {
		return true, nil
	}
	return entry.count < m.maxAttempts, nil
}

func (m *MemoryRateLimiter) RecordFailure(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry := m.get(key); entry != nil {
		entry.count++
		return nil
	}

	elem := m.lruList.PushFront(&attemptEntry{
		key:       key,
		count:     1,
		expiresAt: m.now().Add(m.window),
	})
	m.items[key] = elem

	if m.lruList.Len() > m.capacity {
		if oldest := m.lruList.Back(); oldest != nil {
			m.removeElement(oldest)
		}
	}
	return nil
}

func (m *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}
	return nil
}

// Size returns the number of tracked keys, expired ones included until touched
func (m *MemoryRateLimiter) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lruList.Len()
}

// get returns the live entry of key and marks it recently used. Caller holds mu.
func (m *MemoryRateLimiter) get(key string) *attemptEntry {
	elem, ok := m.items[key]
	if !ok {
		return nil
	}
	entry := elem.Value.(*attemptEntry)
	if !m.now().Before(entry.expiresAt) {
		m.removeElement(elem)
		return nil
	}
	m.lruList.MoveToFront(elem)
	return entry
}

func (m *MemoryRateLimiter) removeElement(elem *list.Element) {
	m.lruList.Remove(elem)
	delete(m.items, elem.Value.(*attemptEntry).key)
}

var (
	_ RateLimiter = (*RedisRateLimiter)(nil)
	_ RateLimiter = (*MemoryRateLimiter)(nil)
)
