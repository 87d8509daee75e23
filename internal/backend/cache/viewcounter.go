package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ViewCounter keeps a view count per record id
type ViewCounter interface {
	Increment(ctx context.Context, id string) (int64, error)
	// Counts returns the count of every requested id; unknown ids count zero
	Counts(ctx context.Context, ids []string) (map[string]int64, error)
	Forget(ctx context.Context, id string) error
}

const viewKeyPrefix = "views:"

// RedisViewCounter stores counts as views:<id> integer keys
type RedisViewCounter struct {
	client redis.UniversalClient
}

func NewRedisViewCounter(client redis.UniversalClient) *RedisViewCounter {
	return &RedisViewCounter{client: client}
}

func (r *RedisViewCounter) Increment(ctx context.Context, id string) (int64, error) {
	views, err := r.client.Incr(ctx, viewKeyPrefix+id).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment views of %s: %w", id, err)
	}
	return views, nil
}

func (r *RedisViewCounter) Counts(ctx context.Context, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = viewKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load view counts: %w", err)
	}

	for i, v := range values {
		counts[ids[i]] = parseCount(v)
	}
	return counts, nil
}

func (r *RedisViewCounter) Forget(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, viewKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to remove views of %s: %w", id, err)
	}
	return nil
}

func parseCount(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ViewStore is the part of the record store that tracks views
type ViewStore interface {
	IncrementViews(ctx context.Context, id string) (int64, error)
	ViewCounts(ctx context.Context, ids []string) (map[string]int64, error)
}

// StoreViewCounter keeps counts in the views column of the record store
type StoreViewCounter struct {
	store ViewStore
}

func NewStoreViewCounter(store ViewStore) *StoreViewCounter {
	return &StoreViewCounter{store: store}
}

func (s *StoreViewCounter) Increment(ctx context.Context, id string) (int64, error) {
	return s.store.IncrementViews(ctx, id)
}

func (s *StoreViewCounter) Counts(ctx context.Context, ids []string) (map[string]int64, error) {
	found, err := s.store.ViewCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		counts[id] = found[id]
	}
	return counts, nil
}

// Forget is a no-op, the count is deleted together with its record
func (s *StoreViewCounter) Forget(context.Context, string) error {
	return nil
}
