package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/example/task-service/domain/task"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores JSON encoded values under string keys.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// CacheStats is a snapshot of the cache counters.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// RedisCache implements Cache on top of Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a new RedisCache.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.misses.Add(1)
			return false, nil
		}
		c.errors.Add(1)
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.errors.Add(1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	c.hits.Add(1)
	return true, nil
}

// Set stores a value in the cache with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Stats returns the current counters.
func (c *RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedRepository serves GetByID from a cache and delegates everything else
// to the wrapped repository. Entries are dropped whenever the task changes.
//
// Every write bumps the key's generation. A load only fills the cache when
// the generation it started under is still current, so a read that raced a
// write never puts the older row back.
type CachedRepository struct {
	Repository
	cache   Cache
	sfGroup singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

var _ Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps repo with cache.
func NewCachedRepository(repo Repository, cache Cache) *CachedRepository {
	return &CachedRepository{
		Repository:  repo,
		cache:       cache,
		generations: make(map[string]uint64),
	}
}

func cacheKey(id, ownerID string) string {
	return "task:" + ownerID + ":" + id
}

func (r *CachedRepository) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[key]
}

// GetByID returns the task from the cache, loading it from the store on a miss.
func (r *CachedRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	key := cacheKey(id, ownerID)

	var cached domain.Task
	found, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[task] Cache error for %s: %v", key, err)
	}
	if found {
		cached.Normalize()
		return &cached, nil
	}

	gen := r.generation(key)
	val, err, _ := r.sfGroup.Do(key, func() (any, error) {
		return r.Repository.GetByID(ctx, id, ownerID)
	})
	if err != nil {
		return nil, err
	}

	t, ok := val.(*domain.Task)
	if !ok || t == nil {
		return nil, nil
	}

	if r.generation(key) == gen {
		if err := r.cache.Set(ctx, key, t); err != nil {
			log.Printf("[task] Warning: failed to cache %s: %v", key, err)
		}
		// A write may have landed between the check and the Set.
		if r.generation(key) != gen {
			r.drop(ctx, key)
		}
	}

	// Callers may modify the task; the shared singleflight value must stay intact.
	out := *t
	return &out, nil
}

// Update updates the task and drops its cache entry.
func (r *CachedRepository) Update(ctx context.Context, id, ownerID string, in domain.Input) (*domain.Task, error) {
	t, err := r.Repository.Update(ctx, id, ownerID, in)
	r.invalidate(ctx, id, ownerID)
	return t, err
}

// Trash trashes the task and drops its cache entry.
func (r *CachedRepository) Trash(ctx context.Context, id, ownerID string) (string, error) {
	trashed, err := r.Repository.Trash(ctx, id, ownerID)
	r.invalidate(ctx, id, ownerID)
	return trashed, err
}

// invalidate runs after the write has committed. Loads already in flight
// are forgotten so later readers start a fresh one.
func (r *CachedRepository) invalidate(ctx context.Context, id, ownerID string) {
	key := cacheKey(id, ownerID)

	r.mu.Lock()
	r.generations[key]++
	r.mu.Unlock()
	r.sfGroup.Forget(key)

	r.drop(ctx, key)
}

func (r *CachedRepository) drop(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		log.Printf("[task] Warning: failed to invalidate %s: %v", key, err)
	}
}
