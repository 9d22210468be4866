package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/taskbridge-backend/internal/logger"
)

// TTLs chosen by data volatility: lists change on every mutation,
// profile views change rarely, platform stats are nearly static.
const (
	TTLList   = 60 * time.Second
	TTLEntity = 5 * time.Minute
	TTLStats  = 15 * time.Minute
)

// Store is a Redis-backed cache with JSON values and per-key TTL.
// The backend offers get/set/delete only - no pattern or tag deletes.
// All failures degrade to a cache miss and are never surfaced to callers.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a cache store on top of an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get reads a key and unmarshals the JSON value into dest.
// Returns false on miss, on expired key and on any backend failure.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache value unmarshal failed")
		return false
	}

	return true
}

// Set stores a value under key with the given TTL. Failures are swallowed.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache value marshal failed")
		return
	}

	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Delete removes a key. The error is returned for logging purposes only;
// callers must not fail a committed mutation because of it.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// SetNX stores a marker key only if it does not exist yet.
// Returns true if the key was set. On backend failure it returns true:
// the marker is a rate-limit aid, and a broken cache must not lock users out.
func (s *Store) SetNX(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("cache setnx failed")
		return true
	}
	return ok
}

// TTL returns the remaining lifetime of a key. ok=false when the key
// does not exist or the backend failed.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

// GetOrSet reads a cached value or computes and stores it on miss.
// The second return value reports whether the value came from cache.
func GetOrSet[T any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func() (T, error)) (T, bool, error) {
	var cached T
	if s != nil && s.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	value, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}

	if s != nil {
		s.Set(ctx, key, value, ttl)
	}

	return value, false, nil
}
