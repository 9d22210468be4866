package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/taskbridge-backend/internal/logger"
)

// NewRedis creates a new Redis client and verifies connectivity.
// A failed ping is logged but not fatal: the cache is not the source
// of truth, every read path works without it.
func NewRedis(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithComponent("cache").WithError(err).Warn("redis недоступен, работаем без кэша")
	}

	return rdb
}
