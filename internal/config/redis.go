package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient connects to Redis using REDIS_ADDR (host:port, default
// localhost:6379), REDIS_PASSWORD and REDIS_DB. Redis backs the rate
// limiter and the response cache only; when it is unreachable the
// function returns nil and both middlewares degrade to pass-throughs
// rather than blocking startup.
func NewRedisClient() *redis.Client {
	addr := strDefault("REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD"),
		DB:       intDefault("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, cache and rate limiting disabled")
		return nil
	}
	return client
}
