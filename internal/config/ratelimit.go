package config

import (
	"os"
	"time"
)

// RateLimitConfig tunes the Redis token-bucket limiter. TTL is the idle
// lifetime of a bucket key and is clamped to several refill intervals so
// buckets do not vanish between refills.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimitConfig reads limiter settings; defaults allow a burst of
// 60 with one request per second refill.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolDefault("RATE_LIMIT_ENABLED", true),
		Capacity:       intDefault("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   intDefault("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durDefault("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            durDefault("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         strDefault("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func envStr(key string) string { return os.Getenv(key) }

func boolDefault(key string, def bool) bool {
	switch envStr(key) {
	case "1", "true", "TRUE", "yes", "on":
		return true
	case "0", "false", "FALSE", "no", "off":
		return false
	default:
		return def
	}
}
