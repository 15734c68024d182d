package config

import "time"

// CacheConfig tunes the Redis response cache applied to public GET
// routes. MaxBodyBytes bounds what gets cached; larger responses are
// served but skipped.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings with defaults suited to catalogue
// pages (short TTL, cache invalidation by expiry only).
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      boolDefault("CACHE_ENABLED", true),
		TTL:          durDefault("CACHE_TTL", 30*time.Second),
		Prefix:       strDefault("CACHE_PREFIX", "cache"),
		MaxBodyBytes: intDefault("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func strDefault(key, def string) string {
	if v := envStr(key); v != "" {
		return v
	}
	return def
}

func durDefault(key string, def time.Duration) time.Duration {
	v := envStr(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
