// Package config loads runtime configuration from environment variables.
// Required variables abort startup when missing; optional ones carry
// defaults matching the production deployment.
package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Config holds the process-wide settings. The JWT secret is loaded once
// here and read-only afterwards, which makes it safe for unsynchronized
// concurrent reads in the token service.
type Config struct {
	Env              string // dev | test | prod
	Port             string // HTTP listen port
	DBUser           string
	DBPass           string // optional
	DBHost           string
	DBPort           string
	DBName           string
	JWTSecret        string
	AccessTTLMin     int // access token lifetime, minutes (default 15)
	RefreshTTLDays   int // refresh token lifetime, days (default 7)
	SubscriptionDays int // stubbed purchase window, days (default 30)
	BcryptCost       int
	SweepIntervalMin int // refresh-token sweep period, minutes (default 60)
}

// Load reads the environment into a Config.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		AccessTTLMin:     intDefault("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:   intDefault("REFRESH_TOKEN_TTL_DAYS", 7),
		SubscriptionDays: intDefault("SUBSCRIPTION_DAYS", 30),
		BcryptCost:       intDefault("BCRYPT_COST", 12),
		SweepIntervalMin: intDefault("TOKEN_SWEEP_INTERVAL_MIN", 60),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("var", key).Msg("missing required env var")
	}
	return v
}

func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal().Str("var", key).Str("value", s).Msg("invalid integer env var")
	}
	return n
}
