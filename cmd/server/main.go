package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/config"
	"github.com/driftline/label-platform/internal/database"
	"github.com/driftline/label-platform/internal/handler"
	"github.com/driftline/label-platform/internal/jobs"
	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/queue"
	"github.com/driftline/label-platform/internal/repository"
	"github.com/driftline/label-platform/internal/router"
	"github.com/driftline/label-platform/internal/validator"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	cfg := config.Load()
	if cfg.Env == "prod" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokenRows := repository.NewTokenRepo(db)
	releases := repository.NewReleaseRepo(db)
	posts := repository.NewPostRepo(db)
	polls := repository.NewPollRepo(db)
	merch := repository.NewMerchRepo(db)
	demos := repository.NewDemoRepo(db)

	tokens := auth.NewTokenService(
		cfg.JWTSecret,
		tokenRows,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Deps{
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Subscription: handler.NewSubscriptionHandler(cfg, users),
		Releases:     handler.NewReleaseHandler(releases),
		Posts:        handler.NewPostHandler(posts),
		Polls:        handler.NewPollHandler(polls),
		Merch:        handler.NewMerchHandler(merch),
		Demos:        handler.NewDemoHandler(demos),
		Authenticate: middleware.Authenticate(tokens, users),
		Cache:        middleware.CacheResponses(config.LoadCacheConfig(), rdb),
		RateLimit:    middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.StartTokenSweeper(ctx, tokens, time.Duration(cfg.SweepIntervalMin)*time.Minute)
	go func() {
		if err := queue.StartDemoConsumer(); err != nil {
			log.Warn().Err(err).Msg("demo consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
