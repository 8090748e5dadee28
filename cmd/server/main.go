package main

import (
	"context"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/config"
	"github.com/pairwise/discovery-engine/internal/db"
	"github.com/pairwise/discovery-engine/internal/logger"
	"github.com/pairwise/discovery-engine/internal/notify"
	"github.com/pairwise/discovery-engine/internal/scoring"
	"github.com/pairwise/discovery-engine/internal/server"
	"github.com/pairwise/discovery-engine/internal/service/feed"
	"github.com/pairwise/discovery-engine/internal/service/match"
	"github.com/pairwise/discovery-engine/internal/service/swipe"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	// Scoring provider; without a URL every feed ranks on the neutral
	// fallback.
	var provider scoring.Provider = scoring.Unavailable{}
	if cfg.Score.ProviderURL != "" {
		provider = scoring.NewHTTPProvider(cfg.Score.ProviderURL, cfg.Score.ProviderTimeout)
	} else {
		log.Warn("no scoring provider configured, feeds use neutral scores")
	}

	notifier := notify.NewRedisNotifier(redisCache, log)

	registrars := []server.Registrar{
		feed.NewRegistrar(appCtx, provider),
		swipe.NewRegistrar(appCtx, notifier),
		match.NewRegistrar(appCtx),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start http server", "err", err)
	}
}
