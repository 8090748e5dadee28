package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/config"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Config)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Cfg        *config.Config
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, cfg *config.Config) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Cfg:        cfg,
	}
}
