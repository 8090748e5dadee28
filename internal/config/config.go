package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Feed struct {
		TTL      time.Duration // lifetime of a cached feed snapshot
		TopN     int           // ranked candidates kept per snapshot
		PoolCap  int           // max rows pulled from the store before ranking
		Deadline time.Duration // overall time limit for a cache-miss rebuild
	}

	Score struct {
		ProviderURL     string
		ProviderTimeout time.Duration
	}

	Match struct {
		ListTTL time.Duration // lifetime of a cached match-list snapshot
	}

	// Defaults is the preference window applied when a user has no
	// preference record. Wide open, so a missing record never empties
	// the feed.
	Defaults struct {
		AgeMin        int
		AgeMax        int
		MaxDistanceKm int // 0 = unlimited
		Interest      string
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "discovery_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "pairwise")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Feed
	cfg.Feed.TTL = getEnvDuration("FEED_TTL", 24*time.Hour)
	cfg.Feed.TopN = getEnvInt("FEED_TOP_N", 100)
	cfg.Feed.PoolCap = getEnvInt("FEED_POOL_CAP", 500)
	cfg.Feed.Deadline = getEnvDuration("FEED_DEADLINE", 5*time.Second)

	// Scoring provider
	cfg.Score.ProviderURL = getEnvDefault("SCORE_PROVIDER_URL", "")
	cfg.Score.ProviderTimeout = getEnvDuration("SCORE_PROVIDER_TIMEOUT", 2*time.Second)

	// Match list cache
	cfg.Match.ListTTL = getEnvDuration("MATCH_LIST_TTL", time.Hour)

	// Preference defaults
	cfg.Defaults.AgeMin = getEnvInt("DEFAULT_AGE_MIN", 18)
	cfg.Defaults.AgeMax = getEnvInt("DEFAULT_AGE_MAX", 99)
	cfg.Defaults.MaxDistanceKm = getEnvInt("DEFAULT_MAX_DISTANCE_KM", 0)
	cfg.Defaults.Interest = getEnvDefault("DEFAULT_INTEREST", "everyone")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
