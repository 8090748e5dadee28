package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pairwise/discovery-engine/internal/config"
	"github.com/pairwise/discovery-engine/internal/logger"
)

// Registrar is a common interface for all HTTP service registrars
type Registrar interface {
	Register(r *gin.RouterGroup)
}

// StartHTTPServer boots the HTTP server and registers all provided services
func StartHTTPServer(cfg *config.Config, registrars ...Registrar) error {
	if cfg.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	v1 := router.Group("/v1")
	for _, r := range registrars {
		r.Register(v1)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	logger.Info("starting http server", "addr", addr)
	return router.Run(addr)
}

// requestID tags every request so log lines from one call correlate.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
