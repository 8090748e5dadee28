package feed

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pairwise/discovery-engine/internal/app"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/scoring"
)

// Registrar ties the feed service into the HTTP router
type Registrar struct {
	appCtx   *app.AppContext
	provider scoring.Provider
}

// NewRegistrar creates a new Registrar for the feed service
func NewRegistrar(appCtx *app.AppContext, provider scoring.Provider) *Registrar {
	return &Registrar{appCtx: appCtx, provider: provider}
}

// Register attaches the feed endpoints to the router group
func (r *Registrar) Register(g *gin.RouterGroup) {
	svc := NewFeedService(r.appCtx, r.provider)

	g.GET("/users/:id/feed", func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "id must be a valid uint64"})
			return
		}
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		entries, err := svc.GetFeed(c.Request.Context(), userID, offset, limit)
		if err != nil {
			c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{
			"user_id":    userID,
			"offset":     offset,
			"limit":      limit,
			"candidates": entries,
		})
	})
}
