package swipe

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/notify"
)

// Registrar ties the swipe service into the HTTP router
type Registrar struct {
	appCtx   *app.AppContext
	notifier notify.Notifier
}

// NewRegistrar creates a new Registrar for the swipe service
func NewRegistrar(appCtx *app.AppContext, notifier notify.Notifier) *Registrar {
	return &Registrar{appCtx: appCtx, notifier: notifier}
}

type swipeRequest struct {
	ActorID  uint64 `json:"actor_id" binding:"required"`
	TargetID uint64 `json:"target_id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
}

type invalidateRequest struct {
	Scopes []string `json:"scopes"`
}

// Register attaches the swipe endpoints to the router group
func (r *Registrar) Register(g *gin.RouterGroup) {
	svc := NewSwipeService(r.appCtx, r.notifier)

	g.POST("/swipes", func(c *gin.Context) {
		var req swipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		res, err := svc.RecordSwipe(c.Request.Context(), req.ActorID, req.TargetID, db.Decision(req.Decision))
		if err != nil {
			c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		body := gin.H{"swipe_id": res.SwipeID, "matched": res.Matched}
		if res.Matched {
			body["match_id"] = res.MatchID
		}
		c.JSON(200, body)
	})

	g.POST("/users/:id/cache-invalidations", func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "id must be a valid uint64"})
			return
		}

		var req invalidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		scopes := make([]cache.Scope, 0, len(req.Scopes))
		for _, s := range req.Scopes {
			scopes = append(scopes, cache.Scope(s))
		}

		if err := svc.InvalidateUserCaches(c.Request.Context(), userID, scopes); err != nil {
			c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"invalidated": true})
	})
}
