package match

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pairwise/discovery-engine/internal/app"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
)

// Registrar ties the match service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the match endpoints to the router group
func (r *Registrar) Register(g *gin.RouterGroup) {
	svc := NewMatchService(r.appCtx)

	g.GET("/users/:id/matches", func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "id must be a valid uint64"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		var token *string
		if t := c.Query("page_token"); t != "" {
			token = &t
		}

		entries, next, err := svc.ListMatches(c.Request.Context(), userID, token, limit)
		if err != nil {
			c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		body := gin.H{"matches": entries}
		if next != nil {
			body["next_page_token"] = *next
		}
		c.JSON(200, body)
	})

	g.DELETE("/matches/:id", func(c *gin.Context) {
		matchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "id must be a valid uint64"})
			return
		}
		userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "user_id must be a valid uint64"})
			return
		}

		if err := svc.Unmatch(c.Request.Context(), userID, matchID); err != nil {
			c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"ended": true})
	})
}
