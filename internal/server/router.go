// Package server wires the HTTP router over the scoring core.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mint-game-backend/internal/handler"
	"mint-game-backend/internal/mint"
	"mint-game-backend/internal/pkg/db"
	"mint-game-backend/internal/service"
)

// Deps are the constructed services the router dispatches to.
type Deps struct {
	Scores          *service.ScoreService
	Allowances      *mint.AllowanceService
	MetadataBaseURL string
	DB              *db.Pool
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	gameHandler := &handler.GameHandler{Scores: deps.Scores}
	mintHandler := &handler.MintHandler{
		Allowances:      deps.Allowances,
		MetadataBaseURL: deps.MetadataBaseURL,
	}

	v1 := r.Group("/v1")
	v1.POST("/game/start", gameHandler.Start)
	v1.POST("/game/end", gameHandler.End)
	v1.POST("/game/validate", gameHandler.Validate)
	v1.GET("/tier/:address", gameHandler.Tier)
	v1.GET("/stats", gameHandler.Stats)
	v1.GET("/mint/allowance/:address", mintHandler.Allowance)
	v1.GET("/token/:id", mintHandler.TokenMetadata)

	return r
}
