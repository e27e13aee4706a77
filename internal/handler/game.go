// Package handler contains the HTTP handlers over the scoring core.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mint-game-backend/internal/model"
	"mint-game-backend/internal/repository"
	"mint-game-backend/internal/service"
)

// GameHandler exposes the game session lifecycle.
type GameHandler struct {
	Scores *service.ScoreService
}

type startGameBody struct {
	Address         string `json:"address" binding:"required"`
	ClientStartTime string `json:"clientStartTime"`
}

type endGameBody struct {
	Address       string   `json:"address" binding:"required"`
	Score         *float64 `json:"score" binding:"required"`
	ClientEndTime string   `json:"clientEndTime"`
}

type validateBody struct {
	Address string `json:"address" binding:"required"`
}

// Start begins a game session for a wallet address.
func (h *GameHandler) Start(c *gin.Context) {
	var body startGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	startTime, err := h.Scores.StartGame(c.Request.Context(), body.Address, body.ClientStartTime, requestInfo(c))
	if err != nil {
		if errors.Is(err, repository.ErrSessionExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Game already completed for this address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start game session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"startTime": startTime})
}

// End reports a finished game and runs the scoring pipeline.
func (h *GameHandler) End(c *gin.Context) {
	var body endGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.Scores.EndGame(c.Request.Context(), body.Address, *body.Score, body.ClientEndTime, requestInfo(c))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, result)
			return
		}
		c.JSON(http.StatusInternalServerError, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Validate forces validation of an existing, unvalidated score.
func (h *GameHandler) Validate(c *gin.Context) {
	var body validateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.Scores.Revalidate(c.Request.Context(), body.Address)
	if err != nil {
		if errors.Is(err, service.ErrNoScore) {
			c.JSON(http.StatusNotFound, result)
			return
		}
		c.JSON(http.StatusInternalServerError, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Tier returns the price tier for an address. Always 200: the core fails
// closed to the lowest tier.
func (h *GameHandler) Tier(c *gin.Context) {
	address := c.Param("address")
	priceTier := h.Scores.GetTier(c.Request.Context(), address)
	c.JSON(http.StatusOK, gin.H{
		"address":   service.NormalizeAddress(address),
		"priceTier": priceTier,
	})
}

// Stats returns aggregate session counts.
func (h *GameHandler) Stats(c *gin.Context) {
	stats, err := h.Scores.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// requestInfo extracts the client metadata used by the device-fingerprint
// checks. Missing values become the sentinel rather than empty strings.
func requestInfo(c *gin.Context) model.RequestInfo {
	return model.RequestInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}.Normalized()
}
