package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mint-game-backend/internal/mint"
)

// MintHandler exposes mint eligibility and token metadata.
type MintHandler struct {
	Allowances      *mint.AllowanceService
	MetadataBaseURL string
}

// Allowance resolves mint eligibility for a wallet address.
func (h *MintHandler) Allowance(c *gin.Context) {
	allowance, err := h.Allowances.Allowance(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve mint allowance"})
		return
	}
	c.JSON(http.StatusOK, allowance)
}

// TokenMetadata returns the metadata URL for a model id.
func (h *MintHandler) TokenMetadata(c *gin.Context) {
	modelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || modelID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokenURI": mint.TokenURL(h.MetadataBaseURL, modelID)})
}
