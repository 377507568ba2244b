package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"satdice-backend/internal/services"
)

type AuthHandler struct {
	jwtService *services.JWTService
}

func NewAuthHandler(jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

// StartSession hands a browser a fresh owner identity. The token only matters
// once a round is live: it keeps another tab from resetting or hijacking it.
func (h *AuthHandler) StartSession(c *gin.Context) {
	ownerID := uuid.NewString()

	token, err := h.jwtService.GenerateToken(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"token":    token,
		"owner_id": ownerID,
	})
}
