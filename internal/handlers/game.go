package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"satdice-backend/internal/models"
	"satdice-backend/internal/services"
)

type GameHandler struct {
	engine *services.GameEngine
	pot    *services.PotService
}

func NewGameHandler(engine *services.GameEngine, pot *services.PotService) *GameHandler {
	return &GameHandler{
		engine: engine,
		pot:    pot,
	}
}

func (h *GameHandler) SelectGuess(c *gin.Context) {
	ownerID := c.GetString("owner_id")

	var req models.GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	snap, err := h.engine.SelectGuess(c.Request.Context(), ownerID, req.Guess)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"session": snap,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": snap,
	})
}

func (h *GameHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": h.engine.Snapshot(),
		"pot":     models.PotResponse{PotSats: h.pot.Current()},
	})
}

func (h *GameHandler) RefreshPayment(c *gin.Context) {
	ownerID := c.GetString("owner_id")

	snap, err := h.engine.CheckPayment(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"session": snap,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": snap,
	})
}

func (h *GameHandler) RetryPayout(c *gin.Context) {
	ownerID := c.GetString("owner_id")

	snap, err := h.engine.RetryPayout(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"session": snap,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": snap,
	})
}

func (h *GameHandler) Reset(c *gin.Context) {
	ownerID := c.GetString("owner_id")

	snap, err := h.engine.Reset(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"session": snap,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": snap,
	})
}

func (h *GameHandler) GetPot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pot":     models.PotResponse{PotSats: h.pot.Current()},
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidGuess),
		errors.Is(err, models.ErrNoPayment),
		errors.Is(err, models.ErrNothingToRetry):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotSessionOwner):
		return http.StatusForbidden
	case errors.Is(err, models.ErrGameInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrPotTooLow):
		return http.StatusConflict
	case errors.Is(err, models.ErrIssuance), errors.Is(err, models.ErrTransientQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
