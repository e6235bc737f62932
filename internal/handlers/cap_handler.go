package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tally/internal/budget"
	apperrors "tally/internal/errors"
)

// CapHandler handles spending-cap requests.
type CapHandler struct {
	caps *budget.CapStore
}

// NewCapHandler creates a new CapHandler.
func NewCapHandler(capStore *budget.CapStore) *CapHandler {
	return &CapHandler{caps: capStore}
}

// SetCapRequest represents the payload for creating or replacing a cap.
type SetCapRequest struct {
	Category string          `json:"category" binding:"required,min=1,max=100"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// GetCaps returns all caps for the user.
func (h *CapHandler) GetCaps(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	caps, err := h.caps.List(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"caps": caps})
}

// SetCap creates or replaces the cap for a category.
func (h *CapHandler) SetCap(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetCapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.caps.Set(userID, req.Category, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cap": entry})
}

// DeleteCap removes the cap for a category. Idempotent.
func (h *CapHandler) DeleteCap(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.caps.Delete(userID, c.Param("category")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
