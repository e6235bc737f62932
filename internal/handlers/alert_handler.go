package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/alerts"
	apperrors "tally/internal/errors"
	"tally/internal/pagination"
)

// AlertHandler handles alert-related requests.
type AlertHandler struct {
	alerts *alerts.Store
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertStore *alerts.Store) *AlertHandler {
	return &AlertHandler{alerts: alertStore}
}

// GetAlerts returns a page of the user's alerts, newest first.
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.alerts.Page(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkAlertRead marks an alert as read. Idempotent.
func (h *AlertHandler) MarkAlertRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.alerts.MarkRead(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAlert removes an alert. Idempotent.
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.alerts.Delete(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteReadAlerts removes all read alerts for the user.
func (h *AlertHandler) DeleteReadAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.alerts.DeleteAllRead(userID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAllAlerts removes every alert for the user.
func (h *AlertHandler) DeleteAllAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.alerts.DeleteAll(userID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
