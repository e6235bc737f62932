package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tally/internal/errors"
	"tally/internal/scheduler"
)

// SyncControl is the slice of the scheduler the sync endpoints consume.
type SyncControl interface {
	TriggerRefresh()
	Status() scheduler.Status
}

// SyncHandler exposes the manual refresh trigger and scheduler status.
type SyncHandler struct {
	sync SyncControl
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(sync SyncControl) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// TriggerRefresh requests a one-shot sync. The refresh runs asynchronously;
// the response only acknowledges the request. A stopped scheduler cannot
// honor the request, so it is rejected rather than silently dropped.
func (h *SyncHandler) TriggerRefresh(c *gin.Context) {
	if h.sync.Status().State == scheduler.StateStopped {
		respondWithError(c, apperrors.ErrSyncStopped)
		return
	}
	h.sync.TriggerRefresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
}

// GetStatus returns the scheduler's current status.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Status())
}
