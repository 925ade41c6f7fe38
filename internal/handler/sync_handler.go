package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vantrack/fleetsync-go/internal/service"
	"github.com/vantrack/fleetsync-go/internal/vendorapi"
	"github.com/vantrack/fleetsync-go/pkg/response"
)

// SyncHandler exposes the "sync now" trigger surface
type SyncHandler struct {
	sync          *service.SyncService
	displayOffset int // UTC offset hours for human-readable timestamps
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(sync *service.SyncService, displayOffset int) *SyncHandler {
	return &SyncHandler{sync: sync, displayOffset: displayOffset}
}

// SyncDevice handles POST /api/v1/sync/:deviceId
// ?force=1 resets the cursor and rebuilds the full lookback window
func (h *SyncHandler) SyncDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if deviceID == "" {
		response.BadRequest(c, "Missing device ID")
		return
	}
	force := c.Query("force") == "1" || c.Query("force") == "true"

	result, err := h.sync.SyncDevice(c.Request.Context(), deviceID, force)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			response.Conflict(c, "Sync already running for this device")
			return
		}
		if vendorapi.IsRetryable(err) {
			// Degraded, will retry on the next scheduled run
			response.Error(c, http.StatusServiceUnavailable, "Vendor temporarily unavailable, will retry", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Sync failed", err)
		return
	}

	response.Success(c, result)
}

// SyncAll handles POST /api/v1/sync
func (h *SyncHandler) SyncAll(c *gin.Context) {
	force := c.Query("force") == "1" || c.Query("force") == "true"

	results := h.sync.SyncAll(c.Request.Context(), force)
	response.Accepted(c, gin.H{
		"devices": len(results),
		"results": results,
	})
}

// GetCheckpoint handles GET /api/v1/devices/:deviceId/checkpoint
func (h *SyncHandler) GetCheckpoint(c *gin.Context) {
	deviceID := c.Param("deviceId")

	checkpoint, err := h.sync.Checkpoint(deviceID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get checkpoint", err)
		return
	}
	if checkpoint == nil {
		response.NotFound(c, "Device has never been synced")
		return
	}

	display := ""
	if checkpoint.LastSyncedAt > 0 {
		display = vendorapi.FormatDisplayTime(
			time.Unix(checkpoint.LastSyncedAt, 0).UTC(), h.displayOffset)
	}
	response.Success(c, gin.H{
		"checkpoint":          checkpoint,
		"last_synced_display": display,
	})
}
