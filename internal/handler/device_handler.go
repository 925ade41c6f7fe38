package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/repository"
	"github.com/vantrack/fleetsync-go/pkg/response"
)

// DeviceHandler handles HTTP requests for per-device readings and events
type DeviceHandler struct {
	positions *repository.PositionRepository
	events    *repository.EventRepository
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(positions *repository.PositionRepository, events *repository.EventRepository) *DeviceHandler {
	return &DeviceHandler{positions: positions, events: events}
}

// GetReadings handles GET /api/v1/devices/:deviceId/readings
func (h *DeviceHandler) GetReadings(c *gin.Context) {
	deviceID := c.Param("deviceId")

	var filter models.ReadingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	readings, total, err := h.positions.GetReadings(deviceID, filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get readings", err)
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, models.ReadingsResponse{
		Data:       readings,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	})
}

// GetEvents handles GET /api/v1/devices/:deviceId/events
func (h *DeviceHandler) GetEvents(c *gin.Context) {
	deviceID := c.Param("deviceId")

	var filter models.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	events, total, err := h.events.GetEvents(deviceID, filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get events", err)
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, models.EventsResponse{
		Data:       events,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	})
}
