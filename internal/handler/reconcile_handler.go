package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vantrack/fleetsync-go/internal/service"
	"github.com/vantrack/fleetsync-go/pkg/response"
)

// ReconcileHandler exposes the coordinate backfill job
type ReconcileHandler struct {
	reconcile *service.ReconcileService
}

// NewReconcileHandler creates a new reconcile handler
func NewReconcileHandler(reconcile *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcile: reconcile}
}

// reconcileRequest is the trigger payload; DeviceID empty means fleet-wide
type reconcileRequest struct {
	DeviceID string `json:"device_id"`
	From     int64  `json:"from" binding:"required"` // Unix timestamp
	To       int64  `json:"to" binding:"required"`   // Unix timestamp
}

// Reconcile handles POST /api/v1/reconcile. Safe to invoke repeatedly: the
// second run over an already-repaired range backfills nothing.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.To <= req.From {
		response.BadRequest(c, "Range end must be after range start")
		return
	}

	report, err := h.reconcile.Reconcile(c.Request.Context(), req.DeviceID,
		time.Unix(req.From, 0).UTC(), time.Unix(req.To, 0).UTC())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}

	response.Success(c, report)
}

// GetReport handles GET /api/v1/reports/:runId
func (h *ReconcileHandler) GetReport(c *gin.Context) {
	runID := c.Param("runId")

	report, err := h.reconcile.Report(runID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get report", err)
		return
	}
	if report == nil {
		response.NotFound(c, "Report not found")
		return
	}

	response.Success(c, report)
}
