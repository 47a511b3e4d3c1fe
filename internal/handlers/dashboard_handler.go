package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// DashboardHandler serves the aggregated analytics snapshots backing the
// admin dashboard
type DashboardHandler struct {
	snapshots *database.SnapshotRepository
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(snapshots *database.SnapshotRepository) *DashboardHandler {
	return &DashboardHandler{
		snapshots: snapshots,
	}
}

// GetStats handles GET /api/v1/dashboard/stats.
// Returns the latest daily snapshot.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	snap, err := h.snapshots.GetLatest(models.SnapshotDaily)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No analytics snapshot available yet",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load dashboard stats",
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// GetStatsByPeriod handles GET /api/v1/dashboard/stats/:period.
// A period shaped YYYY-MM-DD resolves a daily snapshot, YYYY-MM a
// monthly one.
func (h *DashboardHandler) GetStatsByPeriod(c *gin.Context) {
	period := c.Param("period")

	snapshotType, ok := periodType(period)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Period must be YYYY-MM-DD or YYYY-MM",
		})
		return
	}

	snap, err := h.snapshots.GetByPeriod(snapshotType, period)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No snapshot for the requested period",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load dashboard stats",
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// periodType classifies a period string as daily or monthly
func periodType(period string) (string, bool) {
	if _, err := time.Parse(models.DateLayout, period); err == nil {
		return models.SnapshotDaily, true
	}
	if _, err := time.Parse(models.MonthLayout, period); err == nil {
		return models.SnapshotMonthly, true
	}
	return "", false
}
