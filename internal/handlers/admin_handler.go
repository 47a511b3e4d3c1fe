package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eswatinicommerce/msme-registry-backend/internal/services"
)

// AdminHandler exposes manual triggers for the scheduled jobs. The jobs
// themselves are idempotent upserts, so triggering one alongside its cron
// schedule is safe.
type AdminHandler struct {
	cronService *services.CronService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cronService *services.CronService) *AdminHandler {
	return &AdminHandler{
		cronService: cronService,
	}
}

// TriggerDaily handles POST /api/v1/admin/jobs/daily
func (h *AdminHandler) TriggerDaily(c *gin.Context) {
	go h.cronService.RunDailyNow()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "Daily analytics job triggered"})
}

// TriggerMonthly handles POST /api/v1/admin/jobs/monthly
func (h *AdminHandler) TriggerMonthly(c *gin.Context) {
	go h.cronService.RunMonthlyNow()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "Monthly analytics job triggered"})
}

// TriggerReconcile handles POST /api/v1/admin/jobs/reconcile
func (h *AdminHandler) TriggerReconcile(c *gin.Context) {
	go h.cronService.RunReconciliationNow()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "Category recount job triggered"})
}

// JobStatus handles GET /api/v1/admin/jobs
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cronService.GetJobStatus())
}
