package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/storefront/internal/monitoring"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	health *monitoring.HealthManager
}

// NewHealthHandler wraps a HealthManager. A nil manager reports healthy.
func NewHealthHandler(health *monitoring.HealthManager) *HealthHandler {
	if health == nil {
		health = monitoring.NewHealthManager()
	}
	return &HealthHandler{health: health}
}

// Live reports whether the process can serve requests.
// GET /health, GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.health.EvaluateLiveness(c.Request.Context()))
}

// Ready additionally checks backing stores.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	writeHealthReport(c, h.health.EvaluateReadiness(c.Request.Context()))
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}
