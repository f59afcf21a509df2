package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/storefront/internal/app"
	"github.com/charlesng35/storefront/internal/handlers"
	"github.com/charlesng35/storefront/internal/monitoring"
	"github.com/charlesng35/storefront/internal/services"
	"github.com/charlesng35/storefront/internal/verification"
)

const auditPingTimeout = 2 * time.Second

func newHealthManager(cfg *app.Config, manager *verification.Manager, audit *services.AuditService) *monitoring.HealthManager {
	health := monitoring.NewHealthManager()
	health.RegisterLiveness(monitoring.PendingCheck("verification", manager, cfg.Monitoring.Health.PendingThreshold))
	if audit != nil {
		health.RegisterReadiness(monitoring.PingCheck("audit_store", audit, auditPingTimeout))
	}
	return health
}

func registerHealthRoutes(r *gin.Engine, handler *handlers.HealthHandler) {
	for _, group := range []gin.IRouter{r, r.Group("/api")} {
		group.GET("/health", handler.Live)
		group.GET("/health/live", handler.Live)
		group.GET("/health/ready", handler.Ready)
	}
}
