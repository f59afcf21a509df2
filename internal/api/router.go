package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/storefront/internal/app"
	"github.com/charlesng35/storefront/internal/handlers"
	"github.com/charlesng35/storefront/internal/middleware"
	"github.com/charlesng35/storefront/internal/services"
	"github.com/charlesng35/storefront/internal/verification"
)

// NewRouter builds the Gin engine, wires middleware and registers the verification routes.
// audit may be nil when the audit trail is disabled.
func NewRouter(cfg *app.Config, manager *verification.Manager, audit *services.AuditService) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if manager == nil {
		return nil, fmt.Errorf("verification manager must be provided")
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Forwarded headers are only honoured from configured proxies.
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	prom := cfg.Monitoring.Prometheus
	metricsPath := strings.TrimSpace(prom.Endpoint)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath))
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, handlers.NewHealthHandler(newHealthManager(cfg, manager, audit)))

	verificationHandler, err := handlers.NewVerificationHandler(manager, audit)
	if err != nil {
		return nil, err
	}

	var guard []gin.HandlerFunc
	if rl := cfg.Server.RateLimit; rl.Enabled {
		guard = append(guard, middleware.RateLimit(rl.Requests, rl.Period))
	}

	registerVerificationRoutes(r.Group("/verify", guard...), verificationHandler)
	registerVerificationRoutes(r.Group("/api/verify", guard...), verificationHandler)

	if prom.Enabled {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}
