package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/storefront/internal/app"
	"github.com/charlesng35/storefront/internal/verification"
	"github.com/charlesng35/storefront/pkg/mail"
)

func newTestManager(t *testing.T) *verification.Manager {
	t.Helper()
	manager, err := verification.NewManager(verification.DefaultConfig(), &mail.MemoryMailer{})
	require.NoError(t, err)
	return manager
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := NewRouter(nil, newTestManager(t), nil)
	require.Error(t, err)

	_, err = NewRouter(&app.Config{}, nil, nil)
	require.Error(t, err)

	_, err = NewRouter(&app.Config{Server: app.ServerConfig{TrustedProxies: []string{"not-an-ip"}}}, newTestManager(t), nil)
	require.Error(t, err)
}

func TestRouter_PublicRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, err := NewRouter(&app.Config{}, newTestManager(t), nil)
	require.NoError(t, err)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/api/health", "/api/health/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	for _, path := range []string{"/verify/send", "/verify/check", "/api/verify/send", "/api/verify/check"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify/send", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify/resend", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{Monitoring: app.MonitoringConfig{
		Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/internal/metrics"},
	}}
	router, err := NewRouter(cfg, newTestManager(t), nil)
	require.NoError(t, err)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "storefront_api_latency_seconds")

	disabled, err := NewRouter(&app.Config{}, newTestManager(t), nil)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	disabled.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_FloodGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{Server: app.ServerConfig{
		RateLimit: app.HTTPRateLimitConfig{Enabled: true, Requests: 2, Period: time.Minute},
	}}
	router, err := NewRouter(cfg, newTestManager(t), nil)
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/verify/check", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	// Health is outside the guarded groups.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
