package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/storefront/pkg/logger"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.POST("/verify/send", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.POST("/verify/check", func(c *gin.Context) {
		c.Status(http.StatusTooManyRequests)
	})
	r.GET("/health/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, target := range []struct{ method, path string }{
		{http.MethodPost, "/verify/send"},
		{http.MethodPost, "/verify/check"},
		{http.MethodGet, "/health/live"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(target.method, target.path, nil))
	}

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, zapcore.DebugLevel, entries[2].Level)

	fields := entries[0].ContextMap()
	require.Equal(t, "/verify/send", fields["route"])
	require.Equal(t, int64(http.StatusOK), fields["status"])
	require.NotEmpty(t, fields["request_id"])
}

func TestAccessLevel(t *testing.T) {
	require.Equal(t, zapcore.ErrorLevel, accessLevel(http.StatusServiceUnavailable, "/health/ready"))
	require.Equal(t, zapcore.InfoLevel, accessLevel(http.StatusBadRequest, "/verify/check"))
	require.Equal(t, zapcore.DebugLevel, accessLevel(http.StatusOK, "/api/health"))
}
