package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charlesng35/storefront/pkg/logger"
)

// Logger writes one structured access log line per request. Bodies are never
// logged because they carry addresses and codes. Successful health probes are
// logged at debug so orchestrator polling does not drown the log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		logger.WithModule("http").Log(accessLevel(status, route), "request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", GetRequestID(c)),
		)
	}
}

func accessLevel(status int, route string) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	case isHealthRoute(route):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func isHealthRoute(route string) bool {
	return strings.HasPrefix(route, "/health") || strings.HasPrefix(route, "/api/health")
}
