package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/storefront/pkg/errors"
	"github.com/charlesng35/storefront/pkg/logger"
	"github.com/charlesng35/storefront/pkg/response"
)

var errMethodNotAllowed = appErrors.New("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed)

// Recovery turns a handler panic into a generic 500. The panic value and
// stack go to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.WithModule("http").Error("handler panic",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("request_id", GetRequestID(c)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Abort(c, appErrors.ErrInternalServer)
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the JSON envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, appErrors.New(appErrors.ErrNotFound.Code,
		fmt.Sprintf("route %s not found", c.Request.URL.Path), appErrors.ErrNotFound.StatusCode))
}

// MethodNotAllowedHandler answers known paths hit with the wrong verb, such
// as a GET on the POST-only verification endpoints.
func MethodNotAllowedHandler(c *gin.Context) {
	response.Error(c, errMethodNotAllowed.WithDetails(map[string]any{"method": c.Request.Method}))
}
