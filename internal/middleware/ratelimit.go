package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/storefront/pkg/errors"
	"github.com/charlesng35/storefront/pkg/logger"
	"github.com/charlesng35/storefront/pkg/metrics"
	"github.com/charlesng35/storefront/pkg/response"
)

// RateLimit returns a middleware that limits requests per (clientIP,path) within a fixed window.
// Counters live in process memory, which suits single-instance deployments and tests.
func RateLimit(maxRequests int64, window time.Duration) gin.HandlerFunc {
	return RateLimitWithStore(memory.NewStore(), maxRequests, window)
}

// RateLimitWithStore is RateLimit backed by an arbitrary limiter store.
func RateLimitWithStore(store limiter.Store, maxRequests int64, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 || store == nil {
		return func(c *gin.Context) { c.Next() }
	}

	instance := limiter.New(store, limiter.Rate{Period: window, Limit: maxRequests})
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()

		ctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// Fail open: a broken counter must not take the API down.
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			retryAfter := retryAfterSeconds(time.Unix(ctx.Reset, 0), time.Now())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			metrics.RateLimited.WithLabelValues("http").Inc()
			response.Error(c, appErrors.ErrRateLimit.WithDetails(map[string]any{"retryAfter": retryAfter}))
			c.Abort()
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, never below one.
func retryAfterSeconds(reset, now time.Time) int {
	wait := reset.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
