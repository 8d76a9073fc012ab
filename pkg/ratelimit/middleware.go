package ratelimit

import (
	"net/http"
	"strconv"

	"eventx-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubjectFunc picks the key a request is counted against.
type SubjectFunc func(c *gin.Context) string

// ClientIP counts requests per client address.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Middleware rejects requests over the limit with 429. A failing limiter lets
// the request through; booking correctness never depends on it.
func Middleware(limiter *Limiter, limitType LimitType, subject SubjectFunc) gin.HandlerFunc {
	log := logger.WithComponent("ratelimit")
	if subject == nil {
		subject = ClientIP
	}

	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), subject(c), limitType)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("type", string(limitType)), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
