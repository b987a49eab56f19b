// file: internal/ratelimit/middleware.go
// version: 1.0.0
// guid: 1d7f3b28-9a45-4c01-b6e2-0e8d5c4a97f6

package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/metrics"
)

// Require returns a Gin middleware enforcing the given rules. Every rule
// must admit; on denial the request is answered with 429, a Retry-After
// header, and a machine-readable error body.
func Require(svc *Service, rules ...Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := svc.Check(c, rules...)
		if !decision.Allowed {
			Reject(c, decision)
			return
		}
		c.Next()
	}
}

// Reject aborts the request with a 429 response for the given decision.
// Shared with the search dispatcher, which checks its account rule inline.
func Reject(c *gin.Context, decision Decision) {
	metrics.IncRateLimitRejection(decision.RuleID)
	seconds := int(decision.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":               "rate limit exceeded",
		"code":                "RATE_LIMITED",
		"retry_after_seconds": seconds,
	})
	c.Abort()
}
