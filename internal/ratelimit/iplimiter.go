// file: internal/ratelimit/iplimiter.go
// version: 1.0.0
// guid: 6c0a9d54-e37b-4821-af96-3d2e8b1f50c4

package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/metrics"
	"golang.org/x/time/rate"
)

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is the coarse router-wide per-IP token bucket. It runs in
// front of session resolution, so it is the first line of abuse protection;
// the structured per-rule limiter handles route-specific quotas behind it.
type IPRateLimiter struct {
	mu             sync.Mutex
	entries        map[string]*bucketEntry
	requestsPerMin int
	burst          int
	idleTTL        time.Duration
	exemptions     *Exemptions
	disabled       bool
}

// NewIPRateLimiter creates a per-IP limiter admitting requestsPerMinute with
// the given burst. Trusted IPs from exemptions bypass the limiter; disabled
// turns it off entirely (the config escape hatch for trusted deployments).
func NewIPRateLimiter(requestsPerMinute, burst int, exemptions *Exemptions, disabled bool) *IPRateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		entries:        make(map[string]*bucketEntry),
		requestsPerMin: requestsPerMinute,
		burst:          burst,
		idleTTL:        15 * time.Minute,
		exemptions:     exemptions,
		disabled:       disabled,
	}
}

func (r *IPRateLimiter) limiterForIP(ip string) *rate.Limiter {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.entries, key)
		}
	}

	entry, ok := r.entries[ip]
	if !ok {
		perSecond := float64(r.requestsPerMin) / 60.0
		entry = &bucketEntry{
			limiter:  rate.NewLimiter(rate.Limit(perSecond), r.burst),
			lastSeen: now,
		}
		r.entries[ip] = entry
		return entry.limiter
	}

	entry.lastSeen = now
	return entry.limiter
}

// Middleware returns a Gin middleware enforcing the configured limit.
// Health and metrics probes are always exempt.
func (r *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.disabled || c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if r.exemptions != nil && r.exemptions.Contains(ip) {
			c.Next()
			return
		}

		if !r.limiterForIP(ip).Allow() {
			metrics.IncRateLimitRejection("ip")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
