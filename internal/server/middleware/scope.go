// file: internal/server/middleware/scope.go
// version: 1.0.0
// guid: 6f21c8d4-9a57-4e03-b6f9-1d8e4a720c35

package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/ratelimit"
)

// ByAccount scopes a rate-limit bucket to the authenticated person. Routes
// that run before a session exists fall back to the client IP, so the bucket
// is still shared correctly with post-session routes once the same person
// signs in from the same rule.
func ByAccount() ratelimit.ScopeFunc {
	return func(c *gin.Context) string {
		if sess, ok := CurrentSession(c); ok {
			return "person:" + strconv.Itoa(sess.PersonID)
		}
		return "ip:" + c.ClientIP()
	}
}
