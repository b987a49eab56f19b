// file: internal/server/middleware/basicauth.go
// version: 1.0.0
// guid: c8e2a5d0-19b7-4f63-8c04-5d7e1f3a92c6

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/config"
)

// MetricsAuth returns a Gin middleware enforcing HTTP Basic Authentication
// on the metrics endpoint. Disabled when no credentials are configured.
func MetricsAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedUser := config.AppConfig.MetricsAuthUsername
		expectedPass := config.AppConfig.MetricsAuthPassword
		if expectedUser == "" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="Matchwell Metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(expectedUser)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(expectedPass)) == 1
		if !userMatch || !passMatch {
			c.Header("WWW-Authenticate", `Basic realm="Matchwell Metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}
