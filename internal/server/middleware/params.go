// file: internal/server/middleware/params.go
// version: 1.0.0
// guid: 3a7d0f92-5c64-4e18-b2a5-8f1c6d9e40b3

package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PersonalityTopics is the fixed enumeration of comparison topics.
var PersonalityTopics = []string{"mbti", "big5", "attachment", "politics", "other"}

// TopicParam validates the named path parameter against the personality
// topic enumeration. Unknown topics are rejected at the routing layer,
// before any handler runs.
func TopicParam(name string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(PersonalityTopics))
	for _, topic := range PersonalityTopics {
		allowed[topic] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.Param(name)] {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unknown topic: " + c.Param(name),
				"code":  "VALIDATION_ERROR",
				"fields": []gin.H{
					{"field": name, "message": "must be one of mbti, big5, attachment, politics, other"},
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// IntParam validates that the named path parameter is a positive integer.
// Route-level typing for numeric ids, rejected before the handler.
func IntParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := strconv.Atoi(c.Param(name))
		if err != nil || value < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid " + name,
				"code":  "VALIDATION_ERROR",
				"fields": []gin.H{
					{"field": name, "message": "must be a positive integer"},
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ParamInt reads a path parameter already validated by IntParam.
func ParamInt(c *gin.Context, name string) int {
	value, _ := strconv.Atoi(c.Param(name))
	return value
}
