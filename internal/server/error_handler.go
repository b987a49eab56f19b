// file: internal/server/error_handler.go
// version: 1.0.0
// guid: 8a1d4c6f-2e90-47b3-a5d8-0c6f3b91e247

package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code,omitempty"`
	Status int          `json:"status"`
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError names one violated field in a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.JSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
	c.Abort()
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithFieldErrors sends a 400 reporting every violated field at once,
// so clients can fix an entire payload in one round trip.
func RespondWithFieldErrors(c *gin.Context, fields []FieldError) {
	logErrorWithContext(c, http.StatusBadRequest, "validation failed")

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:  "validation failed",
		Code:   "VALIDATION_ERROR",
		Status: http.StatusBadRequest,
		Fields: fields,
	})
	c.Abort()
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithStoreUnavailable sends the fail-closed 500 used when a
// dependency store is unreachable.
func RespondWithStoreUnavailable(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "storage unavailable", "STORE_UNAVAILABLE")
}

// RespondWithUnauthorized sends a 401 Unauthorized error response
func RespondWithUnauthorized(c *gin.Context, message string, code string) {
	RespondWithError(c, http.StatusUnauthorized, message, code)
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondWithNoContent sends a 204 No Content response
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	method := c.Request.Method
	path := c.Request.URL.Path
	clientIP := c.ClientIP()

	logLevel := "WARNING"
	if statusCode >= 500 {
		logLevel = "ERROR"
	}

	log.Printf("[%s] %s %s %d - %s (from %s)", logLevel, method, path, statusCode, message, clientIP)
}

// HandleBindError handles JSON binding errors with a consistent response
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	RespondWithFieldErrors(c, []FieldError{
		{Field: "body", Message: "malformed JSON: " + err.Error()},
	})
	return true
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// PaginationParams carries the n/o pagination pair used across the API.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePaginationParams reads the `n` (limit) and `o` (offset) query
// parameters, clamping to sane bounds.
func ParsePaginationParams(c *gin.Context, maxLimit int) PaginationParams {
	limit := ParseQueryInt(c, "n", 10)
	offset := ParseQueryInt(c, "o", 0)

	if limit < 1 {
		limit = 10
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{Limit: limit, Offset: offset}
}
