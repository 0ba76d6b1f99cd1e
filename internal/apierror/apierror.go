// Package apierror writes the uniform JSON error body returned by every API
// endpoint on a failure path.
//
// The body always has exactly two string fields:
//
//	{"error": "Unauthorized", "description": "missing bearer token"}
package apierror

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentType is set on every error response before the body is written.
const ContentType = "application/json; charset=utf-8"

// Response is the error body shape shared by all handlers and middleware.
type Response struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

// New builds a Response whose error field is the standard status text.
func New(status int, description string) Response {
	title := http.StatusText(status)
	if title == "" {
		title = "Error"
	}
	return Response{Error: title, Description: description}
}

// Abort writes the error body with the given status and stops the handler
// chain. If a response has already been written it only aborts, so the body
// is emitted at most once per request and the status is never rewritten.
func Abort(c *gin.Context, status int, description string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(status, New(status, description))
}
