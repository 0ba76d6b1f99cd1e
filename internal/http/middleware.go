package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/bookworms/internal/apierror"
)

const (
	RequestIDHeader     = "X-Request-ID"
	ContextKeyRequestID = "request_id"
	maxRequestIDLength  = 128
)

// RequestIDMiddleware tags every request with an ID, reusing a client supplied
// X-Request-ID when present, and echoes it in the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// logFormatter adds the request ID to gin's access log line.
func logFormatter(param gin.LogFormatterParams) string {
	id, _ := param.Keys[ContextKeyRequestID].(string)
	return "[GIN] " + param.TimeStamp.Format("2006/01/02 - 15:04:05") +
		" | " + id +
		" | " + http.StatusText(param.StatusCode) +
		" | " + param.Latency.String() +
		" | " + param.ClientIP +
		" | " + param.Method + " " + param.Path + "\n"
}

func notFound(c *gin.Context) {
	apierror.Abort(c, http.StatusNotFound, "no route for "+c.Request.Method+" "+c.Request.URL.Path)
}

func methodNotAllowed(c *gin.Context) {
	apierror.Abort(c, http.StatusMethodNotAllowed, "method "+c.Request.Method+" is not allowed on "+c.Request.URL.Path)
}
