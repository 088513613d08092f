package audit

import (
	"bytes"
	"io"
	"time"

	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the audit record id back to the caller.
const RequestIDHeader = "X-Request-ID"

// Middleware records every request once the rest of the chain has run. The
// record is built after c.Next, so it may sit ahead of the auth middleware:
// requests auth rejects are recorded too, and accepted ones carry the caller.
func Middleware(rec *Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Header(RequestIDHeader, id)

		// only the audited prefix is buffered; the handler reads the rest
		// straight from the connection
		var body []byte
		if c.Request.Body != nil {
			orig := c.Request.Body
			body, _ = io.ReadAll(io.LimitReader(orig, MaxBodyBytes+1))
			c.Request.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(body), orig), orig}
		}

		c.Next()

		a := Action{
			RequestID:  id,
			Username:   Anonymous,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Query:      c.Request.URL.RawQuery,
			StatusCode: c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			Timestamp:  start.UTC(),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}
		if user, email, ok := middleware.Identity(c); ok {
			a.Username, a.Email = user, email
		}
		if len(c.Params) > 0 {
			a.Params = make(map[string]string, len(c.Params))
			for _, p := range c.Params {
				a.Params[p.Key] = p.Value
			}
		}
		if len(body) > MaxBodyBytes {
			body, a.Truncated = body[:MaxBodyBytes], true
		}
		a.Body = string(body)
		rec.Record(a)
	}
}
