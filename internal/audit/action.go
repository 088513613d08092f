// Package audit records one Action per API request after the handler chain
// has finished, and persists it asynchronously.
package audit

import (
	"time"
)

// MaxBodyBytes caps how much of a request body is kept in a record.
const MaxBodyBytes = 16 << 10

// Action is one audited API request.
type Action struct {
	RequestID  string            `bson:"request_id" json:"requestId"`
	Username   string            `bson:"username" json:"username"`
	Email      string            `bson:"email,omitempty" json:"email,omitempty"`
	Method     string            `bson:"method" json:"method"`
	Path       string            `bson:"path" json:"path"`
	Params     map[string]string `bson:"params,omitempty" json:"params,omitempty"`
	Query      string            `bson:"query,omitempty" json:"query,omitempty"`
	Body       string            `bson:"body,omitempty" json:"body,omitempty"`
	Truncated  bool              `bson:"body_truncated,omitempty" json:"bodyTruncated,omitempty"`
	StatusCode int               `bson:"status_code" json:"statusCode"`
	DurationMS int64             `bson:"duration_ms" json:"durationMs"`
	Timestamp  time.Time         `bson:"timestamp" json:"timestamp"`
	IP         string            `bson:"ip" json:"ip"`
	UserAgent  string            `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
}

// Anonymous is recorded as the username of unauthenticated requests.
const Anonymous = "anonymous"
