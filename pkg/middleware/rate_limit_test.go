package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func hit(r *gin.Engine, path, remote string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))

	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/ok", ""))
	require.Equal(t, http.StatusOK, hit(r, "/ok", ""))
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/limited", ""))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/limited", ""))

	// other clients have their own bucket
	require.Equal(t, http.StatusOK, hit(r, "/limited", "10.0.0.9:5555"))

	// 0.5 rps refills one token in 2s
	time.Sleep(2100 * time.Millisecond)
	require.Equal(t, http.StatusOK, hit(r, "/limited", ""))
}

func TestRateLimitMiddleware_UsesIdentityWhenPresent(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ClaimsKey, map[string]interface{}{"sub": "user-123"})
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/u", "10.0.0.1:1"))
	// same subject from another address shares the bucket
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/u", "10.0.0.2:1"))
}
