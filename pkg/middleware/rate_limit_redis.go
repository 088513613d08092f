package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every replica.
// Each window allows floor(rps*window)+burst requests per caller key.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("docgate:rl:%s:%d", limitKey(c), time.Now().Unix()/windowSeconds)

		pipe := client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Duration(windowSeconds+1)*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			abort(c, http.StatusServiceUnavailable, "rate limit check failed")
			return
		}
		if incr.Val() > allowed {
			c.Header("Retry-After", strconv.FormatInt(windowSeconds, 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
