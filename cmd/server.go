package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/docgate/docgate/handlers"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/collection/handler"
	"github.com/docgate/docgate/internal/collection/service"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// routerDeps is everything the HTTP layer needs. Optional parts are nil.
type routerDeps struct {
	cfg         *config.Config
	svc         *service.Service
	verifier    middleware.Verifier
	revocations *tokens.RevocationList
	redis       *redis.Client
	recorder    *audit.Recorder
	exporter    handler.Exporter
	gatherer    prometheus.Gatherer
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	return reg
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(d))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})))
	handlers.RegisterSwagger(r)

	api := r.Group("/api")
	// audit runs first so rejected requests are recorded too
	if d.recorder != nil {
		api.Use(audit.Middleware(d.recorder))
	}
	if d.cfg.Auth.Required {
		api.Use(middleware.AuthMiddleware(d.verifier, d.revocations))
	} else {
		api.Use(middleware.OptionalAuthMiddleware(d.verifier, d.revocations))
	}
	if rl := d.cfg.RateLimit; rl.Enabled {
		if rl.UseRedis && d.redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(d.redis, rl.RPS, rl.Burst, rl.Window))
		} else {
			api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}

	handlers.NewAuthHandler(d.revocations, d.cfg.JWT.AccessTokenTTL).Register(api)
	handler.RegisterCollectionRoutes(api, d.svc, d.exporter)
	return r
}

// readiness returns 200 only when the document store, and Redis when it is
// configured, answer a ping.
func readiness(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		deps := map[string]bool{"store": d.svc.Ping(ctx) == nil}
		if d.redis != nil {
			deps["redis"] = d.redis.Ping(ctx).Err() == nil
		}
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}

// cors is a permissive policy for browser clients on other origins.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length, "+audit.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
