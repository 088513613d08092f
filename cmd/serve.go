package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/collection/handler"
	"github.com/docgate/docgate/internal/collection/repository"
	"github.com/docgate/docgate/internal/collection/service"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	"github.com/docgate/docgate/internal/export"
	"github.com/docgate/docgate/internal/oidc"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	mongoConnectAttempts = 5
	shutdownTimeout      = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve runs the API until ctx is cancelled, then drains in-flight requests
// and pending audit records.
func serve(ctx context.Context, cfg *config.Config) error {
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v minio=%v auth_required=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.Auth.OIDCIssuer != "", cfg.MinIO.Enabled(), cfg.Auth.Required)

	var store repository.Store
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts, time.Second)
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				logger.Warnf("mongo disconnect: %v", err)
			}
		}()
		store = repository.NewMongoStore(client.Database(cfg.MongoDB.Database))
		logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
	} else {
		store = repository.NewMemoryStore()
	}

	svc := service.New(store,
		service.WithObserver(service.LogObserver()),
		service.WithObserver(service.MetricsObserver()),
	)

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		recorder = audit.NewRecorder(audit.NewStoreSink(store, cfg.Audit.Collection), cfg.Audit.Buffer)
	}

	// left as a nil interface when object storage is off
	var exporter handler.Exporter
	if cfg.MinIO.Enabled() {
		objects, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("exports disabled: %v", err)
		} else {
			exporter = export.NewExporter(svc, objects, cfg.MinIO.PresignExpiry)
		}
	}

	r := newRouter(routerDeps{
		cfg:         cfg,
		svc:         svc,
		verifier:    buildVerifier(ctx, cfg),
		revocations: tokens.NewRevocationList(rdb),
		redis:       rdb,
		recorder:    recorder,
		exporter:    exporter,
		gatherer:    newRegistry(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("docgate listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
	if recorder != nil {
		if err := recorder.Close(sctx); err != nil {
			logger.Warnf("audit drain: %v", err)
		}
	}
	return nil
}

// buildVerifier accepts tokens from docgate itself and, when configured,
// from an OpenID Connect provider.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	verifiers := []middleware.Verifier{tokens.NewHMACVerifier(cfg.JWT.Secret)}
	if cfg.Auth.OIDCIssuer != "" {
		v, err := oidc.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifiers = append(verifiers, v)
		}
	}
	return middleware.Chain(verifiers...)
}
