package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fileflow-app/fileflow/pkg/config"
	api "github.com/fileflow-app/fileflow/pkg/fileflow"
	"github.com/fileflow-app/fileflow/pkg/fileflow/database"
	"github.com/fileflow-app/fileflow/pkg/fileflow/handler"
	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/httpclient"
	"github.com/fileflow-app/fileflow/pkg/fileflow/ratelimit"
	"github.com/fileflow-app/fileflow/pkg/fileflow/repositories"
	"github.com/fileflow-app/fileflow/pkg/fileflow/services"
	"github.com/fileflow-app/fileflow/pkg/fileflow/storage"
	"github.com/fileflow-app/fileflow/pkg/jobs"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	if level := log.GetLevel(); level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("no database connection")
		log.Info("starting without database functionality")
	}

	blobs, err := storage.NewMinioStore(cfg.Storage)
	if err != nil {
		log.WithError(err).Warn("object storage unavailable")
		blobs = storage.Unconfigured()
	} else if !cfg.Storage.Configured() {
		log.Warn("object storage not configured, uploads will fail")
	}

	var limiter ratelimit.Limiter
	if cfg.Verify.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.UpstreamTimeout)
		rl, err := ratelimit.NewRedisLimiterFromURL(pingCtx, cfg.Verify.RedisURL, cfg.Verify.MaxAttempts, cfg.Verify.Window)
		cancel()
		if err != nil {
			log.WithError(err).Warn("verify attempt limiter disabled")
		} else {
			limiter = rl
		}
	}

	httpclient.HTTPClient.Timeout = cfg.UpstreamTimeout

	repo := repositories.NewArtifactRepository(db)
	svc := services.NewImageService(
		services.NewCodeRegistry(repo),
		services.NewAccessGate(limiter),
		blobs,
		services.Options{Timeout: cfg.UpstreamTimeout, SweepGrace: cfg.Sweep.Grace},
	)
	controller := handler.NewImageController(svc)

	if _, err := jobs.ScheduleOrphanSweep(ctx, svc, cfg.Sweep.Schedule); err != nil {
		log.WithError(err).Fatal("could not schedule orphan sweep")
	}

	switch {
	case cfg.AuthSecret != "":
	case cfg.AuthTrustGateway:
		log.Warn("AUTH_JWT_SECRET not set, admin tokens are trusted without verification")
	default:
		log.Warn("AUTH_JWT_SECRET not set, admin routes will refuse every request")
	}
	router := api.NewRouter(cfg.APIVersion, controller, api.RouterOptions{
		AuthSecret:     []byte(cfg.AuthSecret),
		TrustGateway:   cfg.AuthTrustGateway,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"port": cfg.Port, "version": cfg.APIVersion}).Info("server is running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}
