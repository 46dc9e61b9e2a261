package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kesbangpol-dev/perizinan-api/internal/handler"
	"github.com/kesbangpol-dev/perizinan-api/internal/middleware"
	"github.com/kesbangpol-dev/perizinan-api/internal/repository"
	"github.com/kesbangpol-dev/perizinan-api/internal/service"
	"github.com/kesbangpol-dev/perizinan-api/pkg/cache"
	"github.com/kesbangpol-dev/perizinan-api/pkg/config"
	"github.com/kesbangpol-dev/perizinan-api/pkg/database"
	"github.com/kesbangpol-dev/perizinan-api/pkg/logger"
	corsmiddleware "github.com/kesbangpol-dev/perizinan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kesbangpol-dev/perizinan-api/pkg/middleware/requestid"
	"github.com/kesbangpol-dev/perizinan-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	blobs, err := storage.NewObjectStorage(ctx, cfg.Storage)
	cancel()
	if err != nil {
		logr.Sugar().Fatalw("failed to connect object storage", "error", err)
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	submissions := repository.NewSubmissionRepository(db)
	intakeSvc := service.NewIntakeService(submissions, blobs, metricsSvc, logr, service.IntakeServiceConfig{
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	})

	intakeHandler := handler.NewIntakeHandler(intakeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	// Legacy liveness probe kept verbatim for existing monitors.
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hey this is my API running")
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	// Three attachments of up to MaxFileSizeBytes each, plus form fields.
	bodyCeiling := cfg.Storage.MaxFileSizeBytes*3 + 1<<20

	api := r.Group("/api")
	api.Use(middleware.BodyLimit(bodyCeiling))
	api.Use(middleware.RateLimit(redisClient, cfg.RateLimit, logr))
	api.POST("/penelitian", intakeHandler.SubmitPenelitian)
	api.POST("/magang", intakeHandler.SubmitMagang)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
