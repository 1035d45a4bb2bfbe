package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-merit/api/swagger"
	"github.com/noah-isme/sma-merit/internal/handler"
	"github.com/noah-isme/sma-merit/internal/middleware"
	"github.com/noah-isme/sma-merit/internal/repository"
	"github.com/noah-isme/sma-merit/internal/service"
	"github.com/noah-isme/sma-merit/pkg/cache"
	"github.com/noah-isme/sma-merit/pkg/config"
	"github.com/noah-isme/sma-merit/pkg/database"
	"github.com/noah-isme/sma-merit/pkg/jobs"
	"github.com/noah-isme/sma-merit/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-merit/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-merit/pkg/middleware/requestid"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

const jobExportCleanup = "exports.cleanup"

// @title SMA Merit API
// @version 1.0.0
// @description Merit, demerit and offset point ledger
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	summaryStore := repository.NewSummaryStore(redisClient, logr)
	defer summaryStore.Close() //nolint:errcheck
	summaryCache := service.NewSummaryCache(summaryStore, metrics, cfg.Cache.TTL, logr, redisClient != nil)

	recordRepo := repository.NewRecordRepository(db, metrics)
	credentialRepo := repository.NewCredentialRepository(db)

	backupStore, err := storage.NewLocalStorage(cfg.Backups.StorageDir)
	if err != nil {
		logr.Fatal("backup storage unavailable", zap.Error(err))
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.TTL)

	authSvc := service.NewAuthService(credentialRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		DefaultPassword:   cfg.Auth.DefaultPassword,
	})
	if err := authSvc.EnsureCredential(ctx); err != nil {
		logr.Fatal("credential bootstrap failed", zap.Error(err))
	}
	recordSvc := service.NewRecordService(recordRepo, summaryCache, metrics, validate, logr)
	backupSvc := service.NewBackupService(recordRepo, backupStore, recordSvc, metrics, logr)
	exportSvc := service.NewExportService(recordSvc, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.TTL,
	}, validate, logr, nil, nil)

	queue := jobs.NewQueue("maintenance", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})
	queue.Register(jobExportCleanup, func(ctx context.Context, _ jobs.Job) error {
		_, err := exportSvc.Cleanup(ctx)
		return err
	})
	queue.Start(ctx)
	defer queue.Stop()
	queue.Every(cfg.Exports.CleanupInterval, func() jobs.Job {
		return jobs.Job{Type: jobExportCleanup}
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RequestMetrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Records: handler.NewRecordHandler(recordSvc),
		Backups: handler.NewBackupHandler(backupSvc),
		Exports: handler.NewExportHandler(exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, db),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
