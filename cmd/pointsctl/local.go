package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/client"
	"github.com/noah-isme/sma-merit/internal/repository"
	"github.com/noah-isme/sma-merit/internal/service"
	"github.com/noah-isme/sma-merit/pkg/cache"
	"github.com/noah-isme/sma-merit/pkg/config"
	"github.com/noah-isme/sma-merit/pkg/database"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

// newLocalBackend wires the services against the configured database. When the
// summary cache is enabled it is invalidated exactly as the API server would.
func newLocalBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*client.LocalBackend, func(), error) {
	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		return nil, nil, fmt.Errorf("database unavailable: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
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
	summaryCache := service.NewSummaryCache(summaryStore, metrics, cfg.Cache.TTL, logr, redisClient != nil)

	backupStore, err := storage.NewLocalStorage(cfg.Backups.StorageDir)
	if err != nil {
		_ = summaryStore.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("backup storage: %w", err)
	}

	recordRepo := repository.NewRecordRepository(db, metrics)
	authSvc := service.NewAuthService(repository.NewCredentialRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		DefaultPassword:   cfg.Auth.DefaultPassword,
	})
	if err := authSvc.EnsureCredential(ctx); err != nil {
		_ = summaryStore.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("credential bootstrap: %w", err)
	}
	recordSvc := service.NewRecordService(recordRepo, summaryCache, metrics, validate, logr)
	backupSvc := service.NewBackupService(recordRepo, backupStore, recordSvc, metrics, logr)

	cleanup := func() {
		_ = summaryStore.Close()
		_ = db.Close()
	}
	return client.NewLocalBackend(authSvc, recordSvc, backupSvc), cleanup, nil
}
