// Package bootstrap wires configuration into the runtime dependencies shared
// by the service and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/clients/shopify"
	"catalog-import-service/internal/config"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/report"
	"catalog-import-service/internal/secrets"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewLogger configures the process-wide logrus logger
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// StoreCredentials resolves the store credentials from Secret Manager when
// configured, otherwise from the environment.
func StoreCredentials(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (shopify.Credentials, error) {
	creds := shopify.Credentials{
		StoreURL:   cfg.Store.URL,
		APIKey:     cfg.Store.APIKey,
		Password:   cfg.Store.Password,
		APIVersion: cfg.Store.APIVersion,
	}
	if !cfg.UsesSecretManager() {
		return creds, nil
	}

	sm, err := secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
	if err != nil {
		return creds, err
	}
	defer sm.Close()

	stored, err := sm.GetStoreCredentials(ctx, cfg.ShopifySecretName)
	if err != nil {
		return creds, fmt.Errorf("failed to load store credentials: %w", err)
	}
	logger.WithField("secret", cfg.ShopifySecretName).Info("Loaded store credentials from Secret Manager")

	creds.StoreURL = stored.StoreURL
	creds.APIKey = stored.APIKey
	creds.Password = stored.Password
	if stored.APIVersion != "" {
		creds.APIVersion = stored.APIVersion
	}
	return creds, nil
}

// NewStoreClient builds the paced store API client
func NewStoreClient(creds shopify.Credentials, cfg *config.Config, logger *logrus.Entry) (*shopify.ShopifyClient, error) {
	return shopify.NewShopifyClient(creds, shopify.Options{
		RequestDelay:         cfg.Store.RequestDelay,
		ThrottledDelay:       cfg.Store.ThrottledDelay,
		QuotaThreshold:       cfg.Store.QuotaThreshold,
		MaxRequestsPerSecond: cfg.Store.MaxRequestsPerSecond,
		Timeout:              cfg.Store.Timeout,
		Logger:               logger,
	})
}

// NewRetrier builds the import retry policy
func NewRetrier(cfg *config.Config) *clients.Retrier {
	retryConfig := clients.DefaultRetryConfig()
	if cfg.ImportMaxRetries > 0 {
		retryConfig.MaxRetries = cfg.ImportMaxRetries
	}
	return clients.NewRetrier(retryConfig)
}

// NewRedis connects to Redis. It returns nil when Redis is not configured
// or unreachable; imports then run without the per-store lock.
func NewRedis(ctx context.Context, cfg *config.Config, logger *logrus.Entry) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not configured, import locking disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL, import locking disabled")
		return nil
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, import locking disabled")
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis for import locking")
	return client
}

// NewDatabase opens Postgres and migrates the import tables
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if !cfg.IsProduction() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&models.UploadHistory{}, &models.ProductUploadResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewArchiver builds the S3 report archiver, or nil when no bucket is configured
func NewArchiver(ctx context.Context, cfg *config.Config, logger *logrus.Entry) *report.S3Archiver {
	if cfg.ReportBucket == "" {
		return nil
	}
	archiver, err := report.NewS3Archiver(ctx, cfg.ReportBucket, cfg.ReportPrefix)
	if err != nil {
		logger.WithError(err).Warn("Report archiving disabled")
		return nil
	}
	return archiver
}
