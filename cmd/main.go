package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-import-service/internal/bootstrap"
	"catalog-import-service/internal/clients/shopify"
	"catalog-import-service/internal/config"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/locks"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()
	logger := bootstrap.NewLogger(cfg)
	log := logger.WithField("service", "catalog-import-service")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := bootstrap.NewDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	creds, err := bootstrap.StoreCredentials(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to resolve store credentials")
	}
	storeClient, err := bootstrap.NewStoreClient(creds, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create store client")
	}

	var locker services.StoreLocker
	redisClient := bootstrap.NewRedis(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
		locker = locks.NewRedisLocker(redisClient)
	}

	var archiver services.ReportArchiver
	if a := bootstrap.NewArchiver(ctx, cfg, log); a != nil {
		archiver = a
	}

	uploadRepo := repository.NewUploadRepository(db)
	processor := services.NewBatchProcessor(storeClient, bootstrap.NewRetrier(cfg), log)
	importService := services.NewImportService(processor, uploadRepo, locker, archiver, services.ImportServiceConfig{
		StoreURL: shopify.NormalizeStoreURL(creds.StoreURL),
		LockTTL:  cfg.ImportLockTTL,
	}, log)

	checks := map[string]handlers.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	router := handlers.NewRouter(
		log,
		cfg.CORSAllowedOrigins,
		handlers.NewHealthHandler(checks),
		handlers.NewImportHandler(importService, storeClient, log),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Environment}).Info("Catalog import service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
