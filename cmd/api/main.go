package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/bartukaplan/delivery-engine/internal/config"
	"github.com/bartukaplan/delivery-engine/internal/handler"
	"github.com/bartukaplan/delivery-engine/internal/infra/postgresql"
	"github.com/bartukaplan/delivery-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/bartukaplan/delivery-engine/internal/infra/redis"
	"github.com/bartukaplan/delivery-engine/internal/observability"
	"github.com/bartukaplan/delivery-engine/internal/repository"
	"github.com/bartukaplan/delivery-engine/internal/service"
	"github.com/bartukaplan/delivery-engine/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	notificationRepo := repository.NewGormNotificationRepo(db)
	jobRepo := repository.NewGormJobRepo(db, repository.GormJobRepoOptions{SupportsLocking: true}, logger)
	attemptRepo := repository.NewGormAttemptRepo(db)
	auditRepo := repository.NewGormAuditRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)

	notificationService, err := service.NewNotificationService(notificationRepo, jobRepo, attemptRepo, auditRepo, logger)
	if err != nil {
		logger.Fatal("notification service init failed", zap.Error(err))
	}
	templateService, err := service.NewTemplateService(templateRepo, logger)
	if err != nil {
		logger.Fatal("template service init failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterNotificationRoutes(app, notificationService); err != nil {
		logger.Fatal("notification routes init failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(app, templateService); err != nil {
		logger.Fatal("template routes init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("delivery-engine api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}
