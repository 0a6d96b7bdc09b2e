package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bartukaplan/delivery-engine/internal/config"
	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/infra/postgresql"
	"github.com/bartukaplan/delivery-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/bartukaplan/delivery-engine/internal/infra/redis"
	"github.com/bartukaplan/delivery-engine/internal/observability"
	"github.com/bartukaplan/delivery-engine/internal/provider"
	"github.com/bartukaplan/delivery-engine/internal/repository"
	"github.com/bartukaplan/delivery-engine/internal/retry"
	"github.com/bartukaplan/delivery-engine/internal/service"
	"github.com/bartukaplan/delivery-engine/internal/template"
)

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

	rateLimiter, err := infraredis.NewChannelRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}

	notificationRepo := repository.NewGormNotificationRepo(db)
	jobRepo := repository.NewGormJobRepo(db, repository.GormJobRepoOptions{SupportsLocking: true}, logger)
	attemptRepo := repository.NewGormAttemptRepo(db)
	auditRepo := repository.NewGormAuditRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)

	registry := provider.NewRegistry()
	if cfg.WebhookSiteURL != "" {
		webhook, err := provider.NewWebhookSender(cfg.WebhookSiteURL)
		if err != nil {
			logger.Fatal("webhook sender init failed", zap.Error(err))
		}
		for _, channel := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush} {
			if err := registry.Register(channel, webhook); err != nil {
				logger.Fatal("sender registration failed", zap.Error(err))
			}
		}
	} else {
		for _, channel := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush} {
			if err := registry.Register(channel, provider.NewMockSender(channel, logger)); err != nil {
				logger.Fatal("sender registration failed", zap.Error(err))
			}
		}
	}

	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff(),
		MaxBackoff:  cfg.MaxBackoff(),
	}

	metrics := observability.NewMetrics()

	worker, err := service.NewDeliveryWorker(
		jobRepo,
		notificationRepo,
		attemptRepo,
		templateRepo,
		auditRepo,
		template.NewTextRenderer(),
		registry,
		rateLimiter,
		policy,
		cfg.WorkerConcurrency,
		cfg.WorkerPollInterval(),
		logger,
	)
	if err != nil {
		logger.Fatal("delivery worker init failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(jobRepo, auditRepo, cfg.SchedulerInterval(), 0, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	scheduler.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("delivery-engine worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Duration("pollInterval", cfg.WorkerPollInterval()),
		zap.Duration("schedulerInterval", cfg.SchedulerInterval()),
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Start(groupCtx)
	})
	g.Go(func() error {
		return scheduler.Start(groupCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}

	logger.Info("delivery-engine worker stopped")
}
