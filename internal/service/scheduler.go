package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/observability"
	"github.com/bartukaplan/delivery-engine/internal/repository"
)

const (
	defaultSchedulerScanInterval = 30 * time.Second
	defaultSchedulerScanLimit    = 100
)

// Scheduler periodically promotes due scheduled notifications into the
// delivery queue.
type Scheduler struct {
	jobs     repository.JobRepository
	audit    repository.AuditSink
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	limit    int
	now      func() time.Time
}

func NewScheduler(
	jobs repository.JobRepository,
	audit repository.AuditSink,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*Scheduler, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if interval <= 0 {
		interval = defaultSchedulerScanInterval
	}
	if limit <= 0 {
		limit = defaultSchedulerScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		jobs:     jobs,
		audit:    audit,
		logger:   logger,
		interval: interval,
		limit:    limit,
		now:      time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler scan failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) scanDue(ctx context.Context) error {
	promoted, err := s.jobs.PromoteDue(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to promote due notifications: %w", err)
	}

	for i := range promoted {
		notification := promoted[i]
		s.metrics.IncScheduledPromoted()
		s.recordAudit(ctx, notification.ID)
		s.logger.Info("scheduled notification promoted",
			zap.String("notificationId", notification.ID),
			zap.String("channel", notification.Channel.String()),
		)
	}

	return nil
}

func (s *Scheduler) recordAudit(ctx context.Context, notificationID string) {
	if s.audit == nil {
		return
	}
	details := "promoted by scheduler"
	if err := s.audit.Record(ctx, domain.AuditNotificationEnqueued, &notificationID, &details); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("notificationId", notificationID),
			zap.Error(err),
		)
	}
}
