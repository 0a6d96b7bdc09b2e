package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository is the persistent delivery queue. ClaimNext is the concurrency
// boundary: exactly one caller claims any given ready job, no matter how many
// workers poll the same table.
type JobRepository interface {
	Enqueue(ctx context.Context, job *domain.Job) error
	ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error)
	Complete(ctx context.Context, id string, completedAt time.Time) error
	Reschedule(ctx context.Context, id string, nextAttemptAt time.Time) error
	Fail(ctx context.Context, id string, failedAt time.Time) error
	GetByNotificationID(ctx context.Context, notificationID string) (*domain.Job, error)
	PromoteDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

// GormJobRepoOptions tunes the claim protocol.
type GormJobRepoOptions struct {
	// SupportsLocking enables the transactional FOR UPDATE SKIP LOCKED claim.
	// When false the repo falls back to a non-atomic read-then-update sequence,
	// which is unsafe with concurrent workers and acceptable only for
	// single-worker or test configurations.
	SupportsLocking bool
}

type GormJobRepo struct {
	db              *gorm.DB
	supportsLocking bool
	logger          *zap.Logger
	fallbackWarn    sync.Once
}

func NewGormJobRepo(db *gorm.DB, opts GormJobRepoOptions, logger *zap.Logger) *GormJobRepo {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GormJobRepo{
		db:              db,
		supportsLocking: opts.SupportsLocking,
		logger:          logger,
	}
}

func (r *GormJobRepo) Enqueue(ctx context.Context, job *domain.Job) error {
	model := jobModelFromDomain(job)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if job != nil {
		*job = *jobModelToDomain(model)
	}
	return nil
}

// ClaimNext selects the earliest-ready QUEUED job whose next attempt is due,
// flips it to PROCESSING and increments its attempt count. With locking
// support the select-and-update runs in one transaction using a locked read
// that skips rows held by other in-flight claims, so concurrent callers never
// observe the same job. Returns nil when nothing is ready.
func (r *GormJobRepo) ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	if !r.supportsLocking {
		return r.claimNextUnlocked(ctx, now)
	}

	var claimed *JobModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model JobModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND ready_at <= ?", domain.JobQueued, now).
			Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
			Order("ready_at ASC").
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		model.Status = domain.JobProcessing
		model.AttemptCount++
		if err := tx.
			Model(&JobModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]any{
				"status":        model.Status,
				"attempt_count": model.AttemptCount,
			}).Error; err != nil {
			return err
		}

		claimed = &model
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, nil
	}
	return jobModelToDomain(claimed), nil
}

// claimNextUnlocked is the degraded-safety fallback for stores without
// row-locking reads. The conditional update narrows the race window but a
// concurrent claimer can still observe the same candidate row.
func (r *GormJobRepo) claimNextUnlocked(ctx context.Context, now time.Time) (*domain.Job, error) {
	r.fallbackWarn.Do(func() {
		r.logger.Warn("job claim running without row locking; unsafe with concurrent workers")
	})

	var model JobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND ready_at <= ?", domain.JobQueued, now).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("ready_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ? AND status = ?", model.ID, domain.JobQueued).
		Updates(map[string]any{
			"status":        domain.JobProcessing,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race to another claimer.
		return nil, nil
	}

	model.Status = domain.JobProcessing
	model.AttemptCount++
	return jobModelToDomain(&model), nil
}

func (r *GormJobRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ? AND status = ?", id, domain.JobProcessing).
		Updates(map[string]any{
			"status":       domain.JobCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// Reschedule returns a claimed job to the queue with its next attempt due
// after the given time. The attempt count stays as incremented by the claim.
func (r *GormJobRepo) Reschedule(ctx context.Context, id string, nextAttemptAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ? AND status = ?", id, domain.JobProcessing).
		Updates(map[string]any{
			"status":          domain.JobQueued,
			"next_attempt_at": nextAttemptAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormJobRepo) Fail(ctx context.Context, id string, failedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ? AND status = ?", id, domain.JobProcessing).
		Updates(map[string]any{
			"status":       domain.JobFailed,
			"completed_at": failedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormJobRepo) GetByNotificationID(ctx context.Context, notificationID string) (*domain.Job, error) {
	var model JobModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("enqueued_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobModelToDomain(&model), nil
}

// PromoteDue moves SCHEDULED notifications whose send_at has passed into the
// queue: one new QUEUED job per notification plus a status flip to PENDING,
// committed atomically for the whole batch. Notifications that already have a
// job row are excluded so overlapping scheduler iterations (or multiple
// scheduler instances) cannot double-promote. Rows failing validation are
// skipped without aborting the batch.
func (r *GormJobRepo) PromoteDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	var promoted []domain.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []NotificationModel
		err := tx.
			Where("status = ? AND send_at IS NOT NULL AND send_at <= ?", domain.StatusScheduled, now).
			Where("NOT EXISTS (SELECT 1 FROM notification_jobs j WHERE j.notification_id = notifications.id)").
			Order("send_at ASC").
			Limit(limit).
			Find(&models).Error
		if err != nil {
			return err
		}

		for i := range models {
			notification := notificationModelToDomain(&models[i])
			if err := notification.Validate(); err != nil {
				r.logger.Warn("skipping unpromotable scheduled notification",
					zap.String("notificationId", notification.ID),
					zap.Error(err),
				)
				continue
			}

			job := JobModel{
				ID:             uuid.NewString(),
				NotificationID: notification.ID,
				Status:         domain.JobQueued,
				AttemptCount:   0,
				EnqueuedAt:     now,
				ReadyAt:        now,
			}
			if err := tx.Create(&job).Error; err != nil {
				return err
			}

			result := tx.
				Model(&NotificationModel{}).
				Where("id = ? AND status = ?", notification.ID, domain.StatusScheduled).
				Update("status", domain.StatusPending)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domain.ErrConflict
			}

			notification.Status = domain.StatusPending
			promoted = append(promoted, *notification)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return promoted, nil
}
