package repository

import (
	"context"
	"time"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditSink appends lifecycle events. Writes must not be silently dropped, but
// callers treat failures as non-fatal to the triggering operation.
type AuditSink interface {
	Record(ctx context.Context, action string, notificationID *string, details *string) error
}

type AuditRepository interface {
	AuditSink
	GetByNotificationID(ctx context.Context, notificationID string) ([]domain.AuditLog, error)
}

type GormAuditRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db, now: time.Now}
}

func (r *GormAuditRepo) Record(ctx context.Context, action string, notificationID *string, details *string) error {
	model := AuditLogModel{
		ID:             uuid.NewString(),
		Timestamp:      r.now().UTC(),
		Action:         action,
		NotificationID: notificationID,
		Details:        details,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormAuditRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.AuditLog, error) {
	var models []AuditLogModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("timestamp ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.AuditLog, 0, len(models))
	for i := range models {
		logs = append(logs, *auditModelToDomain(&models[i]))
	}

	return logs, nil
}
