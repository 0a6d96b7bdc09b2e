package domain

import "time"

// Audit actions recorded over a notification's lifecycle.
const (
	AuditNotificationCreated  = "NotificationCreated"
	AuditNotificationEnqueued = "NotificationEnqueued"
	AuditNotificationSent     = "NotificationSent"
	AuditNotificationFailed   = "NotificationFailed"
)

// AuditLog is an append-only event record.
type AuditLog struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Timestamp      time.Time `gorm:"type:timestamptz;not null"`
	Action         string    `gorm:"type:varchar(100);not null"`
	NotificationID *string   `gorm:"type:uuid"`
	Details        *string   `gorm:"type:text"`
}
