package domain

import "time"

// Delivery attempt status labels. Retried failures and terminal failures are
// distinguished so the history of a notification can be reconstructed from its
// attempt rows alone.
const (
	AttemptStatusSuccess = "Success"
	AttemptStatusRetry   = "Failed (retry)"
	AttemptStatusFailed  = "Failed"
)

// DeliveryAttempt records a single delivery try. Rows are append-only and are
// never mutated or deleted.
type DeliveryAttempt struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	NotificationID    string    `gorm:"type:uuid;not null"`
	AttemptedAt       time.Time `gorm:"type:timestamptz;not null"`
	Success           bool      `gorm:"not null"`
	Status            string    `gorm:"type:varchar(20);not null"`
	ResponseMessage   *string   `gorm:"type:text"`
	ErrorMessage      *string   `gorm:"type:text"`
	RetryAfterSeconds *int      `gorm:"type:int"`
}
