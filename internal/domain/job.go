package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the processing state of a queued delivery job.
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) IsValid() bool {
	switch s {
	case JobQueued, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the job can no longer be claimed.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

func ParseJobStatusFromString(s string) (JobStatus, error) {
	st := JobStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid job status %q", ErrValidation, s)
	}
	return st, nil
}

// Job is one delivery pipeline slot for a notification. A notification has at
// most one job in a non-terminal state; a failed attempt advances NextAttemptAt
// and AttemptCount on the same row instead of creating a new one.
type Job struct {
	ID             string     `gorm:"type:uuid;primaryKey"`
	NotificationID string     `gorm:"type:uuid;not null"`
	Status         JobStatus  `gorm:"type:varchar(20);not null"`
	AttemptCount   int        `gorm:"not null;default:0"`
	EnqueuedAt     time.Time  `gorm:"type:timestamptz;not null"`
	ReadyAt        time.Time  `gorm:"type:timestamptz;not null"`
	NextAttemptAt  *time.Time `gorm:"type:timestamptz"`
	CompletedAt    *time.Time `gorm:"type:timestamptz"`
}
