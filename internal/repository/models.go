package repository

import (
	"time"

	"github.com/bartukaplan/delivery-engine/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	CustomerID     *string        `gorm:"type:varchar(64)"`
	Recipient      string         `gorm:"type:varchar(255);not null"`
	Channel        domain.Channel `gorm:"type:varchar(10);not null"`
	TemplateKey    *string        `gorm:"type:varchar(100)"`
	Subject        *string        `gorm:"type:text"`
	Body           *string        `gorm:"type:text"`
	Payload        *string        `gorm:"type:jsonb"`
	Status         domain.Status  `gorm:"type:varchar(20);not null"`
	IdempotencyKey *string        `gorm:"type:varchar(255)"`
	SendAt         *time.Time     `gorm:"type:timestamptz"`
	SentAt         *time.Time     `gorm:"type:timestamptz"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// JobModel is the persistence model for the notification_jobs table.
type JobModel struct {
	ID             string           `gorm:"type:uuid;primaryKey"`
	NotificationID string           `gorm:"type:uuid;not null"`
	Status         domain.JobStatus `gorm:"type:varchar(20);not null"`
	AttemptCount   int              `gorm:"not null;default:0"`
	EnqueuedAt     time.Time        `gorm:"type:timestamptz;not null"`
	ReadyAt        time.Time        `gorm:"type:timestamptz;not null"`
	NextAttemptAt  *time.Time       `gorm:"type:timestamptz"`
	CompletedAt    *time.Time       `gorm:"type:timestamptz"`
}

func (JobModel) TableName() string {
	return "notification_jobs"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	NotificationID    string    `gorm:"type:uuid;not null"`
	AttemptedAt       time.Time `gorm:"type:timestamptz;not null"`
	Success           bool      `gorm:"not null"`
	Status            string    `gorm:"type:varchar(20);not null"`
	ResponseMessage   *string   `gorm:"type:text"`
	ErrorMessage      *string   `gorm:"type:text"`
	RetryAfterSeconds *int      `gorm:"type:int"`
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// AuditLogModel is the persistence model for audit_logs.
type AuditLogModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Timestamp      time.Time `gorm:"type:timestamptz;not null"`
	Action         string    `gorm:"type:varchar(100);not null"`
	NotificationID *string   `gorm:"type:uuid"`
	Details        *string   `gorm:"type:text"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// TemplateModel is the persistence model for templates.
type TemplateModel struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Key       string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Subject   string     `gorm:"type:text;not null"`
	Body      string     `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt *time.Time `gorm:"type:timestamptz"`
}

func (TemplateModel) TableName() string {
	return "templates"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:             n.ID,
		CustomerID:     n.CustomerID,
		Recipient:      n.Recipient,
		Channel:        n.Channel,
		TemplateKey:    n.TemplateKey,
		Subject:        n.Subject,
		Body:           n.Body,
		Payload:        n.Payload,
		Status:         n.Status,
		IdempotencyKey: n.IdempotencyKey,
		SendAt:         n.SendAt,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		Recipient:      m.Recipient,
		Channel:        m.Channel,
		TemplateKey:    m.TemplateKey,
		Subject:        m.Subject,
		Body:           m.Body,
		Payload:        m.Payload,
		Status:         m.Status,
		IdempotencyKey: m.IdempotencyKey,
		SendAt:         m.SendAt,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func jobModelFromDomain(j *domain.Job) *JobModel {
	if j == nil {
		return nil
	}

	return &JobModel{
		ID:             j.ID,
		NotificationID: j.NotificationID,
		Status:         j.Status,
		AttemptCount:   j.AttemptCount,
		EnqueuedAt:     j.EnqueuedAt,
		ReadyAt:        j.ReadyAt,
		NextAttemptAt:  j.NextAttemptAt,
		CompletedAt:    j.CompletedAt,
	}
}

func jobModelToDomain(m *JobModel) *domain.Job {
	if m == nil {
		return nil
	}

	return &domain.Job{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		Status:         m.Status,
		AttemptCount:   m.AttemptCount,
		EnqueuedAt:     m.EnqueuedAt,
		ReadyAt:        m.ReadyAt,
		NextAttemptAt:  m.NextAttemptAt,
		CompletedAt:    m.CompletedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:                a.ID,
		NotificationID:    a.NotificationID,
		AttemptedAt:       a.AttemptedAt,
		Success:           a.Success,
		Status:            a.Status,
		ResponseMessage:   a.ResponseMessage,
		ErrorMessage:      a.ErrorMessage,
		RetryAfterSeconds: a.RetryAfterSeconds,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:                m.ID,
		NotificationID:    m.NotificationID,
		AttemptedAt:       m.AttemptedAt,
		Success:           m.Success,
		Status:            m.Status,
		ResponseMessage:   m.ResponseMessage,
		ErrorMessage:      m.ErrorMessage,
		RetryAfterSeconds: m.RetryAfterSeconds,
	}
}

func auditModelFromDomain(a *domain.AuditLog) *AuditLogModel {
	if a == nil {
		return nil
	}

	return &AuditLogModel{
		ID:             a.ID,
		Timestamp:      a.Timestamp,
		Action:         a.Action,
		NotificationID: a.NotificationID,
		Details:        a.Details,
	}
}

func auditModelToDomain(m *AuditLogModel) *domain.AuditLog {
	if m == nil {
		return nil
	}

	return &domain.AuditLog{
		ID:             m.ID,
		Timestamp:      m.Timestamp,
		Action:         m.Action,
		NotificationID: m.NotificationID,
		Details:        m.Details,
	}
}

func templateModelFromDomain(t *domain.Template) *TemplateModel {
	if t == nil {
		return nil
	}

	return &TemplateModel{
		ID:        t.ID,
		Key:       t.Key,
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	return &domain.Template{
		ID:        m.ID,
		Key:       m.Key,
		Subject:   m.Subject,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
