package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/repository"
)

// NotificationService owns intake, idempotent submission, and read queries.
type NotificationService struct {
	notifications repository.NotificationRepository
	jobs          repository.JobRepository
	attempts      repository.AttemptRepository
	audit         repository.AuditRepository
	logger        *zap.Logger
	now           func() time.Time
}

// SubmitResult reports the accepted notification. IsExisting is true when
// the idempotency key matched a previously accepted submission.
type SubmitResult struct {
	NotificationID string
	Status         domain.Status
	IsExisting     bool
}

// HistoryEntry pairs a notification with its recorded delivery attempts.
type HistoryEntry struct {
	Notification domain.Notification
	Attempts     []domain.DeliveryAttempt
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	jobs repository.JobRepository,
	attempts repository.AttemptRepository,
	audit repository.AuditRepository,
	logger *zap.Logger,
) (*NotificationService, error) {
	if notifications == nil || jobs == nil || attempts == nil || audit == nil {
		return nil, fmt.Errorf("notification, job, attempt, and audit repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		notifications: notifications,
		jobs:          jobs,
		attempts:      attempts,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Submit validates and persists a notification, enqueues a delivery job when
// the notification is immediately due, and resolves idempotency-key replays
// to the original submission.
func (s *NotificationService) Submit(ctx context.Context, notification *domain.Notification) (*SubmitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now().UTC()
	if err := prepareNotificationForSubmit(notification, now); err != nil {
		return nil, err
	}

	if notification.IdempotencyKey != nil {
		existing, err := s.notifications.GetByIdempotencyKey(ctx, *notification.IdempotencyKey)
		if err == nil {
			return &SubmitResult{
				NotificationID: existing.ID,
				Status:         existing.Status,
				IsExisting:     true,
			}, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		existing, resolved, resolveErr := s.resolveIdempotencyConflict(ctx, err, notification.IdempotencyKey)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if resolved {
			return &SubmitResult{
				NotificationID: existing.ID,
				Status:         existing.Status,
				IsExisting:     true,
			}, nil
		}
		return nil, err
	}

	s.recordAudit(ctx, domain.AuditNotificationCreated, notification.ID,
		fmt.Sprintf("channel=%s recipient=%s status=%s", notification.Channel, notification.Recipient, notification.Status))

	if notification.Status == domain.StatusPending {
		job := &domain.Job{
			ID:             uuid.NewString(),
			NotificationID: notification.ID,
			Status:         domain.JobQueued,
			EnqueuedAt:     now,
			ReadyAt:        now,
		}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to enqueue delivery job: %w", err)
		}
		s.recordAudit(ctx, domain.AuditNotificationEnqueued, notification.ID,
			fmt.Sprintf("job=%s", job.ID))
	}

	return &SubmitResult{
		NotificationID: notification.ID,
		Status:         notification.Status,
	}, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}
	return s.notifications.GetByID(ctx, strings.TrimSpace(id))
}

// History returns a customer's notifications with their delivery attempts.
func (s *NotificationService) History(ctx context.Context, params repository.HistoryParams) ([]HistoryEntry, int64, error) {
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, 0, fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}

	notifications, total, err := s.notifications.ListByCustomer(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if len(notifications) == 0 {
		return []HistoryEntry{}, total, nil
	}

	ids := make([]string, len(notifications))
	for i := range notifications {
		ids[i] = notifications[i].ID
	}

	attempts, err := s.attempts.GetByNotificationIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load delivery attempts: %w", err)
	}

	byNotification := make(map[string][]domain.DeliveryAttempt, len(notifications))
	for _, attempt := range attempts {
		byNotification[attempt.NotificationID] = append(byNotification[attempt.NotificationID], attempt)
	}

	entries := make([]HistoryEntry, len(notifications))
	for i := range notifications {
		entries[i] = HistoryEntry{
			Notification: notifications[i],
			Attempts:     byNotification[notifications[i].ID],
		}
	}

	return entries, total, nil
}

func (s *NotificationService) Attempts(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}
	if _, err := s.notifications.GetByID(ctx, strings.TrimSpace(notificationID)); err != nil {
		return nil, err
	}
	return s.attempts.GetByNotificationID(ctx, strings.TrimSpace(notificationID))
}

func (s *NotificationService) AuditTrail(ctx context.Context, notificationID string) ([]domain.AuditLog, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}
	return s.audit.GetByNotificationID(ctx, strings.TrimSpace(notificationID))
}

func (s *NotificationService) resolveIdempotencyConflict(
	ctx context.Context,
	createErr error,
	idempotencyKey *string,
) (*domain.Notification, bool, error) {
	if idempotencyKey == nil || strings.TrimSpace(*idempotencyKey) == "" {
		return nil, false, nil
	}
	if !repository.IsUniqueViolation(createErr) {
		return nil, false, nil
	}

	existing, err := s.notifications.GetByIdempotencyKey(ctx, strings.TrimSpace(*idempotencyKey))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing notification after idempotency conflict: %w", err)
	}
	s.logger.Info("idempotency conflict resolved",
		zap.String("existingId", existing.ID),
		zap.String("idempotencyKey", *idempotencyKey),
	)
	return existing, true, nil
}

// Audit writes are best effort. A failed audit insert must never roll back
// an accepted submission.
func (s *NotificationService) recordAudit(ctx context.Context, action string, notificationID string, details string) {
	if err := s.audit.Record(ctx, action, &notificationID, &details); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.String("notificationId", notificationID),
			zap.Error(err),
		)
	}
}

func prepareNotificationForSubmit(n *domain.Notification, now time.Time) error {
	if n == nil {
		return fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}

	n.Recipient = strings.TrimSpace(n.Recipient)
	n.ID = strings.TrimSpace(n.ID)
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	n.TemplateKey = normalizeOptionalString(n.TemplateKey)
	n.Subject = normalizeOptionalString(n.Subject)
	n.Body = normalizeOptionalString(n.Body)
	n.IdempotencyKey = normalizeOptionalString(n.IdempotencyKey)
	n.CustomerID = normalizeOptionalString(n.CustomerID)

	n.Status = domain.StatusPending
	if n.SendAt != nil && n.SendAt.After(now) {
		n.Status = domain.StatusScheduled
	}
	n.SentAt = nil

	return n.Validate()
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
