package service

import (
	"context"
	"sync"
	"time"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/provider"
	"github.com/bartukaplan/delivery-engine/internal/ratelimit"
	"github.com/bartukaplan/delivery-engine/internal/repository"
)

type fakeNotificationRepo struct {
	createFn              func(ctx context.Context, n *domain.Notification) error
	getByIDFn             func(ctx context.Context, id string) (*domain.Notification, error)
	getByIdempotencyKeyFn func(ctx context.Context, key string) (*domain.Notification, error)
	markSentFn            func(ctx context.Context, id string, sentAt time.Time) error
	markFailedFn          func(ctx context.Context, id string) error
	listByCustomerFn      func(ctx context.Context, params repository.HistoryParams) ([]domain.Notification, int64, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Notification, error) {
	if f.getByIdempotencyKeyFn != nil {
		return f.getByIdempotencyKeyFn(ctx, key)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id, sentAt)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkFailed(ctx context.Context, id string) error {
	if f.markFailedFn != nil {
		return f.markFailedFn(ctx, id)
	}
	return nil
}

func (f *fakeNotificationRepo) ListByCustomer(ctx context.Context, params repository.HistoryParams) ([]domain.Notification, int64, error) {
	if f.listByCustomerFn != nil {
		return f.listByCustomerFn(ctx, params)
	}
	return nil, 0, nil
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

type fakeJobRepo struct {
	enqueueFn             func(ctx context.Context, job *domain.Job) error
	claimNextFn           func(ctx context.Context, now time.Time) (*domain.Job, error)
	completeFn            func(ctx context.Context, id string, completedAt time.Time) error
	rescheduleFn          func(ctx context.Context, id string, nextAttemptAt time.Time) error
	failFn                func(ctx context.Context, id string, failedAt time.Time) error
	getByNotificationIDFn func(ctx context.Context, notificationID string) (*domain.Job, error)
	promoteDueFn          func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, job *domain.Job) error {
	if f.enqueueFn != nil {
		return f.enqueueFn(ctx, job)
	}
	return nil
}

func (f *fakeJobRepo) ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	if f.claimNextFn != nil {
		return f.claimNextFn(ctx, now)
	}
	return nil, nil
}

func (f *fakeJobRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	if f.completeFn != nil {
		return f.completeFn(ctx, id, completedAt)
	}
	return nil
}

func (f *fakeJobRepo) Reschedule(ctx context.Context, id string, nextAttemptAt time.Time) error {
	if f.rescheduleFn != nil {
		return f.rescheduleFn(ctx, id, nextAttemptAt)
	}
	return nil
}

func (f *fakeJobRepo) Fail(ctx context.Context, id string, failedAt time.Time) error {
	if f.failFn != nil {
		return f.failFn(ctx, id, failedAt)
	}
	return nil
}

func (f *fakeJobRepo) GetByNotificationID(ctx context.Context, notificationID string) (*domain.Job, error) {
	if f.getByNotificationIDFn != nil {
		return f.getByNotificationIDFn(ctx, notificationID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) PromoteDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.promoteDueFn != nil {
		return f.promoteDueFn(ctx, now, limit)
	}
	return nil, nil
}

var _ repository.JobRepository = (*fakeJobRepo)(nil)

type fakeAttemptRepo struct {
	createFn               func(ctx context.Context, a *domain.DeliveryAttempt) error
	getByNotificationIDFn  func(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
	getByNotificationIDsFn func(ctx context.Context, notificationIDs []string) ([]domain.DeliveryAttempt, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	if f.getByNotificationIDFn != nil {
		return f.getByNotificationIDFn(ctx, notificationID)
	}
	return nil, nil
}

func (f *fakeAttemptRepo) GetByNotificationIDs(ctx context.Context, notificationIDs []string) ([]domain.DeliveryAttempt, error) {
	if f.getByNotificationIDsFn != nil {
		return f.getByNotificationIDsFn(ctx, notificationIDs)
	}
	return nil, nil
}

var _ repository.AttemptRepository = (*fakeAttemptRepo)(nil)

type fakeAuditRepo struct {
	recordFn              func(ctx context.Context, action string, notificationID *string, details *string) error
	getByNotificationIDFn func(ctx context.Context, notificationID string) ([]domain.AuditLog, error)
}

func (f *fakeAuditRepo) Record(ctx context.Context, action string, notificationID *string, details *string) error {
	if f.recordFn != nil {
		return f.recordFn(ctx, action, notificationID, details)
	}
	return nil
}

func (f *fakeAuditRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.AuditLog, error) {
	if f.getByNotificationIDFn != nil {
		return f.getByNotificationIDFn(ctx, notificationID)
	}
	return nil, nil
}

var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

type fakeTemplateRepo struct {
	createFn   func(ctx context.Context, t *domain.Template) error
	getByIDFn  func(ctx context.Context, id string) (*domain.Template, error)
	getByKeyFn func(ctx context.Context, key string) (*domain.Template, error)
	listFn     func(ctx context.Context) ([]domain.Template, error)
	updateFn   func(ctx context.Context, t *domain.Template) error
	deleteFn   func(ctx context.Context, id string) error
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) GetByKey(ctx context.Context, key string) (*domain.Template, error) {
	if f.getByKeyFn != nil {
		return f.getByKeyFn(ctx, key)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, t)
	}
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

var _ repository.TemplateRepository = (*fakeTemplateRepo)(nil)

type fakeSender struct {
	sendFn func(ctx context.Context, delivery provider.Delivery) (*provider.Response, error)
}

func (f *fakeSender) Send(ctx context.Context, delivery provider.Delivery) (*provider.Response, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, delivery)
	}
	return &provider.Response{Message: "ok"}, nil
}

var _ provider.Sender = (*fakeSender)(nil)

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)

// memoryJobRepo backs concurrency tests with claim-once semantics.
type memoryJobRepo struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (m *memoryJobRepo) Enqueue(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs = append(m.jobs, &copied)
	return nil
}

func (m *memoryJobRepo) ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		ready := !job.ReadyAt.After(now) && (job.NextAttemptAt == nil || !job.NextAttemptAt.After(now))
		if job.Status == domain.JobQueued && ready {
			job.Status = domain.JobProcessing
			job.AttemptCount++
			claimed := *job
			return &claimed, nil
		}
	}
	return nil, nil
}

func (m *memoryJobRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	return m.transition(id, domain.JobCompleted, &completedAt, nil)
}

func (m *memoryJobRepo) Reschedule(ctx context.Context, id string, nextAttemptAt time.Time) error {
	return m.transition(id, domain.JobQueued, nil, &nextAttemptAt)
}

func (m *memoryJobRepo) Fail(ctx context.Context, id string, failedAt time.Time) error {
	return m.transition(id, domain.JobFailed, &failedAt, nil)
}

func (m *memoryJobRepo) transition(id string, status domain.JobStatus, completedAt *time.Time, nextAttemptAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID != id {
			continue
		}
		if job.Status != domain.JobProcessing {
			return domain.ErrConflict
		}
		job.Status = status
		job.CompletedAt = completedAt
		job.NextAttemptAt = nextAttemptAt
		return nil
	}
	return domain.ErrNotFound
}

func (m *memoryJobRepo) GetByNotificationID(ctx context.Context, notificationID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.NotificationID == notificationID {
			copied := *job
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryJobRepo) PromoteDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	return nil, nil
}

var _ repository.JobRepository = (*memoryJobRepo)(nil)
