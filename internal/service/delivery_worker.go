package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/observability"
	"github.com/bartukaplan/delivery-engine/internal/provider"
	"github.com/bartukaplan/delivery-engine/internal/ratelimit"
	"github.com/bartukaplan/delivery-engine/internal/repository"
	"github.com/bartukaplan/delivery-engine/internal/retry"
	tmpl "github.com/bartukaplan/delivery-engine/internal/template"
)

const (
	minWorkerConcurrency  = 1
	defaultPollInterval   = time.Second
	rateLimitRetryDelay   = 5 * time.Second
	failureReasonExhaust  = "retry_exhausted"
	failureReasonPermErr  = "permanent_error"
	failureReasonNoSender = "no_sender"
)

// DeliveryWorker polls the job queue and drives notifications through
// rendering, sending, and retry bookkeeping.
type DeliveryWorker struct {
	jobs          repository.JobRepository
	notifications repository.NotificationRepository
	attempts      repository.AttemptRepository
	templates     repository.TemplateRepository
	audit         repository.AuditSink
	renderer      tmpl.Renderer
	senders       *provider.Registry
	rateLimiter   ratelimit.RateLimiter
	policy        retry.Policy
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	pollInterval  time.Duration
	now           func() time.Time
}

func NewDeliveryWorker(
	jobs repository.JobRepository,
	notifications repository.NotificationRepository,
	attempts repository.AttemptRepository,
	templates repository.TemplateRepository,
	audit repository.AuditSink,
	renderer tmpl.Renderer,
	senders *provider.Registry,
	rateLimiter ratelimit.RateLimiter,
	policy retry.Policy,
	concurrency int,
	pollInterval time.Duration,
	logger *zap.Logger,
) (*DeliveryWorker, error) {
	if jobs == nil || notifications == nil || attempts == nil {
		return nil, fmt.Errorf("job, notification, and attempt repositories are required")
	}
	if senders == nil {
		return nil, fmt.Errorf("sender registry is required")
	}
	if renderer == nil {
		renderer = tmpl.NewTextRenderer()
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryWorker{
		jobs:          jobs,
		notifications: notifications,
		attempts:      attempts,
		templates:     templates,
		audit:         audit,
		renderer:      renderer,
		senders:       senders,
		rateLimiter:   rateLimiter,
		policy:        policy.Normalize(),
		logger:        logger,
		concurrency:   concurrency,
		pollInterval:  pollInterval,
		now:           time.Now,
	}, nil
}

func (w *DeliveryWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start runs the configured number of polling loops until context cancellation.
func (w *DeliveryWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.logger.Info("delivery worker started", zap.Int("workerId", workerID))
			w.runLoop(groupCtx, workerID)
			w.logger.Info("delivery worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *DeliveryWorker) runLoop(ctx context.Context, workerID int) {
	w.drain(ctx, workerID)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx, workerID)
		}
	}
}

// drain claims and processes jobs until the queue has nothing due.
func (w *DeliveryWorker) drain(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.runOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("delivery iteration failed",
				zap.Int("workerId", workerID),
				zap.Error(err),
			)
			return
		}
		if !processed {
			return
		}
	}
}

// runOnce claims at most one job. A panic while processing is contained to
// the claimed job so the polling loop survives misbehaving senders.
func (w *DeliveryWorker) runOnce(ctx context.Context) (processed bool, err error) {
	job, claimErr := w.jobs.ClaimNext(ctx, w.now().UTC())
	if claimErr != nil {
		return false, fmt.Errorf("failed to claim job: %w", claimErr)
	}
	if job == nil {
		return false, nil
	}
	w.metrics.IncJobClaimed()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing job",
				zap.String("jobId", job.ID),
				zap.String("notificationId", job.NotificationID),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("panic while processing job %s: %v", job.ID, r)
			processed = true
			if settleErr := w.settleAfterPanic(ctx, job, r); settleErr != nil {
				w.logger.Error("failed to settle job after panic",
					zap.String("jobId", job.ID),
					zap.Error(settleErr),
				)
			}
		}
	}()

	if procErr := w.process(ctx, job); procErr != nil {
		return true, procErr
	}
	return true, nil
}

// settleAfterPanic books a recovered panic the same way a send failure is
// booked. The claimed attempt is recorded and the job is rescheduled with
// backoff while budget remains, then taken down the terminal path.
func (w *DeliveryWorker) settleAfterPanic(ctx context.Context, job *domain.Job, recovered any) error {
	panicErr := fmt.Errorf("panic during delivery: %v", recovered)

	notification, err := w.notifications.GetByID(ctx, job.NotificationID)
	if err != nil {
		if isNotFound(err) {
			return w.jobs.Complete(ctx, job.ID, w.now().UTC())
		}
		return fmt.Errorf("failed to load notification %s: %w", job.NotificationID, err)
	}

	channelName := strings.ToLower(notification.Channel.String())
	if !w.policy.Exhausted(job.AttemptCount) {
		return w.scheduleRetry(ctx, job, notification, channelName, panicErr)
	}
	return w.finishFailed(ctx, job, notification, channelName, failureReasonExhaust, panicErr, nil)
}

func (w *DeliveryWorker) process(ctx context.Context, job *domain.Job) error {
	notification, err := w.notifications.GetByID(ctx, job.NotificationID)
	if err != nil {
		if isNotFound(err) {
			// Orphan cleanup. Nothing was ever deliverable, so this is
			// not counted as a delivery failure.
			w.logger.Warn("job references missing notification, completing job",
				zap.String("jobId", job.ID),
				zap.String("notificationId", job.NotificationID),
			)
			return w.jobs.Complete(ctx, job.ID, w.now().UTC())
		}
		return fmt.Errorf("failed to load notification %s: %w", job.NotificationID, err)
	}

	if notification.Status.IsTerminal() {
		w.logger.Info("notification already terminal, completing job",
			zap.String("jobId", job.ID),
			zap.String("notificationId", notification.ID),
			zap.String("status", notification.Status.String()),
		)
		return w.jobs.Complete(ctx, job.ID, w.now().UTC())
	}

	channelName := strings.ToLower(notification.Channel.String())
	w.metrics.IncWorkerInFlight(channelName)
	defer w.metrics.DecWorkerInFlight(channelName)

	sender, err := w.senders.Resolve(notification.Channel)
	if err != nil {
		// No sender for the channel is not retriable.
		w.logger.Error("no sender for channel, failing notification",
			zap.String("notificationId", notification.ID),
			zap.String("channel", notification.Channel.String()),
		)
		return w.finishFailed(ctx, job, notification, channelName, failureReasonNoSender, err, nil)
	}

	subject, body := w.resolveContent(ctx, notification)

	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx, channelName); err != nil {
			// No send slot before shutdown. Release the claim with a short
			// fixed delay, not the attempt-indexed backoff, since no
			// delivery was tried and no attempt is recorded.
			nextAttemptAt := w.now().UTC().Add(rateLimitRetryDelay)
			if rescheduleErr := w.jobs.Reschedule(ctx, job.ID, nextAttemptAt); rescheduleErr != nil {
				w.logger.Error("failed to release job after rate limit wait",
					zap.String("jobId", job.ID),
					zap.Error(rescheduleErr),
				)
			}
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	delivery := provider.Delivery{
		NotificationID: notification.ID,
		Recipient:      notification.Recipient,
		Channel:        notification.Channel,
		Subject:        subject,
		Body:           body,
	}

	sendStart := w.now()
	response, sendErr := sender.Send(ctx, delivery)
	w.metrics.ObserveNotificationSendDuration(channelName, w.now().Sub(sendStart))

	if sendErr == nil {
		return w.finishSent(ctx, job, notification, channelName, response)
	}

	if provider.IsTransient(sendErr) && !w.policy.Exhausted(job.AttemptCount) {
		return w.scheduleRetry(ctx, job, notification, channelName, sendErr)
	}

	reason := failureReasonPermErr
	if provider.IsTransient(sendErr) {
		reason = failureReasonExhaust
	}
	return w.finishFailed(ctx, job, notification, channelName, reason, sendErr, nil)
}

func (w *DeliveryWorker) finishSent(
	ctx context.Context,
	job *domain.Job,
	notification *domain.Notification,
	channelName string,
	response *provider.Response,
) error {
	now := w.now().UTC()

	var responseMessage *string
	if response != nil {
		message := response.Message
		if strings.TrimSpace(response.MessageID) != "" {
			message = fmt.Sprintf("%s (message id %s)", response.Message, response.MessageID)
		}
		if strings.TrimSpace(message) != "" {
			responseMessage = &message
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:              uuid.NewString(),
		NotificationID:  notification.ID,
		AttemptedAt:     now,
		Success:         true,
		Status:          domain.AttemptStatusSuccess,
		ResponseMessage: responseMessage,
	}
	if err := w.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if err := w.notifications.MarkSent(ctx, notification.ID, now); err != nil {
		if !isConflict(err) {
			return fmt.Errorf("failed to mark notification sent: %w", err)
		}
		w.logger.Warn("notification status changed before sent mark",
			zap.String("notificationId", notification.ID),
		)
	}

	if err := w.jobs.Complete(ctx, job.ID, now); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	w.metrics.IncNotificationSent(channelName)
	w.recordAudit(ctx, domain.AuditNotificationSent, notification.ID,
		fmt.Sprintf("attempt=%d channel=%s", job.AttemptCount, channelName))
	return nil
}

func (w *DeliveryWorker) scheduleRetry(
	ctx context.Context,
	job *domain.Job,
	notification *domain.Notification,
	channelName string,
	sendErr error,
) error {
	now := w.now().UTC()
	backoff := w.policy.Backoff(job.AttemptCount)
	retryAfter := int(backoff / time.Second)
	nextAttemptAt := now.Add(backoff)

	errMsg := sendErr.Error()
	attempt := &domain.DeliveryAttempt{
		ID:                uuid.NewString(),
		NotificationID:    notification.ID,
		AttemptedAt:       now,
		Success:           false,
		Status:            domain.AttemptStatusRetry,
		ErrorMessage:      &errMsg,
		RetryAfterSeconds: &retryAfter,
	}
	if err := w.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if err := w.jobs.Reschedule(ctx, job.ID, nextAttemptAt); err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}

	w.metrics.IncRetryScheduled(channelName)
	w.logger.Info("delivery retry scheduled",
		zap.String("notificationId", notification.ID),
		zap.Int("attempt", job.AttemptCount),
		zap.Duration("backoff", backoff),
		zap.Error(sendErr),
	)
	return nil
}

func (w *DeliveryWorker) finishFailed(
	ctx context.Context,
	job *domain.Job,
	notification *domain.Notification,
	channelName string,
	reason string,
	sendErr error,
	response *provider.Response,
) error {
	now := w.now().UTC()

	var errMsg *string
	if sendErr != nil {
		value := sendErr.Error()
		errMsg = &value
	}
	var responseMessage *string
	if response != nil && strings.TrimSpace(response.Message) != "" {
		value := response.Message
		responseMessage = &value
	}

	attempt := &domain.DeliveryAttempt{
		ID:              uuid.NewString(),
		NotificationID:  notification.ID,
		AttemptedAt:     now,
		Success:         false,
		Status:          domain.AttemptStatusFailed,
		ResponseMessage: responseMessage,
		ErrorMessage:    errMsg,
	}
	if err := w.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if err := w.notifications.MarkFailed(ctx, notification.ID); err != nil {
		if !isConflict(err) {
			return fmt.Errorf("failed to mark notification failed: %w", err)
		}
		w.logger.Warn("notification status changed before failed mark",
			zap.String("notificationId", notification.ID),
		)
	}

	if err := w.jobs.Fail(ctx, job.ID, now); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	w.metrics.IncNotificationFailed(channelName, reason)
	w.recordAudit(ctx, domain.AuditNotificationFailed, notification.ID,
		fmt.Sprintf("attempt=%d reason=%s", job.AttemptCount, reason))
	return nil
}

// resolveContent produces the subject and body to hand to the sender.
// Template lookup and rendering failures degrade to the best content
// available rather than blocking delivery.
func (w *DeliveryWorker) resolveContent(ctx context.Context, notification *domain.Notification) (string, string) {
	subject := derefOrEmpty(notification.Subject)
	body := derefOrEmpty(notification.Body)

	if !notification.HasTemplate() || w.templates == nil {
		return subject, body
	}

	template, err := w.templates.GetByKey(ctx, *notification.TemplateKey)
	if err != nil {
		w.logger.Warn("template lookup failed, using literal content",
			zap.String("notificationId", notification.ID),
			zap.String("templateKey", *notification.TemplateKey),
			zap.Error(err),
		)
		return subject, body
	}

	payload, err := tmpl.ParsePayload(notification.Payload)
	if err != nil {
		w.logger.Warn("payload parse failed, using raw template text",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
		return template.Subject, template.Body
	}

	renderedSubject, err := w.renderer.Render(template.Subject, payload)
	if err != nil {
		w.logger.Warn("subject render failed, using raw template text",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
		renderedSubject = template.Subject
	}
	renderedBody, err := w.renderer.Render(template.Body, payload)
	if err != nil {
		w.logger.Warn("body render failed, using raw template text",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
		renderedBody = template.Body
	}

	return renderedSubject, renderedBody
}

func (w *DeliveryWorker) recordAudit(ctx context.Context, action string, notificationID string, details string) {
	if w.audit == nil {
		return
	}
	if err := w.audit.Record(ctx, action, &notificationID, &details); err != nil {
		w.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.String("notificationId", notificationID),
			zap.Error(err),
		)
	}
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
