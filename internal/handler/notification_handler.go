package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/repository"
	"github.com/bartukaplan/delivery-engine/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	Submit(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	History(ctx context.Context, params repository.HistoryParams) ([]service.HistoryEntry, int64, error)
	Attempts(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
	AuditTrail(ctx context.Context, notificationID string) ([]domain.AuditLog, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.SubmitNotification)
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Get("/notifications/:id/attempts", h.GetAttempts)
	v1.Get("/notifications/:id/audit", h.GetAuditTrail)
	v1.Get("/customers/:customerId/notifications", h.GetCustomerHistory)

	return nil
}

type submitNotificationRequest struct {
	CustomerID     *string         `json:"customerId"`
	Recipient      string          `json:"recipient"`
	Channel        string          `json:"channel"`
	TemplateKey    *string         `json:"templateKey"`
	Subject        *string         `json:"subject"`
	Body           *string         `json:"body"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey *string         `json:"idempotencyKey"`
	SendAt         *time.Time      `json:"sendAt"`
}

type submitNotificationResponse struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
}

type notificationResponse struct {
	ID             string     `json:"id"`
	CustomerID     *string    `json:"customerId,omitempty"`
	Recipient      string     `json:"recipient"`
	Channel        string     `json:"channel"`
	TemplateKey    *string    `json:"templateKey,omitempty"`
	Subject        *string    `json:"subject,omitempty"`
	Body           *string    `json:"body,omitempty"`
	Status         string     `json:"status"`
	IdempotencyKey *string    `json:"idempotencyKey,omitempty"`
	SendAt         *time.Time `json:"sendAt,omitempty"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type attemptResponse struct {
	ID                string    `json:"id"`
	AttemptedAt       time.Time `json:"attemptedAt"`
	Success           bool      `json:"success"`
	Status            string    `json:"status"`
	ResponseMessage   *string   `json:"responseMessage,omitempty"`
	ErrorMessage      *string   `json:"errorMessage,omitempty"`
	RetryAfterSeconds *int      `json:"retryAfterSeconds,omitempty"`
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   *string   `json:"details,omitempty"`
}

type historyEntryResponse struct {
	Notification notificationResponse `json:"notification"`
	Attempts     []attemptResponse    `json:"attempts"`
}

type historyResponse struct {
	Data []historyEntryResponse `json:"data"`
	Meta historyMeta            `json:"meta"`
}

type historyMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) SubmitNotification(c *fiber.Ctx) error {
	var req submitNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	notification, err := requestToDomainNotification(req)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.Submit(c.Context(), &notification)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusAccepted
	if result.IsExisting {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(submitNotificationResponse{
		NotificationID: result.NotificationID,
		Status:         result.Status.String(),
	})
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	notification, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(notification))
}

func (h *NotificationHandler) GetAttempts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	attempts, err := h.service.Attempts(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toAttemptResponses(attempts))
}

func (h *NotificationHandler) GetAuditTrail(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	entries, err := h.service.AuditTrail(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, auditEntryResponse{
			ID:        entry.ID,
			Timestamp: entry.Timestamp,
			Action:    entry.Action,
			Details:   entry.Details,
		})
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *NotificationHandler) GetCustomerHistory(c *fiber.Ctx) error {
	params, err := parseHistoryParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	entries, total, err := h.service.History(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]historyEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, historyEntryResponse{
			Notification: toNotificationResponse(&entries[i].Notification),
			Attempts:     toAttemptResponses(entries[i].Attempts),
		})
	}

	return c.Status(fiber.StatusOK).JSON(historyResponse{
		Data: data,
		Meta: historyMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseHistoryParams(c *fiber.Ctx) (repository.HistoryParams, error) {
	params := repository.HistoryParams{
		CustomerID: strings.TrimSpace(c.Params("customerId")),
		Page:       c.QueryInt("page", defaultPage),
		PageSize:   c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.HistoryParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.HistoryParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.HistoryParams{}, err
		}
		params.Status = &status
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.HistoryParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.HistoryParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestToDomainNotification(req submitNotificationRequest) (domain.Notification, error) {
	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return domain.Notification{}, err
	}

	n := domain.Notification{
		CustomerID:     req.CustomerID,
		Recipient:      strings.TrimSpace(req.Recipient),
		Channel:        channel,
		TemplateKey:    req.TemplateKey,
		Subject:        req.Subject,
		Body:           req.Body,
		IdempotencyKey: req.IdempotencyKey,
		SendAt:         req.SendAt,
	}

	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		if !json.Valid(req.Payload) {
			return domain.Notification{}, fmt.Errorf("%w: payload must be valid JSON", domain.ErrValidation)
		}
		payload := string(req.Payload)
		n.Payload = &payload
	}

	return n, nil
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:             n.ID,
		CustomerID:     n.CustomerID,
		Recipient:      n.Recipient,
		Channel:        n.Channel.String(),
		TemplateKey:    n.TemplateKey,
		Subject:        n.Subject,
		Body:           n.Body,
		Status:         n.Status.String(),
		IdempotencyKey: n.IdempotencyKey,
		SendAt:         n.SendAt,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

func toAttemptResponses(attempts []domain.DeliveryAttempt) []attemptResponse {
	responses := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, attemptResponse{
			ID:                attempt.ID,
			AttemptedAt:       attempt.AttemptedAt,
			Success:           attempt.Success,
			Status:            attempt.Status,
			ResponseMessage:   attempt.ResponseMessage,
			ErrorMessage:      attempt.ErrorMessage,
			RetryAfterSeconds: attempt.RetryAfterSeconds,
		})
	}
	return responses
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
