package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/repository"
	"github.com/bartukaplan/delivery-engine/internal/service"
	"github.com/bartukaplan/delivery-engine/internal/transport"
)

type stubNotificationService struct {
	submitFn     func(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.Notification, error)
	historyFn    func(ctx context.Context, params repository.HistoryParams) ([]service.HistoryEntry, int64, error)
	attemptsFn   func(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
	auditTrailFn func(ctx context.Context, notificationID string) ([]domain.AuditLog, error)
}

func (s *stubNotificationService) Submit(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, n)
	}
	return nil, errors.New("not implemented")
}

func (s *stubNotificationService) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubNotificationService) History(ctx context.Context, params repository.HistoryParams) ([]service.HistoryEntry, int64, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubNotificationService) Attempts(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	if s.attemptsFn != nil {
		return s.attemptsFn(ctx, notificationID)
	}
	return nil, nil
}

func (s *stubNotificationService) AuditTrail(ctx context.Context, notificationID string) ([]domain.AuditLog, error) {
	if s.auditTrailFn != nil {
		return s.auditTrailFn(ctx, notificationID)
	}
	return nil, nil
}

func newNotificationTestApp(t *testing.T, svc NotificationService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterNotificationRoutes(app, svc); err != nil {
		t.Fatalf("RegisterNotificationRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestSubmitNotificationAccepted(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		submitFn: func(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error) {
			if n.Channel != domain.ChannelEmail {
				t.Fatalf("channel = %s, want EMAIL", n.Channel)
			}
			if n.Payload == nil || !strings.Contains(*n.Payload, "Ada") {
				t.Fatal("payload should be forwarded as raw JSON")
			}
			return &service.SubmitResult{NotificationID: "n-1", Status: domain.StatusPending}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	body := `{"channel":"email","recipient":"user@example.com","templateKey":"welcome","payload":{"name":"Ada"}}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result["notificationId"] != "n-1" {
		t.Fatalf("notificationId = %v, want n-1", result["notificationId"])
	}
	if result["status"] != domain.StatusPending.String() {
		t.Fatalf("status = %v, want PENDING", result["status"])
	}
}

func TestSubmitNotificationReplayReturnsOK(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		submitFn: func(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error) {
			return &service.SubmitResult{NotificationID: "n-1", Status: domain.StatusSent, IsExisting: true}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	body := `{"channel":"email","recipient":"user@example.com","body":"hi","idempotencyKey":"k1"}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for replay", resp.StatusCode)
	}
}

func TestSubmitNotificationBadRequests(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		submitFn: func(ctx context.Context, n *domain.Notification) (*service.SubmitResult, error) {
			if err := n.Validate(); err != nil {
				return nil, err
			}
			return &service.SubmitResult{NotificationID: "n-1", Status: domain.StatusPending}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"channel":`},
		{name: "unknown channel", body: `{"channel":"fax","recipient":"x","body":"hi"}`},
		{name: "missing recipient", body: `{"channel":"email","body":"hi"}`},
		{name: "invalid payload", body: `{"channel":"email","recipient":"x","body":"hi","payload":"{broken"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications", tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetNotificationNotFound(t *testing.T) {
	t.Parallel()

	app := newNotificationTestApp(t, &stubNotificationService{})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/notifications/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetNotificationFound(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubNotificationService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Notification, error) {
			return &domain.Notification{
				ID:        id,
				Recipient: "user@example.com",
				Channel:   domain.ChannelEmail,
				Status:    domain.StatusSent,
				SentAt:    &sentAt,
			}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/notifications/n-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result["id"] != "n-1" || result["status"] != "SENT" {
		t.Fatalf("body = %v, want id n-1 with SENT status", result)
	}
}

func TestGetCustomerHistoryPassesParams(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		historyFn: func(ctx context.Context, params repository.HistoryParams) ([]service.HistoryEntry, int64, error) {
			if params.CustomerID != "cust-1" {
				t.Fatalf("customer id = %s, want cust-1", params.CustomerID)
			}
			if params.Page != 2 || params.PageSize != 10 {
				t.Fatalf("paging = %d/%d, want 2/10", params.Page, params.PageSize)
			}
			if params.Status == nil || *params.Status != domain.StatusFailed {
				t.Fatal("status filter should be parsed")
			}
			return []service.HistoryEntry{
				{Notification: domain.Notification{ID: "n-1", Status: domain.StatusFailed}},
			}, 11, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/customers/cust-1/notifications?page=2&pageSize=10&status=failed", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var result historyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result.Meta.Total != 11 {
		t.Fatalf("total = %d, want 11", result.Meta.Total)
	}
	if len(result.Data) != 1 {
		t.Fatalf("entries = %d, want 1", len(result.Data))
	}
}

func TestGetCustomerHistoryRejectsBadPaging(t *testing.T) {
	t.Parallel()

	app := newNotificationTestApp(t, &stubNotificationService{})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/customers/cust-1/notifications?pageSize=9999", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetAuditTrail(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		auditTrailFn: func(ctx context.Context, notificationID string) ([]domain.AuditLog, error) {
			id := notificationID
			return []domain.AuditLog{
				{ID: "a-1", Action: domain.AuditNotificationCreated, NotificationID: &id},
				{ID: "a-2", Action: domain.AuditNotificationSent, NotificationID: &id},
			}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/notifications/n-1/audit", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var entries []auditEntryResponse
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Action != domain.AuditNotificationCreated {
		t.Fatalf("first action = %s, want %s", entries[0].Action, domain.AuditNotificationCreated)
	}
}
