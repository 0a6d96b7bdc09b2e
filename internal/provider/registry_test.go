package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"go.uber.org/zap"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	sender := NewMockSender(domain.ChannelEmail, zap.NewNop())

	if err := registry.Register(domain.ChannelEmail, sender); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := registry.Resolve(domain.ChannelEmail)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != Sender(sender) {
		t.Fatal("Resolve() returned a different sender")
	}
}

func TestRegistryResolveMissingIsConfigurationError(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	_, err := registry.Resolve(domain.ChannelPush)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Resolve() error = %v, want ErrConfiguration", err)
	}
}

func TestRegistryRegisterValidation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if err := registry.Register(domain.Channel("FAX"), NewMockSender(domain.ChannelSMS, nil)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
	if err := registry.Register(domain.ChannelSMS, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
}

func TestMockSenderSend(t *testing.T) {
	t.Parallel()

	sender := NewMockSender(domain.ChannelSMS, zap.NewNop())

	resp, err := sender.Send(context.Background(), Delivery{
		NotificationID: "n1",
		Recipient:      "+905551112233",
		Channel:        domain.ChannelSMS,
		Body:           "hello",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.MessageID == "" {
		t.Fatal("mock sender should assign a message id")
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sender.Send(canceled, Delivery{}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
