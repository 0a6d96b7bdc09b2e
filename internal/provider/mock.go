package provider

import (
	"context"
	"fmt"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockSender logs deliveries instead of sending them. Used for local
// development and for channels without a real upstream configured.
type MockSender struct {
	channel domain.Channel
	logger  *zap.Logger
}

func NewMockSender(channel domain.Channel, logger *zap.Logger) *MockSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockSender{channel: channel, logger: logger}
}

func (s *MockSender) Send(ctx context.Context, delivery Delivery) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("mock delivery",
		zap.String("channel", s.channel.String()),
		zap.String("notificationId", delivery.NotificationID),
		zap.String("recipient", delivery.Recipient),
		zap.String("subject", delivery.Subject),
	)

	return &Response{
		Message:   fmt.Sprintf("mock %s delivery accepted", s.channel),
		MessageID: uuid.NewString(),
	}, nil
}
