package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/bartukaplan/delivery-engine/internal/domain"
)

// Delivery is the rendered message handed to a channel sender.
type Delivery struct {
	NotificationID string
	Recipient      string
	Channel        domain.Channel
	Subject        string
	Body           string
}

// Response stores sender call metadata for audit and persistence.
type Response struct {
	Message   string
	MessageID string
}

// Sender is the outbound delivery port for one channel.
type Sender interface {
	Send(ctx context.Context, delivery Delivery) (*Response, error)
}

// Registry resolves a channel to its registered sender. A channel without a
// sender is a configuration error the delivery pipeline treats as terminal.
type Registry struct {
	mu      sync.RWMutex
	senders map[domain.Channel]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[domain.Channel]Sender)}
}

func (r *Registry) Register(channel domain.Channel, sender Sender) error {
	if !channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
	if sender == nil {
		return fmt.Errorf("%w: sender is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[channel] = sender
	return nil
}

func (r *Registry) Resolve(channel domain.Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sender, ok := r.senders[channel]
	if !ok {
		return nil, fmt.Errorf("%w: no sender registered for channel %s", domain.ErrConfiguration, channel)
	}
	return sender, nil
}

// Channels returns the channels with a registered sender.
func (r *Registry) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]domain.Channel, 0, len(r.senders))
	for channel := range r.senders {
		channels = append(channels, channel)
	}
	return channels
}
