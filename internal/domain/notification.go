package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification.
//
// Transitions move forward only:
//
//	SCHEDULED -> PENDING -> SENT | FAILED
//
// Immediate sends start at PENDING. SENT and FAILED are terminal.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a forward transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusPending
	case StatusPending:
		return next == StatusSent || next == StatusFailed
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Notification is the core domain entity: one request to deliver a message
// to a recipient over a channel. Content comes either from a stored template
// (TemplateKey + Payload) or from literal Subject and Body.
type Notification struct {
	ID             string     `gorm:"type:uuid;primaryKey"`
	CustomerID     *string    `gorm:"type:varchar(64)"`
	Recipient      string     `gorm:"type:varchar(255);not null"`
	Channel        Channel    `gorm:"type:varchar(10);not null"`
	TemplateKey    *string    `gorm:"type:varchar(100)"`
	Subject        *string    `gorm:"type:text"`
	Body           *string    `gorm:"type:text"`
	Payload        *string    `gorm:"type:jsonb"`
	Status         Status     `gorm:"type:varchar(20);not null"`
	IdempotencyKey *string    `gorm:"type:varchar(255)"`
	SendAt         *time.Time `gorm:"type:timestamptz"`
	SentAt         *time.Time `gorm:"type:timestamptz"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !n.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, n.Channel)
	}
	if !n.HasTemplate() && !n.HasLiteralContent() {
		return fmt.Errorf("%w: either a template key or both subject and body are required", ErrValidation)
	}
	return nil
}

// HasTemplate reports whether content should be rendered from a stored template.
func (n *Notification) HasTemplate() bool {
	return n.TemplateKey != nil && strings.TrimSpace(*n.TemplateKey) != ""
}

// HasLiteralContent reports whether the notification carries inline subject and body.
func (n *Notification) HasLiteralContent() bool {
	return n.Subject != nil && strings.TrimSpace(*n.Subject) != "" &&
		n.Body != nil && strings.TrimSpace(*n.Body) != ""
}
