package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a stored message template addressed by key. Subject and Body may
// contain placeholders resolved against a notification's payload at delivery time.
type Template struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Key       string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Subject   string     `gorm:"type:text;not null"`
	Body      string     `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt *time.Time `gorm:"type:timestamptz"`
}

func (t *Template) Validate() error {
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("%w: template key is required", ErrValidation)
	}
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("%w: template subject is required", ErrValidation)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is required", ErrValidation)
	}
	return nil
}
