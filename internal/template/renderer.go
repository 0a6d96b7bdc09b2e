// Package template renders stored message templates against a notification's
// payload document.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	texttemplate "text/template"
)

// Renderer produces the final message text from template text and a payload.
// Implementations must be pure: same inputs, same output.
type Renderer interface {
	Render(templateText string, payload map[string]any) (string, error)
}

// TextRenderer renders Go text/template syntax, e.g. "Hello {{.name}}".
// Unresolved placeholders are rendering errors so a half-substituted message
// is never delivered.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (r *TextRenderer) Render(templateText string, payload map[string]any) (string, error) {
	tmpl, err := texttemplate.New("message").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, payload); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return sb.String(), nil
}

// ParsePayload decodes the opaque payload document carried by a notification.
// A nil or blank payload yields an empty document.
func ParsePayload(payload *string) (map[string]any, error) {
	if payload == nil || strings.TrimSpace(*payload) == "" {
		return map[string]any{}, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(*payload), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return doc, nil
}
