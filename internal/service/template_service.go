package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bartukaplan/delivery-engine/internal/domain"
	"github.com/bartukaplan/delivery-engine/internal/repository"
)

// TemplateService owns admin CRUD for message templates.
type TemplateService struct {
	templates repository.TemplateRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewTemplateService(templates repository.TemplateRepository, logger *zap.Logger) (*TemplateService, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TemplateService{
		templates: templates,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *TemplateService) Create(ctx context.Context, template *domain.Template) (*domain.Template, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	template.Key = strings.TrimSpace(template.Key)
	template.CreatedAt = s.now().UTC()
	template.UpdatedAt = nil

	if err := template.Validate(); err != nil {
		return nil, err
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}

	s.logger.Info("template created",
		zap.String("templateId", template.ID),
		zap.String("key", template.Key),
	)
	return template, nil
}

func (s *TemplateService) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return s.templates.GetByID(ctx, strings.TrimSpace(id))
}

func (s *TemplateService) GetByKey(ctx context.Context, key string) (*domain.Template, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: template key is required", domain.ErrValidation)
	}
	return s.templates.GetByKey(ctx, strings.TrimSpace(key))
}

func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	return s.templates.List(ctx)
}

func (s *TemplateService) Update(ctx context.Context, template *domain.Template) (*domain.Template, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}
	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	template.Key = strings.TrimSpace(template.Key)

	if err := template.Validate(); err != nil {
		return nil, err
	}

	updatedAt := s.now().UTC()
	template.UpdatedAt = &updatedAt
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, err
	}

	s.logger.Info("template updated",
		zap.String("templateId", template.ID),
		zap.String("key", template.Key),
	)
	return template, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	if err := s.templates.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.logger.Info("template deleted", zap.String("templateId", id))
	return nil
}
