package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/validation"
)

// ErrTemplateNotFound is returned when a template is not found.
var ErrTemplateNotFound = persistence.ErrTemplateNotFound

// Template manages stored message templates.
type Template struct {
	persistence persistence.Persistence
	validator   *validation.Validator
}

// NewTemplate creates a new template service.
func NewTemplate(persistence persistence.Persistence, validator *validation.Validator) *Template {
	return &Template{
		persistence: persistence,
		validator:   validator,
	}
}

// List returns every stored template.
func (s *Template) List(ctx context.Context) ([]*models.Template, error) {
	templates, err := s.persistence.Templates().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

// Fetch returns a template by ID.
func (s *Template) Fetch(ctx context.Context, id string) (*models.Template, error) {
	tmpl, err := s.persistence.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}

	if tmpl == nil {
		return nil, fmt.Errorf("fetch template %s: %w", id, persistence.ErrTemplateNotFound)
	}

	return tmpl, nil
}

// Save validates and stores a template, creating it when it has no ID.
func (s *Template) Save(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
	if tmpl == nil {
		return nil, NewValidationError("Save", "template cannot be nil", ErrTemplateNil)
	}

	if err := s.validator.ValidateTemplate(tmpl); err != nil {
		return nil, NewValidationError("Save", err.Error(), ErrInvalidTemplate)
	}

	now := time.Now().UTC()

	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
		tmpl.CreatedAt = now
	}

	tmpl.UpdatedAt = now

	if err := s.persistence.Templates().Save(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return tmpl, nil
}
