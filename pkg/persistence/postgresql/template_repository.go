package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// TemplateRepository handles message template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const templateColumns = `
	id
  , name
  , subject
  , body
  , from_name
  , from_email
  , channel
  , active
  , created_at
  , updated_at
`

func (r *TemplateRepository) GetAll(ctx context.Context) ([]*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	templates := make([]*models.Template, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	now := time.Now().UTC()

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	query := `
		INSERT INTO templates (id, name, subject, body, from_name, from_email, channel, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , subject = EXCLUDED.subject
		  , body = EXCLUDED.body
		  , from_name = EXCLUDED.from_name
		  , from_email = EXCLUDED.from_email
		  , channel = EXCLUDED.channel
		  , active = EXCLUDED.active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		template.ID, template.Name, template.Subject, template.Body,
		template.FromName, template.FromEmail, string(template.Channel),
		template.Active, template.CreatedAt, template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		template models.Template
		channel  string
	)

	err := row.Scan(
		&template.ID, &template.Name, &template.Subject, &template.Body,
		&template.FromName, &template.FromEmail, &channel, &template.Active,
		&template.CreatedAt, &template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	template.Channel = models.MessageChannel(channel)

	return &template, nil
}
