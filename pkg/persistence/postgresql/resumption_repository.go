package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
)

// ResumptionRepository handles durable delay tokens.
type ResumptionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ResumptionRepository) Save(ctx context.Context, resumption *models.DelayedResumption) error {
	contextJSON, err := json.Marshal(resumption.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal resumption context: %w", err)
	}

	query := `
		INSERT INTO resumptions (id, flow_id, node_id, context, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		resumption.ID, resumption.FlowID, resumption.NodeID,
		string(contextJSON), resumption.DueAt, resumption.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save resumption %s: %w", resumption.ID, err)
	}

	return nil
}

func (r *ResumptionRepository) Due(ctx context.Context, now time.Time) ([]*models.DelayedResumption, error) {
	query := `
		SELECT id, flow_id, node_id, context, due_at, created_at
		FROM resumptions
		WHERE due_at <= $1
		ORDER BY due_at
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due resumptions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	resumptions := make([]*models.DelayedResumption, 0)

	for rows.Next() {
		var (
			resumption  models.DelayedResumption
			contextJSON []byte
		)

		err := rows.Scan(
			&resumption.ID, &resumption.FlowID, &resumption.NodeID,
			&contextJSON, &resumption.DueAt, &resumption.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resumption: %w", err)
		}

		if err := json.Unmarshal(contextJSON, &resumption.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resumption context: %w", err)
		}

		resumptions = append(resumptions, &resumption)
	}

	return resumptions, rows.Err()
}

func (r *ResumptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resumptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resumption %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete resumption %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrResumptionNotFound
	}

	return nil
}
