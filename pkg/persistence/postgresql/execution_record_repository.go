package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// ExecutionRecordRepository handles the append-only audit log.
type ExecutionRecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionRecordRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal record metadata: %w", err)
	}

	query := `
		INSERT INTO execution_records (id, flow_id, node_id, customer_email, status, error, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.FlowID, record.NodeID, record.CustomerEmail,
		string(record.Status), record.Error, string(metadataJSON), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}

	return nil
}

func (r *ExecutionRecordRepository) ListRecent(ctx context.Context, flowID, email string, since time.Time) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, flow_id, node_id, customer_email, status, error, metadata, created_at
		FROM execution_records
		WHERE flow_id = $1 AND customer_email = $2 AND created_at >= $3
		ORDER BY created_at
	`

	return r.query(ctx, query, flowID, email, since)
}

func (r *ExecutionRecordRepository) ListByFlow(ctx context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, flow_id, node_id, customer_email, status, error, metadata, created_at
		FROM execution_records
		WHERE flow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.query(ctx, query, flowID, limit)
}

func (r *ExecutionRecordRepository) query(ctx context.Context, query string, args ...any) ([]*models.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		var (
			record       models.ExecutionRecord
			status       string
			metadataJSON []byte
		)

		err := rows.Scan(
			&record.ID, &record.FlowID, &record.NodeID, &record.CustomerEmail,
			&status, &record.Error, &metadataJSON, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}

		record.Status = models.ExecutionStatus(status)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal record metadata: %w", err)
			}
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
