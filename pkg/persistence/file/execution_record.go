package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// ExecutionRecordRepository stores one record per JSON file under
// executions/<flowID>/. Append-only: records are never updated or removed.
type ExecutionRecordRepository struct {
	root string
}

func (r *ExecutionRecordRepository) dir(flowID string) string {
	return path.Join(r.root, "executions", flowID)
}

func (r *ExecutionRecordRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	file := path.Join(r.dir(record.FlowID), record.ID+".json")

	return writeJSON(file, record)
}

func (r *ExecutionRecordRepository) ListRecent(ctx context.Context, flowID, email string, since time.Time) ([]*models.ExecutionRecord, error) {
	all, err := r.loadAll(flowID)
	if err != nil {
		return nil, err
	}

	recent := make([]*models.ExecutionRecord, 0)

	for _, record := range all {
		if record.CustomerEmail == email && !record.CreatedAt.Before(since) {
			recent = append(recent, record)
		}
	}

	return recent, nil
}

func (r *ExecutionRecordRepository) ListByFlow(_ context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error) {
	all, err := r.loadAll(flowID)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

func (r *ExecutionRecordRepository) loadAll(flowID string) ([]*models.ExecutionRecord, error) {
	dir := r.dir(flowID)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.ExecutionRecord{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		var record models.ExecutionRecord

		found, err := readJSON(path.Join(dir, file), &record)
		if err != nil {
			return nil, err
		}

		if found {
			records = append(records, &record)
		}
	}

	return records, nil
}
