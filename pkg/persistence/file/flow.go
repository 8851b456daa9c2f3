package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
)

// FlowRepository stores one flow per JSON file under flows/.
type FlowRepository struct {
	root string
}

func (r *FlowRepository) dir() string {
	return path.Join(r.root, "flows")
}

func (r *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flowID := file[:len(file)-len(".json")]

		flow, err := r.GetByID(ctx, flowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", flowID, err)
		}

		if flow != nil {
			flows = append(flows, flow)
		}
	}

	return flows, nil
}

func (r *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	var flow models.Flow

	found, err := readJSON(path.Join(r.dir(), id+".json"), &flow)
	if err != nil {
		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	if !found {
		return nil, nil
	}

	return &flow, nil
}

func (r *FlowRepository) ListActiveByTriggerType(ctx context.Context, eventType string) ([]*models.Flow, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Flow, 0)

	for _, flow := range all {
		if !flow.IsActive() {
			continue
		}

		for _, node := range flow.TriggerNodes() {
			config, ok := node.Config.(models.TriggerConfig)
			if ok && config.EventType == eventType {
				matched = append(matched, flow)

				break
			}
		}
	}

	return matched, nil
}

func (r *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	if err := writeJSON(path.Join(r.dir(), flow.ID+".json"), flow); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("Delete", id, err)
	}

	return nil
}
