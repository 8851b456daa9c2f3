// Package file provides file-based persistence for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gustolabs/fluxo/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON files. One file per entity, one subdirectory per collection.
type Persistence struct {
	root           string
	flowRepo       *FlowRepository
	recordRepo     *ExecutionRecordRepository
	templateRepo   *TemplateRepository
	resumptionRepo *ResumptionRepository
	scheduleRepo   *ScheduleRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		flowRepo:       &FlowRepository{root: cleanRoot},
		recordRepo:     &ExecutionRecordRepository{root: cleanRoot},
		templateRepo:   &TemplateRepository{root: cleanRoot},
		resumptionRepo: &ResumptionRepository{root: cleanRoot},
		scheduleRepo:   &ScheduleRepository{root: cleanRoot},
	}
}

func (p *Persistence) Flows() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) ExecutionRecords() persistence.ExecutionRecordRepository {
	return p.recordRepo
}

func (p *Persistence) Templates() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) Resumptions() persistence.ResumptionRepository {
	return p.resumptionRepo
}

func (p *Persistence) Schedules() persistence.ScheduleRepository {
	return p.scheduleRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return true, nil
}
