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
	"github.com/gustolabs/fluxo/pkg/persistence"
)

// ResumptionRepository stores one delay token per JSON file under
// resumptions/. Delete removes the token once the branch has been resumed.
type ResumptionRepository struct {
	root string
}

func (r *ResumptionRepository) dir() string {
	return path.Join(r.root, "resumptions")
}

func (r *ResumptionRepository) Save(_ context.Context, resumption *models.DelayedResumption) error {
	return writeJSON(path.Join(r.dir(), resumption.ID+".json"), resumption)
}

func (r *ResumptionRepository) Due(_ context.Context, now time.Time) ([]*models.DelayedResumption, error) {
	dir := r.dir()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.DelayedResumption{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list resumptions: %w", err)
	}

	due := make([]*models.DelayedResumption, 0)

	for _, file := range jsonFiles {
		var resumption models.DelayedResumption

		found, err := readJSON(path.Join(dir, file), &resumption)
		if err != nil {
			return nil, err
		}

		if found && resumption.IsDue(now) {
			due = append(due, &resumption)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].DueAt.Before(due[j].DueAt)
	})

	return due, nil
}

func (r *ResumptionRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrResumptionNotFound
		}

		return fmt.Errorf("failed to delete resumption %s: %w", id, err)
	}

	return nil
}
