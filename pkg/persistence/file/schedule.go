package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// ScheduleRepository stores one sweep schedule per JSON file under schedules/.
type ScheduleRepository struct {
	root string
}

func (r *ScheduleRepository) dir() string {
	return path.Join(r.root, "schedules")
}

func (r *ScheduleRepository) GetAll(_ context.Context) ([]*models.Schedule, error) {
	dir := r.dir()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.Schedule{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	schedules := make([]*models.Schedule, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		var schedule models.Schedule

		found, err := readJSON(path.Join(dir, file), &schedule)
		if err != nil {
			return nil, err
		}

		if found {
			schedules = append(schedules, &schedule)
		}
	}

	return schedules, nil
}

func (r *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	return writeJSON(path.Join(r.dir(), schedule.ID+".json"), schedule)
}

func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	return r.Save(ctx, schedule)
}
