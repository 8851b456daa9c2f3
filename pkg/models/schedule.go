package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a recurring sweep entry stored in the database. Sweeps emit
// synthetic business events on a cron cadence (the abandoned-cart check is
// the canonical one) and carry a precomputed next execution time so a single
// poller can query for due entries without per-schedule timers.
type Schedule struct {
	// ID uniquely identifies this schedule entry
	ID string `json:"id" validate:"required"`

	// Name describes the sweep for operators
	Name string `json:"name" validate:"required"`

	// EventType is the business event emitted when the sweep fires
	EventType string `json:"event_type" validate:"required"`

	// CronExpression defines when this schedule should trigger
	// Uses standard 5-field cron format (minute hour day month weekday)
	CronExpression string `json:"cron_expression" validate:"required"`

	// NextDueAt is the precomputed next execution time
	NextDueAt time.Time `json:"next_due_at" validate:"required"`

	// CreatedAt timestamp when this schedule was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt timestamp when this schedule was last updated
	UpdatedAt time.Time `json:"updated_at"`

	// Active indicates if this schedule is currently active
	// Inactive schedules are not processed by the poller
	Active bool `json:"active"`
}

// NewSchedule creates a new Schedule with the next execution time calculated.
func NewSchedule(id, name, eventType, cronExpression string) (*Schedule, error) {
	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		Name:           name,
		EventType:      eventType,
		CronExpression: cronExpression,
		CreatedAt:      now,
		UpdatedAt:      now,
		Active:         true,
	}

	if err := schedule.calculateNextDueAt(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt advances the next execution time past the current time.
func (s *Schedule) UpdateNextDueAt() error {
	return s.calculateNextDueAt(time.Now().UTC())
}

func (s *Schedule) calculateNextDueAt(referenceTime time.Time) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue checks if this schedule is due for execution at the given time.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate performs validation on the schedule fields.
func (s *Schedule) Validate() error {
	if s.ID == "" || s.EventType == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(s.CronExpression)

	return err
}

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")
