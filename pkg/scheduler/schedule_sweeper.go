package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/events"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
)

// ScheduleSweeper is a centralized cron poller: it queries the database for
// due sweep schedules, publishes a ScheduleDue event per entry and advances
// each schedule's next execution time. One poller handles every schedule
// regardless of its individual cron expression.
type ScheduleSweeper struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	interval    time.Duration
	ticker      *time.Ticker
	done        chan bool
	started     bool
	mu          sync.Mutex
}

func NewScheduleSweeper(
	logger *slog.Logger,
	persist persistence.Persistence,
	publisher eventbus.EventPublisher,
	interval time.Duration,
) *ScheduleSweeper {
	return &ScheduleSweeper{
		persistence: persist,
		publisher:   publisher,
		logger:      logger.With("module", "schedule_sweeper"),
		interval:    interval,
	}
}

// Start begins polling. Idempotent.
func (s *ScheduleSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.InfoContext(ctx, "Starting schedule sweeper", "interval", s.interval)

	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan bool)
	s.started = true

	go s.poll(ctx)

	return nil
}

// Stop halts polling. Idempotent.
func (s *ScheduleSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.InfoContext(ctx, "Stopping schedule sweeper")

	if s.ticker != nil {
		s.ticker.Stop()
	}

	select {
	case s.done <- true:
	default:
	}

	s.started = false

	return nil
}

func (s *ScheduleSweeper) poll(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.ProcessDue(ctx)
		}
	}
}

// ProcessDue fires every due schedule once and reschedules it.
func (s *ScheduleSweeper) ProcessDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.persistence.Schedules().Due(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	if len(due) > 0 {
		s.logger.InfoContext(ctx, "Processing due schedules", "count", len(due))
	}

	for _, schedule := range due {
		if err := s.fire(ctx, schedule); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish schedule event",
				"schedule_id", schedule.ID,
				"error", err)

			continue
		}

		if err := schedule.UpdateNextDueAt(); err != nil {
			s.logger.ErrorContext(ctx, "Failed to advance schedule",
				"schedule_id", schedule.ID,
				"error", err)

			continue
		}

		if err := s.persistence.Schedules().Update(ctx, schedule); err != nil {
			s.logger.ErrorContext(ctx, "Failed to save schedule",
				"schedule_id", schedule.ID,
				"error", err)
		}
	}
}

func (s *ScheduleSweeper) fire(ctx context.Context, schedule *models.Schedule) error {
	event := events.ScheduleDue{
		BaseEvent:      events.NewBaseEvent(events.ScheduleDueEvent, ""),
		ScheduleID:     schedule.ID,
		EventType:      schedule.EventType,
		CronExpression: schedule.CronExpression,
		DueAt:          schedule.NextDueAt,
	}

	return s.publisher.Publish(ctx, schedule.ID, event)
}
