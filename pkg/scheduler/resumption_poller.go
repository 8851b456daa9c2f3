// Package scheduler hosts the background pollers that drive time-based
// behavior: resuming branches suspended by delay nodes and firing recurring
// sweep schedules.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
)

// Resumer continues a suspended flow branch. Implemented by engine.Executor.
type Resumer interface {
	Resume(ctx context.Context, resumption *models.DelayedResumption)
}

// ResumptionPoller periodically queries for due delay resumptions and hands
// them to the resumer.
type ResumptionPoller struct {
	persistence persistence.Persistence
	resumer     Resumer
	logger      *slog.Logger
	interval    time.Duration
	ticker      *time.Ticker
	done        chan bool
	started     bool
	mu          sync.Mutex
}

func NewResumptionPoller(
	logger *slog.Logger,
	persist persistence.Persistence,
	resumer Resumer,
	interval time.Duration,
) *ResumptionPoller {
	return &ResumptionPoller{
		persistence: persist,
		resumer:     resumer,
		logger:      logger.With("module", "resumption_poller"),
		interval:    interval,
	}
}

// Start begins polling. Idempotent.
func (p *ResumptionPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	p.logger.InfoContext(ctx, "Starting resumption poller", "interval", p.interval)

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan bool)
	p.started = true

	go p.poll(ctx)

	return nil
}

// Stop halts polling. Idempotent.
func (p *ResumptionPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	p.logger.InfoContext(ctx, "Stopping resumption poller")

	if p.ticker != nil {
		p.ticker.Stop()
	}

	select {
	case p.done <- true:
	default:
	}

	p.started = false

	return nil
}

func (p *ResumptionPoller) poll(ctx context.Context) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-p.ticker.C:
			p.ProcessDue(ctx)
		}
	}
}

// ProcessDue resumes every due suspended branch. Exposed so callers can
// trigger a sweep outside the ticker, for example at startup.
func (p *ResumptionPoller) ProcessDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.persistence.Resumptions().Due(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to query due resumptions", "error", err)

		return
	}

	if len(due) > 0 {
		p.logger.InfoContext(ctx, "Processing due resumptions", "count", len(due))
	}

	for _, resumption := range due {
		p.resumer.Resume(ctx, resumption)
	}
}
