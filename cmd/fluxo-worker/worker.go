package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gustolabs/fluxo/pkg/engine"
	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/events"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/otelhelper"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/scheduler"
	"github.com/gustolabs/fluxo/pkg/validation"
)

const resumptionPollInterval = 30 * time.Second

const scheduleSweepInterval = time.Minute

// WorkerManager consumes trigger events from the bus, fans them out to the
// active flows listening on each event type and runs the background pollers
// for delayed resumptions and recurring sweeps.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    *engine.Executor
	eventBus    eventbus.EventBus
	validator   *validation.Validator
	tracer      trace.Tracer
	poller      *scheduler.ResumptionPoller
	sweeper     *scheduler.ScheduleSweeper
}

func NewWorkerManager(
	id string,
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	executor *engine.Executor,
	tracer trace.Tracer,
	logger *slog.Logger,
) *WorkerManager {
	workerLogger := logger.With("module", "fluxo-worker", "worker_id", id)

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("fluxo-worker")
	}

	return &WorkerManager{
		id:          id,
		logger:      workerLogger,
		persistence: persist,
		executor:    executor,
		eventBus:    eventBus,
		validator:   validation.NewValidator(),
		tracer:      tracer,
		poller:      scheduler.NewResumptionPoller(workerLogger, persist, executor, resumptionPollInterval),
		sweeper:     scheduler.NewScheduleSweeper(workerLogger, persist, eventBus, scheduleSweepInterval),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.eventBus.Handle(events.TriggerFiredEvent, w.handleTriggerFired); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if err := w.poller.Start(ctx); err != nil {
		return err
	}

	if err := w.sweeper.Start(ctx); err != nil {
		return err
	}

	// Pick up anything that came due while no worker was running.
	w.poller.ProcessDue(ctx)

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	if err := w.sweeper.Stop(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to stop schedule sweeper", "error", err)
	}

	return w.poller.Stop(ctx)
}

func (w *WorkerManager) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerFired")

		return nil
	}

	logger := w.logger.With(
		"event_id", fired.ID,
		"trigger_type", fired.Context.TriggerType,
		"customer_email", fired.Context.CustomerEmail,
	)

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.trigger dispatch",
		attribute.String(otelhelper.EventIDKey, fired.ID),
		attribute.String(otelhelper.TriggerTypeKey, fired.Context.TriggerType),
		attribute.String(otelhelper.CustomerEmailKey, fired.Context.CustomerEmail),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	if err := w.validator.ValidateExecutionContext(&fired.Context); err != nil {
		logger.ErrorContext(ctx, "Dropping trigger event with invalid context", "error", err)
		otelhelper.SetError(span, err)

		return nil
	}

	flows, err := w.resolveFlows(ctx, fired)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resolve flows for trigger", "error", err)
		otelhelper.SetError(span, err)

		return err
	}

	logger.InfoContext(ctx, "Dispatching trigger to flows", "flow_count", len(flows))

	for _, flow := range flows {
		runCtx, runSpan := otelhelper.StartSpan(ctx, w.tracer, "worker.flow run",
			attribute.String(otelhelper.FlowIDKey, flow.ID),
			attribute.String(otelhelper.FlowNameKey, flow.Name),
		)
		w.executor.Run(runCtx, flow.ID, fired.Context)
		runSpan.End()
	}

	return nil
}

// resolveFlows picks the flows a trigger event addresses. A manual fire
// names its target flow and runs only that one; organic events fan out to
// every active flow listening on the trigger type.
func (w *WorkerManager) resolveFlows(ctx context.Context, fired *events.TriggerFired) ([]*models.Flow, error) {
	if fired.FlowID == "" {
		return w.persistence.Flows().ListActiveByTriggerType(ctx, fired.Context.TriggerType)
	}

	flow, err := w.persistence.Flows().GetByID(ctx, fired.FlowID)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		w.logger.InfoContext(ctx, "Targeted flow no longer exists, dropping trigger", "flow_id", fired.FlowID)

		return nil, nil
	}

	return []*models.Flow{flow}, nil
}
