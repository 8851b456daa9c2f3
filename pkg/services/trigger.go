package services

import (
	"context"
	"fmt"

	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/events"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/validation"
)

// Trigger fires flows on demand by publishing trigger events, the same
// path the dispatcher uses for organic customer events.
type Trigger struct {
	flows     *Flow
	validator *validation.Validator
	publisher eventbus.EventPublisher
}

// NewTrigger creates a new trigger service.
func NewTrigger(flows *Flow, validator *validation.Validator, publisher eventbus.EventPublisher) *Trigger {
	return &Trigger{
		flows:     flows,
		validator: validator,
		publisher: publisher,
	}
}

// Fire publishes a trigger event for one customer against one flow. The event
// carries the flow's own trigger event type, so the worker picks it up exactly
// as if the customer had produced the event organically.
func (s *Trigger) Fire(ctx context.Context, flowID string, execCtx *models.ExecutionContext) (*events.TriggerFired, error) {
	flow, err := s.flows.Fetch(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if !flow.IsActive() {
		return nil, fmt.Errorf("fire flow %s: %w", flowID, ErrFlowNotExecutable)
	}

	triggers := flow.TriggerNodes()
	if len(triggers) != 1 {
		return nil, NewValidationError("Fire", "flow must have exactly one trigger node", ErrInvalidFlow)
	}

	triggerCfg, ok := triggers[0].Config.(models.TriggerConfig)
	if !ok {
		return nil, NewValidationError("Fire", "trigger node has no trigger config", ErrInvalidFlow)
	}

	if execCtx == nil {
		return nil, NewValidationError("Fire", "execution context is required", ErrInvalidContext)
	}

	execCtx.TriggerType = triggerCfg.EventType

	if err := s.validator.ValidateExecutionContext(execCtx); err != nil {
		return nil, NewValidationError("Fire", err.Error(), ErrInvalidContext)
	}

	event := events.TriggerFired{
		BaseEvent: events.NewBaseEvent(events.TriggerFiredEvent, flow.ID),
		Context:   *execCtx,
	}

	if err := s.publisher.Publish(ctx, flow.ID, event); err != nil {
		return nil, fmt.Errorf("failed to publish trigger event: %w", err)
	}

	return &event, nil
}
