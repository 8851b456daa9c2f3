package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/events"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/services"
	"github.com/gustolabs/fluxo/pkg/validation"
)

type capturingPublisher struct {
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

func newTriggerService(t *testing.T) (*services.Trigger, *services.Flow, *capturingPublisher) {
	t.Helper()

	flows, _ := newFlowService(t)
	publisher := &capturingPublisher{}

	return services.NewTrigger(flows, validation.NewValidator(), publisher), flows, publisher
}

func TestTriggerService_FirePublishesTriggerEvent(t *testing.T) {
	svc, flows, publisher := newTriggerService(t)
	ctx := context.Background()

	created, err := flows.Create(ctx, validFlow())
	require.NoError(t, err)
	_, err = flows.SetStatus(ctx, created.ID, models.FlowStatusActive)
	require.NoError(t, err)

	fired, err := svc.Fire(ctx, created.ID, &models.ExecutionContext{
		CustomerID:    "cust-1",
		CustomerEmail: "ana@example.com",
	})
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.TriggerFired)
	require.True(t, ok)
	assert.Equal(t, created.ID, event.FlowID)
	assert.Equal(t, "customer.created", event.Context.TriggerType)
	assert.Equal(t, fired.ID, event.ID)
}

func TestTriggerService_FireRejectsInactiveFlow(t *testing.T) {
	svc, flows, publisher := newTriggerService(t)
	ctx := context.Background()

	created, err := flows.Create(ctx, validFlow())
	require.NoError(t, err)

	_, err = svc.Fire(ctx, created.ID, &models.ExecutionContext{
		CustomerID:    "cust-1",
		CustomerEmail: "ana@example.com",
	})
	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
	assert.Empty(t, publisher.published)
}

func TestTriggerService_FireRejectsInvalidContext(t *testing.T) {
	svc, flows, _ := newTriggerService(t)
	ctx := context.Background()

	created, err := flows.Create(ctx, validFlow())
	require.NoError(t, err)
	_, err = flows.SetStatus(ctx, created.ID, models.FlowStatusActive)
	require.NoError(t, err)

	_, err = svc.Fire(ctx, created.ID, &models.ExecutionContext{CustomerEmail: "not-an-email"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}
