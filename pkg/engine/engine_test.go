package engine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustolabs/fluxo/pkg/engine"
	"github.com/gustolabs/fluxo/pkg/lock"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/persistence/file"
	"github.com/gustolabs/fluxo/pkg/profile"
	"github.com/gustolabs/fluxo/pkg/transport"
)

type fixture struct {
	persist  persistence.Persistence
	sender   *transport.MemorySender
	profiles *profile.MemoryService
	executor *engine.Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	persist := file.NewPersistence(t.TempDir())
	sender := transport.NewMemorySender()
	profiles := profile.NewMemoryService()
	executor := engine.NewExecutor(slog.Default(), persist, sender, profiles, lock.NewMemoryLocker(), nil)

	return &fixture{
		persist:  persist,
		sender:   sender,
		profiles: profiles,
		executor: executor,
	}
}

func (f *fixture) saveFlow(t *testing.T, flow *models.Flow) {
	t.Helper()
	require.NoError(t, f.persist.Flows().Save(context.Background(), flow))
}

func (f *fixture) saveTemplate(t *testing.T, tmpl *models.Template) {
	t.Helper()
	require.NoError(t, f.persist.Templates().Save(context.Background(), tmpl))
}

func (f *fixture) records(t *testing.T, flowID string) []*models.ExecutionRecord {
	t.Helper()

	records, err := f.persist.ExecutionRecords().ListByFlow(context.Background(), flowID, 100)
	require.NoError(t, err)

	return records
}

func welcomeTemplate() *models.Template {
	return &models.Template{
		ID:        "tpl-welcome",
		Name:      "welcome",
		Subject:   "Bem-vindo, [Nome Cliente]!",
		Body:      "Olá [Nome Cliente], seu pedido [Número Pedido] no valor de [Total].",
		FromName:  "Loja",
		FromEmail: "loja@example.com",
		Channel:   models.ChannelEmail,
		Active:    true,
	}
}

func orderContext() models.ExecutionContext {
	return models.ExecutionContext{
		CustomerID:    "cust-1",
		CustomerEmail: "ana@example.com",
		CustomerName:  "Ana",
		OrderID:       "123",
		OrderValue:    75,
		TriggerType:   "order.created",
	}
}

func triggerNode(eventType string) *models.FlowNode {
	return &models.FlowNode{
		ID:     "trigger",
		Type:   models.NodeTypeTrigger,
		Name:   "on event",
		Config: models.TriggerConfig{EventType: eventType},
	}
}

func sendNode(id, templateID string) *models.FlowNode {
	return &models.FlowNode{
		ID:     id,
		Type:   models.NodeTypeSendMessage,
		Name:   "send " + id,
		Config: models.SendMessageConfig{TemplateID: templateID},
	}
}

func TestRun_InactiveFlowIsSilentNoOp(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "inactive flow",
		Status: models.FlowStatusInactive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.records(t, "flow-1"))
	assert.Empty(t, f.sender.Sent())
}

func TestRun_UnknownFlowIsSilentNoOp(t *testing.T) {
	f := newFixture(t)

	f.executor.Run(context.Background(), "missing", orderContext())

	assert.Empty(t, f.sender.Sent())
}

func TestRun_TriggerTypeMismatchIsSilentNoOp(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "registration flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("user.registered"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.records(t, "flow-1"))
	assert.Empty(t, f.sender.Sent())
}

func TestRun_ZeroTriggerNodesRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "broken flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{sendNode("send", "tpl-welcome")},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	records := f.records(t, "flow-1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionStatusFailure, records[0].Status)
	assert.Contains(t, records[0].Error, "trigger")
}

func TestRun_SendMessageRendersAndRecords(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)
	assert.Equal(t, "Bem-vindo, Ana!", sent[0].Subject)
	assert.Equal(t, "Olá Ana, seu pedido 123 no valor de R$ 75.00.", sent[0].Body)
	assert.Equal(t, "Loja", sent[0].FromName)
	assert.Equal(t, "loja@example.com", sent[0].FromEmail)

	records := f.records(t, "flow-1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionStatusSuccess, records[0].Status)
	assert.Equal(t, "tpl-welcome", records[0].Metadata["template_id"])
	assert.Equal(t, "Bem-vindo, Ana!", records[0].Metadata["subject"])
}

func TestRun_SubjectOverrideAndPrelude(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "promo flow",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:   "send",
				Type: models.NodeTypeSendMessage,
				Name: "promo send",
				Config: models.SendMessageConfig{
					TemplateID:      "tpl-welcome",
					SubjectOverride: "Oferta para [Nome Cliente]",
					Prelude:         "Promoção exclusiva!",
				},
			},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Oferta para Ana", sent[0].Subject)
	assert.Equal(t, "Promoção exclusiva!\n\nOlá Ana, seu pedido 123 no valor de R$ 75.00.", sent[0].Body)
}

func TestRun_MissingTemplateRecordsFailureWithoutSend(t *testing.T) {
	f := newFixture(t)
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "missing-tpl")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.sender.Sent())

	records := f.records(t, "flow-1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionStatusFailure, records[0].Status)
	assert.Contains(t, records[0].Error, "missing-tpl")
}

func TestRun_InactiveTemplateRecordsFailureWithoutSend(t *testing.T) {
	f := newFixture(t)

	tmpl := welcomeTemplate()
	tmpl.Active = false
	f.saveTemplate(t, tmpl)

	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.sender.Sent())

	records := f.records(t, "flow-1")
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "inactive")
}

func TestRun_TransportFailurePrunesBranchOnly(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.sender.FailFor["ana@example.com"] = true

	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			sendNode("send", "tpl-welcome"),
			{
				ID:     "tag",
				Type:   models.NodeTypeProfileAction,
				Name:   "tag customer",
				Config: models.ProfileActionConfig{Action: models.ProfileActionUpdateTags, Tags: []string{"buyer"}},
			},
			{
				ID:     "after-send",
				Type:   models.NodeTypeProfileAction,
				Name:   "tag after send",
				Config: models.ProfileActionConfig{Action: models.ProfileActionUpdateTags, Tags: []string{"messaged"}},
			},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "send"},
			{ID: "e2", Source: "trigger", Target: "tag"},
			{ID: "e3", Source: "send", Target: "after-send"},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	// Send failed, so its descendant never ran, but the sibling branch did.
	assert.Equal(t, []string{"buyer"}, f.profiles.Tags("cust-1"))

	records := f.records(t, "flow-1")
	require.Len(t, records, 2)

	byNode := make(map[string]models.ExecutionStatus, len(records))
	for _, record := range records {
		byNode[record.NodeID] = record.Status
	}

	assert.Equal(t, models.ExecutionStatusFailure, byNode["send"])
	assert.Equal(t, models.ExecutionStatusSuccess, byNode["tag"])
	assert.NotContains(t, byNode, "after-send")
}

func TestRun_DedupWithin24hSkipsSecondRun(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())
	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Len(t, f.sender.Sent(), 1)
	assert.Len(t, f.records(t, "flow-1"), 1)
}

func TestRun_DedupIsPerCustomer(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	first := orderContext()
	second := orderContext()
	second.CustomerEmail = "bruno@example.com"
	second.CustomerName = "Bruno"

	f.executor.Run(context.Background(), "flow-1", first)
	f.executor.Run(context.Background(), "flow-1", second)

	assert.Len(t, f.sender.Sent(), 2)
}

func TestRun_StaleRecordOutsideWindowDoesNotDedup(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	})

	stale := models.NewExecutionRecord("flow-1", "send", "ana@example.com", models.ExecutionStatusSuccess)
	stale.CreatedAt = time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, f.persist.ExecutionRecords().Append(context.Background(), stale))

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Len(t, f.sender.Sent(), 1)
}

func TestRun_ConditionRoutesTrueBranch(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())

	vip := welcomeTemplate()
	vip.ID = "tpl-vip"
	vip.Subject = "Oferta VIP"
	f.saveTemplate(t, vip)

	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "value split",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:   "check",
				Type: models.NodeTypeCondition,
				Name: "high value order",
				Config: models.ConditionConfig{
					Field:    models.ConditionFieldOrderValue,
					Operator: models.OperatorGreaterThan,
					Value:    50,
				},
			},
			sendNode("send-vip", "tpl-vip"),
			sendNode("send-basic", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "check"},
			{ID: "e2", Source: "check", Target: "send-vip", SourceHandle: models.EdgeHandleTrue},
			{ID: "e3", Source: "check", Target: "send-basic", SourceHandle: models.EdgeHandleFalse},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Oferta VIP", sent[0].Subject)

	records := f.records(t, "flow-1")
	require.Len(t, records, 2)

	var conditionRecord *models.ExecutionRecord

	for _, record := range records {
		if record.NodeID == "check" {
			conditionRecord = record
		}
	}

	require.NotNil(t, conditionRecord)
	assert.Equal(t, models.ExecutionStatusSuccess, conditionRecord.Status)
	assert.Equal(t, true, conditionRecord.Metadata["result"])
	assert.Equal(t, "order_value", conditionRecord.Metadata["field"])
}

func TestRun_FanOutExecutesBothTargetsInEdgeOrder(t *testing.T) {
	f := newFixture(t)

	first := welcomeTemplate()
	first.ID = "tpl-first"
	first.Subject = "first"
	f.saveTemplate(t, first)

	second := welcomeTemplate()
	second.ID = "tpl-second"
	second.Subject = "second"
	f.saveTemplate(t, second)

	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "fan out",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			sendNode("send-a", "tpl-first"),
			sendNode("send-b", "tpl-second"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "send-a"},
			{ID: "e2", Source: "trigger", Target: "send-b"},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	sent := f.sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "first", sent[0].Subject)
	assert.Equal(t, "second", sent[1].Subject)
}

func TestRun_CyclicGraphTerminates(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "cycle",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			sendNode("send-a", "tpl-welcome"),
			{
				ID:     "tag",
				Type:   models.NodeTypeProfileAction,
				Name:   "tag",
				Config: models.ProfileActionConfig{Action: models.ProfileActionUpdateTags, Tags: []string{"loop"}},
			},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "send-a"},
			{ID: "e2", Source: "send-a", Target: "tag"},
			{ID: "e3", Source: "tag", Target: "send-a"},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	// Each node executes at most once despite the cycle.
	assert.Len(t, f.sender.Sent(), 1)
	assert.Equal(t, []string{"loop"}, f.profiles.Tags("cust-1"))
}

func TestRun_EndFlowStopsTraversal(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "early end",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "end",
				Type:   models.NodeTypeProfileAction,
				Name:   "end flow",
				Config: models.ProfileActionConfig{Action: models.ProfileActionEndFlow, Reason: "campaign closed"},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "end"},
			{ID: "e2", Source: "end", Target: "send"},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.sender.Sent())

	records := f.records(t, "flow-1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionStatusSuccess, records[0].Status)
	assert.Equal(t, "campaign closed", records[0].Metadata["reason"])
}

func TestRun_ProfileActionWithoutCustomerIDDegradesGracefully(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "tagging",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "tag",
				Type:   models.NodeTypeProfileAction,
				Name:   "tag",
				Config: models.ProfileActionConfig{Action: models.ProfileActionUpdateTags, Tags: []string{"vip"}},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "tag"},
			{ID: "e2", Source: "tag", Target: "send"},
		},
	})

	execCtx := orderContext()
	execCtx.CustomerID = ""

	f.executor.Run(context.Background(), "flow-1", execCtx)

	// The skipped side effect is failure-flagged but the branch continues:
	// the downstream send must still go out.
	require.Len(t, f.sender.Sent(), 1)
	assert.Empty(t, f.profiles.Tags(""))

	records := f.records(t, "flow-1")
	require.Len(t, records, 2)

	byNode := make(map[string]*models.ExecutionRecord, len(records))
	for _, record := range records {
		byNode[record.NodeID] = record
	}

	require.Contains(t, byNode, "tag")
	assert.Equal(t, models.ExecutionStatusFailure, byNode["tag"].Status)
	assert.Contains(t, byNode["tag"].Error, "customer ID")
	require.Contains(t, byNode, "send")
	assert.Equal(t, models.ExecutionStatusSuccess, byNode["send"].Status)
}

func TestRun_ApplyDiscount(t *testing.T) {
	f := newFixture(t)
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "discount flow",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("cart.abandoned"),
			{
				ID:   "discount",
				Type: models.NodeTypeProfileAction,
				Name: "grant discount",
				Config: models.ProfileActionConfig{
					Action:        models.ProfileActionApplyDiscount,
					DiscountType:  models.DiscountTypePercentage,
					DiscountValue: 10,
					ExpiresInDays: 7,
					Reason:        "cart recovery",
				},
			},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "trigger", Target: "discount"}},
	})

	execCtx := orderContext()
	execCtx.TriggerType = "cart.abandoned"

	f.executor.Run(context.Background(), "flow-1", execCtx)

	discounts := f.profiles.Discounts("cust-1")
	require.Len(t, discounts, 1)
	assert.Equal(t, models.DiscountTypePercentage, discounts[0].Type)
	assert.InDelta(t, 10.0, discounts[0].Value, 0.001)
	assert.Equal(t, "cart recovery", discounts[0].Reason)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), discounts[0].ExpiresAt, time.Minute)
}

func TestRun_DelayPersistsResumptionAndHaltsBranch(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "delayed send",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "wait",
				Type:   models.NodeTypeDelay,
				Name:   "wait a day",
				Config: models.DelayConfig{Amount: 1, Unit: models.DelayUnitDays},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "wait"},
			{ID: "e2", Source: "wait", Target: "send"},
		},
	})

	f.executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, f.sender.Sent())

	pending, err := f.persist.Resumptions().Due(context.Background(), time.Now().UTC().Add(25*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "wait", pending[0].NodeID)
	assert.Equal(t, "ana@example.com", pending[0].Context.CustomerEmail)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), pending[0].DueAt, time.Minute)
}

func TestResume_ContinuesFromDelayNode(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "delayed send",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "wait",
				Type:   models.NodeTypeDelay,
				Name:   "wait",
				Config: models.DelayConfig{Amount: 1, Unit: models.DelayUnitHours},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "wait"},
			{ID: "e2", Source: "wait", Target: "send"},
		},
	})

	resumption := models.NewDelayedResumption("flow-1", "wait", orderContext(), -time.Minute)
	require.NoError(t, f.persist.Resumptions().Save(context.Background(), resumption))

	f.executor.Resume(context.Background(), resumption)

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)

	// The token is consumed.
	pending, err := f.persist.Resumptions().Due(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResume_SkipsDedupGuard(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())
	f.saveFlow(t, &models.Flow{
		ID:     "flow-1",
		Name:   "delayed send",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "wait",
				Type:   models.NodeTypeDelay,
				Name:   "wait",
				Config: models.DelayConfig{Amount: 1, Unit: models.DelayUnitHours},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "wait"},
			{ID: "e2", Source: "wait", Target: "send"},
		},
	})

	// The original run already left records inside the window.
	f.executor.Run(context.Background(), "flow-1", orderContext())
	require.Empty(t, f.sender.Sent())

	pending, err := f.persist.Resumptions().Due(context.Background(), time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	f.executor.Resume(context.Background(), pending[0])

	assert.Len(t, f.sender.Sent(), 1)
}

func TestResume_DroppedWhenFlowDeactivated(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, welcomeTemplate())

	flow := &models.Flow{
		ID:     "flow-1",
		Name:   "delayed send",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			triggerNode("order.created"),
			{
				ID:     "wait",
				Type:   models.NodeTypeDelay,
				Name:   "wait",
				Config: models.DelayConfig{Amount: 1, Unit: models.DelayUnitHours},
			},
			sendNode("send", "tpl-welcome"),
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "wait"},
			{ID: "e2", Source: "wait", Target: "send"},
		},
	}
	f.saveFlow(t, flow)

	resumption := models.NewDelayedResumption("flow-1", "wait", orderContext(), -time.Minute)
	require.NoError(t, f.persist.Resumptions().Save(context.Background(), resumption))

	flow.Status = models.FlowStatusInactive
	f.saveFlow(t, flow)

	f.executor.Resume(context.Background(), resumption)

	assert.Empty(t, f.sender.Sent())

	pending, err := f.persist.Resumptions().Due(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRun_LockHeldElsewhereSkipsRun(t *testing.T) {
	persist := file.NewPersistence(t.TempDir())
	sender := transport.NewMemorySender()
	locker := lock.NewMemoryLocker()
	executor := engine.NewExecutor(slog.Default(), persist, sender, profile.NewMemoryService(), locker, nil)

	require.NoError(t, persist.Templates().Save(context.Background(), welcomeTemplate()))
	require.NoError(t, persist.Flows().Save(context.Background(), &models.Flow{
		ID:     "flow-1",
		Name:   "welcome flow",
		Status: models.FlowStatusActive,
		Nodes:  []*models.FlowNode{triggerNode("order.created"), sendNode("send", "tpl-welcome")},
		Edges:  []*models.Edge{{ID: "e1", Source: "trigger", Target: "send"}},
	}))

	held, err := locker.Acquire(context.Background(), lock.RunKey("flow-1", "ana@example.com"), time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	executor.Run(context.Background(), "flow-1", orderContext())

	assert.Empty(t, sender.Sent())
}
