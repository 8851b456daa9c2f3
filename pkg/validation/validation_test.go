package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/validation"
)

func validFlow() *models.Flow {
	return &models.Flow{
		ID:     "flow-1",
		Name:   "welcome series",
		Status: models.FlowStatusActive,
		Nodes: []*models.FlowNode{
			{ID: "t", Type: models.NodeTypeTrigger, Name: "registered", Config: models.TriggerConfig{EventType: "user.registered"}},
			{ID: "c", Type: models.NodeTypeCondition, Name: "vip?", Config: models.ConditionConfig{
				Field:    models.ConditionFieldCustomerType,
				Operator: models.OperatorEquals,
				Value:    "vip",
			}},
			{ID: "m", Type: models.NodeTypeSendMessage, Name: "welcome", Config: models.SendMessageConfig{TemplateID: "tpl-1"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "t", Target: "c"},
			{ID: "e2", Source: "c", Target: "m", SourceHandle: models.EdgeHandleTrue},
		},
	}
}

func TestValidateFlow_Valid(t *testing.T) {
	v := validation.NewValidator()

	assert.NoError(t, v.ValidateFlow(validFlow()))
}

func TestValidateFlow_RequiresSingleTrigger(t *testing.T) {
	v := validation.NewValidator()

	flow := validFlow()
	flow.Nodes = append(flow.Nodes, &models.FlowNode{
		ID:     "t2",
		Type:   models.NodeTypeTrigger,
		Name:   "second trigger",
		Config: models.TriggerConfig{EventType: "order.created"},
	})

	err := v.ValidateFlow(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one trigger")
}

func TestValidateFlow_EdgeToUnknownNode(t *testing.T) {
	v := validation.NewValidator()

	flow := validFlow()
	flow.Edges = append(flow.Edges, &models.Edge{ID: "e3", Source: "m", Target: "ghost"})

	err := v.ValidateFlow(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestValidateFlow_DuplicateNodeID(t *testing.T) {
	v := validation.NewValidator()

	flow := validFlow()
	flow.Nodes = append(flow.Nodes, &models.FlowNode{
		ID:     "m",
		Type:   models.NodeTypeSendMessage,
		Name:   "duplicate",
		Config: models.SendMessageConfig{TemplateID: "tpl-2"},
	})

	err := v.ValidateFlow(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node ID")
}

func TestValidateFlow_HandleOnNonConditionNode(t *testing.T) {
	v := validation.NewValidator()

	flow := validFlow()
	flow.Edges = append(flow.Edges, &models.Edge{ID: "e3", Source: "m", Target: "t", SourceHandle: models.EdgeHandleTrue})

	err := v.ValidateFlow(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-condition")
}

func TestValidateFlow_DuplicateTrueEdge(t *testing.T) {
	v := validation.NewValidator()

	flow := validFlow()
	flow.Edges = append(flow.Edges, &models.Edge{ID: "e3", Source: "c", Target: "t", SourceHandle: models.EdgeHandleTrue})

	err := v.ValidateFlow(flow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `multiple "true" edges`)
}

func TestValidateNodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		nodeType models.NodeType
		config   map[string]any
		wantErr  bool
	}{
		{
			name:     "valid trigger",
			nodeType: models.NodeTypeTrigger,
			config:   map[string]any{"event_type": "order.created"},
		},
		{
			name:     "trigger missing event type",
			nodeType: models.NodeTypeTrigger,
			config:   map[string]any{},
			wantErr:  true,
		},
		{
			name:     "valid delay",
			nodeType: models.NodeTypeDelay,
			config:   map[string]any{"amount": 2, "unit": "hours"},
		},
		{
			name:     "delay with bad unit",
			nodeType: models.NodeTypeDelay,
			config:   map[string]any{"amount": 2, "unit": "fortnights"},
			wantErr:  true,
		},
		{
			name:     "delay with zero amount",
			nodeType: models.NodeTypeDelay,
			config:   map[string]any{"amount": 0, "unit": "hours"},
			wantErr:  true,
		},
		{
			name:     "valid condition",
			nodeType: models.NodeTypeCondition,
			config:   map[string]any{"field": "order_value", "operator": "greater_than", "value": 50},
		},
		{
			name:     "condition with unknown operator",
			nodeType: models.NodeTypeCondition,
			config:   map[string]any{"field": "order_value", "operator": "matches"},
			wantErr:  true,
		},
		{
			name:     "valid profile action",
			nodeType: models.NodeTypeProfileAction,
			config:   map[string]any{"action": "update_tags", "tags": []string{"vip"}},
		},
		{
			name:     "profile action with bad discount type",
			nodeType: models.NodeTypeProfileAction,
			config:   map[string]any{"action": "apply_discount", "discount_type": "bogus"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateNodeConfig(tt.nodeType, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateExecutionContext(t *testing.T) {
	v := validation.NewValidator()

	valid := &models.ExecutionContext{CustomerEmail: "ana@example.com", TriggerType: "order.created"}
	assert.NoError(t, v.ValidateExecutionContext(valid))

	missing := &models.ExecutionContext{TriggerType: "order.created"}
	assert.Error(t, v.ValidateExecutionContext(missing))

	badEmail := &models.ExecutionContext{CustomerEmail: "not-an-email", TriggerType: "order.created"}
	assert.Error(t, v.ValidateExecutionContext(badEmail))
}
