package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType identifies the closed set of node variants a flow may contain.
type NodeType string

const (
	NodeTypeTrigger       NodeType = "trigger"
	NodeTypeSendMessage   NodeType = "send_message"
	NodeTypeDelay         NodeType = "delay"
	NodeTypeCondition     NodeType = "condition"
	NodeTypeProfileAction NodeType = "profile_action"
)

// NodeConfig is the tagged union of per-variant node configuration. The
// concrete type always matches the owning node's Type, so engine dispatch is
// a type switch over this interface.
type NodeConfig interface {
	nodeConfig()
}

// FlowNode is one node instance inside a flow graph.
type FlowNode struct {
	ID        string     `json:"id"     validate:"required"`
	Type      NodeType   `json:"type"   validate:"required"`
	Name      string     `json:"name"   validate:"required,min=1"`
	Config    NodeConfig `json:"config"`
	PositionX int        `json:"position_x"`
	PositionY int        `json:"position_y"`
}

// TriggerConfig gates a flow on a business event type. Filters carry
// trigger-specific match criteria set by the authoring tool.
type TriggerConfig struct {
	EventType string         `json:"event_type" validate:"required"`
	Filters   map[string]any `json:"filters,omitempty"`
}

// SendMessageConfig renders a stored template and dispatches it to the
// recipient of the current execution. Prelude, when present, is raw content
// prepended before the rendered body.
type SendMessageConfig struct {
	TemplateID      string `json:"template_id" validate:"required"`
	SubjectOverride string `json:"subject_override,omitempty"`
	Prelude         string `json:"prelude,omitempty"`
}

// DelayUnit is the time unit of a delay node.
type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// DelayConfig suspends a branch for a fixed amount of time. The engine never
// blocks on it: the wait is persisted and resumed by the scheduler.
type DelayConfig struct {
	Amount int       `json:"amount" validate:"required,min=1"`
	Unit   DelayUnit `json:"unit"   validate:"required,oneof=minutes hours days"`
}

// Duration converts the configured amount and unit to a time.Duration.
func (c DelayConfig) Duration() time.Duration {
	switch c.Unit {
	case DelayUnitMinutes:
		return time.Duration(c.Amount) * time.Minute
	case DelayUnitHours:
		return time.Duration(c.Amount) * time.Hour
	case DelayUnitDays:
		return time.Duration(c.Amount) * 24 * time.Hour
	default:
		return 0
	}
}

// ConditionField is the closed set of context lookups a condition may test.
type ConditionField string

const (
	ConditionFieldOrderValue            ConditionField = "order_value"
	ConditionFieldOrderItemsCount       ConditionField = "order_items_count"
	ConditionFieldCustomerType          ConditionField = "customer_type"
	ConditionFieldDaysSinceRegistration ConditionField = "days_since_registration"
)

// ConditionOperator is the fixed operator set of condition nodes.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
)

// ConditionConfig evaluates a context-derived value against a configured one
// and routes execution through the "true" or "false" outgoing edge.
type ConditionConfig struct {
	Field    ConditionField    `json:"field"    validate:"required,oneof=order_value order_items_count customer_type days_since_registration"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains"`
	Value    any               `json:"value"`
}

// ProfileActionKind is the closed set of profile side effects.
type ProfileActionKind string

const (
	ProfileActionUpdateTags    ProfileActionKind = "update_tags"
	ProfileActionApplyDiscount ProfileActionKind = "apply_discount"
	ProfileActionEndFlow       ProfileActionKind = "end_flow"
)

// DiscountType is the shape of a granted discount.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// ProfileActionConfig applies a side effect to the customer profile, or ends
// the flow when Action is end_flow.
type ProfileActionConfig struct {
	Action        ProfileActionKind `json:"action" validate:"required,oneof=update_tags apply_discount end_flow"`
	Tags          []string          `json:"tags,omitempty"`
	DiscountType  DiscountType      `json:"discount_type,omitempty"`
	DiscountValue float64           `json:"discount_value,omitempty"`
	ExpiresInDays int               `json:"expires_in_days,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

func (TriggerConfig) nodeConfig()       {}
func (SendMessageConfig) nodeConfig()   {}
func (DelayConfig) nodeConfig()         {}
func (ConditionConfig) nodeConfig()     {}
func (ProfileActionConfig) nodeConfig() {}

type flowNodeJSON struct {
	ID        string          `json:"id"`
	Type      NodeType        `json:"type"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	PositionX int             `json:"position_x"`
	PositionY int             `json:"position_y"`
}

// UnmarshalJSON decodes the config payload into the concrete variant that
// matches the node type, so an unknown type fails loudly at load time rather
// than at execution time.
func (n *FlowNode) UnmarshalJSON(data []byte) error {
	var raw flowNodeJSON

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Name = raw.Name
	n.PositionX = raw.PositionX
	n.PositionY = raw.PositionY

	if len(raw.Config) == 0 {
		raw.Config = json.RawMessage("{}")
	}

	config, err := decodeNodeConfig(raw.Type, raw.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.Config = config

	return nil
}

func decodeNodeConfig(nodeType NodeType, data json.RawMessage) (NodeConfig, error) {
	var config NodeConfig

	var err error

	switch nodeType {
	case NodeTypeTrigger:
		var c TriggerConfig

		err = json.Unmarshal(data, &c)
		config = c
	case NodeTypeSendMessage:
		var c SendMessageConfig

		err = json.Unmarshal(data, &c)
		config = c
	case NodeTypeDelay:
		var c DelayConfig

		err = json.Unmarshal(data, &c)
		config = c
	case NodeTypeCondition:
		var c ConditionConfig

		err = json.Unmarshal(data, &c)
		config = c
	case NodeTypeProfileAction:
		var c ProfileActionConfig

		err = json.Unmarshal(data, &c)
		config = c
	default:
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}

	if err != nil {
		return nil, err
	}

	return config, nil
}
