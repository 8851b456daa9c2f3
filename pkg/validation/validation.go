// Package validation checks flow definitions before they are saved: struct
// validation on the models, JSON-schema validation of raw node config
// payloads and structural validation of the graph itself.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gustolabs/fluxo/pkg/models"
)

// nodeConfigSchemas maps each node type to the JSON schema of its config
// payload. Authoring tools submit raw JSON; the schema rejects malformed
// payloads before they ever reach the tagged-union decoder.
var nodeConfigSchemas = map[models.NodeType]map[string]any{
	models.NodeTypeTrigger: {
		"type":                 "object",
		"required":             []string{"event_type"},
		"additionalProperties": true,
		"properties": map[string]any{
			"event_type": map[string]any{"type": "string", "minLength": 1},
			"filters":    map[string]any{"type": "object"},
		},
	},
	models.NodeTypeSendMessage: {
		"type":     "object",
		"required": []string{"template_id"},
		"properties": map[string]any{
			"template_id":      map[string]any{"type": "string", "minLength": 1},
			"subject_override": map[string]any{"type": "string"},
			"prelude":          map[string]any{"type": "string"},
		},
	},
	models.NodeTypeDelay: {
		"type":     "object",
		"required": []string{"amount", "unit"},
		"properties": map[string]any{
			"amount": map[string]any{"type": "integer", "minimum": 1},
			"unit":   map[string]any{"type": "string", "enum": []string{"minutes", "hours", "days"}},
		},
	},
	models.NodeTypeCondition: {
		"type":     "object",
		"required": []string{"field", "operator"},
		"properties": map[string]any{
			"field": map[string]any{
				"type": "string",
				"enum": []string{"order_value", "order_items_count", "customer_type", "days_since_registration"},
			},
			"operator": map[string]any{
				"type": "string",
				"enum": []string{"equals", "not_equals", "greater_than", "less_than", "contains"},
			},
			"value": map[string]any{},
		},
	},
	models.NodeTypeProfileAction: {
		"type":     "object",
		"required": []string{"action"},
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{"update_tags", "apply_discount", "end_flow"},
			},
			"tags":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"discount_type":   map[string]any{"type": "string", "enum": []string{"percentage", "fixed"}},
			"discount_value":  map[string]any{"type": "number"},
			"expires_in_days": map[string]any{"type": "integer", "minimum": 0},
			"reason":          map[string]any{"type": "string"},
		},
	},
}

// ValidateNodeConfig validates a raw node config payload against the schema
// of its node type.
func ValidateNodeConfig(nodeType models.NodeType, config map[string]any) error {
	schema, ok := nodeConfigSchemas[nodeType]
	if !ok {
		return fmt.Errorf("unknown node type %q", nodeType)
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}

// Validator validates full flow definitions.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateFlow runs struct validation and graph structure checks: exactly
// one trigger node, edges referencing existing nodes, and condition
// out-edges partitioning into at most one "true" and one "false" handle.
func (v *Validator) ValidateFlow(flow *models.Flow) error {
	if err := v.validate.Struct(flow); err != nil {
		return fmt.Errorf("flow validation failed: %w", err)
	}

	nodesByID := make(map[string]*models.FlowNode, len(flow.Nodes))

	for _, node := range flow.Nodes {
		if _, exists := nodesByID[node.ID]; exists {
			return fmt.Errorf("duplicate node ID %q", node.ID)
		}

		nodesByID[node.ID] = node
	}

	if count := len(flow.TriggerNodes()); count != 1 {
		return fmt.Errorf("flow must have exactly one trigger node, found %d", count)
	}

	for _, edge := range flow.Edges {
		if _, ok := nodesByID[edge.Source]; !ok {
			return fmt.Errorf("edge %s references unknown source node %q", edge.ID, edge.Source)
		}

		if _, ok := nodesByID[edge.Target]; !ok {
			return fmt.Errorf("edge %s references unknown target node %q", edge.ID, edge.Target)
		}
	}

	return v.validateConditionEdges(flow, nodesByID)
}

func (v *Validator) validateConditionEdges(flow *models.Flow, nodesByID map[string]*models.FlowNode) error {
	for _, node := range flow.Nodes {
		edges := flow.EdgesFrom(node.ID)
		handles := make(map[string]int, 2)

		for _, edge := range edges {
			if edge.SourceHandle == "" {
				continue
			}

			if node.Type != models.NodeTypeCondition {
				return fmt.Errorf("edge %s carries handle %q on non-condition node %q",
					edge.ID, edge.SourceHandle, node.ID)
			}

			if edge.SourceHandle != models.EdgeHandleTrue && edge.SourceHandle != models.EdgeHandleFalse {
				return fmt.Errorf("edge %s has invalid handle %q", edge.ID, edge.SourceHandle)
			}

			handles[edge.SourceHandle]++
			if handles[edge.SourceHandle] > 1 {
				return fmt.Errorf("condition node %q has multiple %q edges", node.ID, edge.SourceHandle)
			}
		}
	}

	return nil
}

// ValidateTemplate runs struct validation on a template.
func (v *Validator) ValidateTemplate(tmpl *models.Template) error {
	if err := v.validate.Struct(tmpl); err != nil {
		return fmt.Errorf("template validation failed: %w", err)
	}

	return nil
}

// ValidateExecutionContext checks the caller-supplied event payload.
func (v *Validator) ValidateExecutionContext(execCtx *models.ExecutionContext) error {
	if err := v.validate.Struct(execCtx); err != nil {
		return fmt.Errorf("execution context validation failed: %w", err)
	}

	return nil
}
