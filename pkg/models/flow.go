// Package models defines the core domain models for marketing automation flows.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft    FlowStatus = "draft"    // Editable, not executable
	FlowStatusActive   FlowStatus = "active"   // Executable
	FlowStatusInactive FlowStatus = "inactive" // Paused by an operator, not executable
)

// Flow is a directed graph of typed nodes authored by a marketing operator.
// The engine only ever reads flows; the authoring tool owns their lifecycle.
type Flow struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"        validate:"required,min=3"`
	Status    FlowStatus     `json:"status"      validate:"required"`
	Owner     string         `json:"owner"`
	Nodes     []*FlowNode    `json:"nodes"`
	Edges     []*Edge        `json:"edges"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

// IsActive reports whether the flow may be executed.
func (f *Flow) IsActive() bool {
	return f.Status == FlowStatusActive && f.DeletedAt == nil
}

// TriggerNodes returns every trigger node in the graph. A well-formed flow
// has exactly one; the engine validates that invariant at run time.
func (f *Flow) TriggerNodes() []*FlowNode {
	nodes := make([]*FlowNode, 0, 1)

	for _, node := range f.Nodes {
		if node.Type == NodeTypeTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EdgesFrom returns the outgoing edges of a node in edge-list order.
// Traversal order depends on this: earlier edges run their whole subtree
// before later edges begin.
func (f *Flow) EdgesFrom(nodeID string) []*Edge {
	edges := make([]*Edge, 0, 2)

	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}
