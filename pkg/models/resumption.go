package models

import (
	"time"

	"github.com/google/uuid"
)

// DelayedResumption is the durable token a delay node leaves behind instead
// of blocking. It carries everything needed to pick the run back up: the
// flow, the delay node whose wait completed, and the original context.
// The scheduler polls for due resumptions and hands them to the engine.
type DelayedResumption struct {
	// ID uniquely identifies this resumption entry
	ID string `json:"id" validate:"required"`

	// FlowID identifies the flow being resumed
	FlowID string `json:"flow_id" validate:"required"`

	// NodeID is the delay node whose wait elapsed; traversal continues
	// from its outgoing edges
	NodeID string `json:"node_id" validate:"required"`

	// Context is the execution context of the suspended run
	Context ExecutionContext `json:"context"`

	// DueAt is when the suspended branch becomes runnable again
	DueAt time.Time `json:"due_at" validate:"required"`

	// CreatedAt timestamp when the branch was suspended
	CreatedAt time.Time `json:"created_at"`
}

// NewDelayedResumption creates a resumption token due after the given delay.
func NewDelayedResumption(flowID, nodeID string, execCtx ExecutionContext, delay time.Duration) *DelayedResumption {
	now := time.Now().UTC()

	return &DelayedResumption{
		ID:        uuid.New().String(),
		FlowID:    flowID,
		NodeID:    nodeID,
		Context:   execCtx,
		DueAt:     now.Add(delay),
		CreatedAt: now,
	}
}

// IsDue checks if this resumption is runnable at the given time.
func (r *DelayedResumption) IsDue(now time.Time) bool {
	return !r.DueAt.After(now)
}
