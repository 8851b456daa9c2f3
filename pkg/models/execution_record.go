package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the outcome of one node execution attempt.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailure ExecutionStatus = "failure"
)

// ExecutionRecord is one append-only audit row per node execution attempt.
// It doubles as the deduplication signal: a record for (flow, email) inside
// the trailing 24h window suppresses a new run.
type ExecutionRecord struct {
	ID            string          `json:"id"`
	FlowID        string          `json:"flow_id"        validate:"required"`
	NodeID        string          `json:"node_id"`
	CustomerEmail string          `json:"customer_email" validate:"required"`
	Status        ExecutionStatus `json:"status"         validate:"required"`
	Error         string          `json:"error,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewExecutionRecord creates a record with a fresh ID and timestamp.
func NewExecutionRecord(flowID, nodeID, email string, status ExecutionStatus) *ExecutionRecord {
	return &ExecutionRecord{
		ID:            uuid.New().String(),
		FlowID:        flowID,
		NodeID:        nodeID,
		CustomerEmail: email,
		Status:        status,
		Metadata:      make(map[string]any),
		CreatedAt:     time.Now().UTC(),
	}
}
