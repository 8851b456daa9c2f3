package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/validation"
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

// Flow manages the lifecycle of flow definitions on behalf of the API.
type Flow struct {
	persistence persistence.Persistence
	validator   *validation.Validator
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence, validator *validation.Validator) *Flow {
	return &Flow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every flow that has not been soft deleted.
func (s *Flow) List(ctx context.Context) ([]*models.Flow, error) {
	flows, err := s.persistence.Flows().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

// Fetch returns a flow by ID.
func (s *Flow) Fetch(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := s.persistence.Flows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flow: %w", err)
	}

	if flow == nil {
		return nil, persistence.NewFlowError("Fetch", id, persistence.ErrFlowNotFound)
	}

	return flow, nil
}

// Create validates and stores a new flow. New flows always begin as drafts.
func (s *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, NewValidationError("Create", "flow cannot be nil", ErrFlowNil)
	}

	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}

	if flow.Status == "" {
		flow.Status = models.FlowStatusDraft
	}

	if err := s.validator.ValidateFlow(flow); err != nil {
		return nil, NewValidationError("Create", err.Error(), ErrInvalidFlow)
	}

	now := time.Now().UTC()
	flow.CreatedAt = now
	flow.UpdatedAt = now

	if err := s.persistence.Flows().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return flow, nil
}

// Update validates and stores a full replacement of an existing flow's
// definition. The ID and creation timestamp of the stored flow are kept.
func (s *Flow) Update(ctx context.Context, id string, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, NewValidationError("Update", "flow cannot be nil", ErrFlowNil)
	}

	existing, err := s.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	flow.ID = existing.ID
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	if flow.Status == "" {
		flow.Status = existing.Status
	}

	if err := s.validator.ValidateFlow(flow); err != nil {
		return nil, NewValidationError("Update", err.Error(), ErrInvalidFlow)
	}

	if err := s.persistence.Flows().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return flow, nil
}

// SetStatus transitions a flow between draft, active and inactive.
func (s *Flow) SetStatus(ctx context.Context, id string, status models.FlowStatus) (*models.Flow, error) {
	switch status {
	case models.FlowStatusDraft, models.FlowStatusActive, models.FlowStatusInactive:
	default:
		return nil, NewValidationError("SetStatus", "unknown status: "+string(status), ErrInvalidRequest)
	}

	flow, err := s.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	// Activating a draft runs full graph validation so an operator cannot
	// put a malformed flow in front of the engine.
	if status == models.FlowStatusActive {
		if err := s.validator.ValidateFlow(flow); err != nil {
			return nil, NewValidationError("SetStatus", err.Error(), ErrInvalidFlow)
		}
	}

	flow.Status = status
	flow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Flows().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return flow, nil
}

// Delete soft deletes a flow.
func (s *Flow) Delete(ctx context.Context, id string) error {
	return s.persistence.Flows().Delete(ctx, id)
}

// Executions returns the newest execution records of a flow, newest first.
func (s *Flow) Executions(ctx context.Context, id string, limit int) ([]*models.ExecutionRecord, error) {
	if _, err := s.Fetch(ctx, id); err != nil {
		return nil, err
	}

	records, err := s.persistence.ExecutionRecords().ListByFlow(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}

	return records, nil
}
