// Package persistence provides the storage abstraction consumed by the flow
// engine, the scheduler and the API.
package persistence

import (
	"context"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// Persistence groups the repositories of one backing store.
type Persistence interface {
	Flows() FlowRepository
	ExecutionRecords() ExecutionRecordRepository
	Templates() TemplateRepository
	Resumptions() ResumptionRepository
	Schedules() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository holds flow graph definitions. The engine only reads them;
// writes come from the authoring API.
type FlowRepository interface {
	GetAll(ctx context.Context) ([]*models.Flow, error)

	// GetByID returns (nil, nil) when no flow exists with the given ID.
	GetByID(ctx context.Context, id string) (*models.Flow, error)

	// ListActiveByTriggerType returns active flows whose trigger node is
	// gated on the given business event type.
	ListActiveByTriggerType(ctx context.Context, eventType string) ([]*models.Flow, error)

	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRecordRepository is the append-only audit log of node executions.
type ExecutionRecordRepository interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error

	// ListRecent returns records for (flowID, email) created at or after
	// since. The engine's dedup guard runs on this query.
	ListRecent(ctx context.Context, flowID, email string, since time.Time) ([]*models.ExecutionRecord, error)

	// ListByFlow returns the newest records of a flow, newest first, for
	// the operator-facing execution history.
	ListByFlow(ctx context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error)
}

// TemplateRepository holds message templates referenced by send nodes.
type TemplateRepository interface {
	GetAll(ctx context.Context) ([]*models.Template, error)

	// GetByID returns (nil, nil) when no template exists with the given ID.
	GetByID(ctx context.Context, id string) (*models.Template, error)

	Save(ctx context.Context, template *models.Template) error
}

// ResumptionRepository holds durable delay tokens for suspended branches.
type ResumptionRepository interface {
	Save(ctx context.Context, resumption *models.DelayedResumption) error

	// Due returns resumptions whose due time has passed, oldest first.
	Due(ctx context.Context, now time.Time) ([]*models.DelayedResumption, error)

	Delete(ctx context.Context, id string) error
}

// ScheduleRepository holds recurring sweep schedules.
type ScheduleRepository interface {
	GetAll(ctx context.Context) ([]*models.Schedule, error)
	Due(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Save(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
}
