// Package events defines the event types exchanged between the API, the
// trigger dispatcher and the flow workers.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/gustolabs/fluxo/pkg/models"
)

type EventType string

// Kafka topic carrying all flow events.
const Topic = "fluxo.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Trigger dispatch.
	TriggerFiredEvent EventType = "trigger.fired"

	// Flow execution lifecycle.
	FlowExecutionStartedEvent  EventType = "flow.execution.started"
	FlowExecutionFinishedEvent EventType = "flow.execution.finished"
	FlowExecutionSkippedEvent  EventType = "flow.execution.skipped"

	// Durable delays.
	DelayScheduledEvent EventType = "delay.scheduled"
	DelayElapsedEvent   EventType = "delay.elapsed"

	// Recurring sweeps.
	ScheduleDueEvent EventType = "schedule.due"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}

// TriggerFired announces a business event that may start flows. Organic
// events carry an empty FlowID and the worker resolves which active flows
// listen to the trigger type; a manual fire names its target flow and runs
// only that one.
type TriggerFired struct {
	BaseEvent

	Context models.ExecutionContext `json:"context"`
}

func (e TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

type FlowExecutionStarted struct {
	BaseEvent

	FlowName    string `json:"flow_name"`
	TriggerType string `json:"trigger_type"`
	Customer    string `json:"customer"`
}

func (e FlowExecutionStarted) GetType() EventType {
	return FlowExecutionStartedEvent
}

type FlowExecutionFinished struct {
	BaseEvent

	NodesExecuted int           `json:"nodes_executed"`
	NodesFailed   int           `json:"nodes_failed"`
	Duration      time.Duration `json:"duration"`
}

func (e FlowExecutionFinished) GetType() EventType {
	return FlowExecutionFinishedEvent
}

// FlowExecutionSkipped is published when a run is suppressed, for example
// by the duplicate-execution window.
type FlowExecutionSkipped struct {
	BaseEvent

	Customer string `json:"customer"`
	Reason   string `json:"reason"`
}

func (e FlowExecutionSkipped) GetType() EventType {
	return FlowExecutionSkippedEvent
}

type DelayScheduled struct {
	BaseEvent

	ResumptionID string    `json:"resumption_id"`
	NodeID       string    `json:"node_id"`
	DueAt        time.Time `json:"due_at"`
}

func (e DelayScheduled) GetType() EventType {
	return DelayScheduledEvent
}

type DelayElapsed struct {
	BaseEvent

	ResumptionID string `json:"resumption_id"`
	NodeID       string `json:"node_id"`
}

func (e DelayElapsed) GetType() EventType {
	return DelayElapsedEvent
}

// ScheduleDue is a timer signal for recurring sweeps. A downstream producer
// resolves which customers the sweep applies to and fires per-customer
// trigger events back onto the bus.
type ScheduleDue struct {
	BaseEvent

	ScheduleID     string    `json:"schedule_id"`
	EventType      string    `json:"event_type"`
	CronExpression string    `json:"cron_expression"`
	DueAt          time.Time `json:"due_at"`
}

func (e ScheduleDue) GetType() EventType {
	return ScheduleDueEvent
}
