// Package engine executes marketing automation flows: it walks the node
// graph for one recipient, dispatches node side effects and appends the
// audit trail. Run never reports failures to its caller; every outcome is
// visible only through the execution records.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gustolabs/fluxo/pkg/condition"
	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/events"
	"github.com/gustolabs/fluxo/pkg/lock"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/profile"
	"github.com/gustolabs/fluxo/pkg/template"
	"github.com/gustolabs/fluxo/pkg/transport"
)

// DedupWindow is the trailing window inside which a second run for the same
// flow and recipient is suppressed.
const DedupWindow = 24 * time.Hour

// runLockTTL bounds how long a run lock can outlive a crashed worker.
const runLockTTL = 5 * time.Minute

// Executor walks flow graphs. Safe for concurrent use; each Run carries its
// own traversal state.
type Executor struct {
	persistence persistence.Persistence
	sender      transport.Sender
	profiles    profile.Service
	locker      lock.Locker
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewExecutor creates an executor. publisher may be nil when lifecycle
// events are not wanted, for example in tests.
func NewExecutor(
	logger *slog.Logger,
	persist persistence.Persistence,
	sender transport.Sender,
	profiles profile.Service,
	locker lock.Locker,
	publisher eventbus.EventPublisher,
) *Executor {
	return &Executor{
		persistence: persist,
		sender:      sender,
		profiles:    profiles,
		locker:      locker,
		publisher:   publisher,
		logger:      logger.With("module", "engine"),
	}
}

// nodeOutcome is the internal result of one node execution. degraded marks
// a failure-flagged node whose out-edges are still followed: the side effect
// was skipped but the branch goes on.
type nodeOutcome struct {
	ok              bool
	halt            bool
	degraded        bool
	conditionResult *bool
}

// Run executes one flow for one recipient. It never returns an error: node
// failures prune only their branch and surface as failure records, and
// engine-level problems are logged.
func (e *Executor) Run(ctx context.Context, flowID string, execCtx models.ExecutionContext) {
	logger := e.logger.With("flow_id", flowID, "customer_email", execCtx.CustomerEmail)

	flow, err := e.persistence.Flows().GetByID(ctx, flowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load flow", "error", err)

		return
	}

	if flow == nil || !flow.IsActive() {
		logger.DebugContext(ctx, "Flow absent or not active, skipping run")

		return
	}

	key := lock.RunKey(flowID, execCtx.CustomerEmail)

	acquired, err := e.locker.Acquire(ctx, key, runLockTTL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire run lock, proceeding unlocked", "error", err)
	} else if !acquired {
		logger.InfoContext(ctx, "Run lock held elsewhere, treating as duplicate")
		e.publishSkipped(ctx, flow, execCtx, "concurrent run in progress")

		return
	}

	if acquired {
		defer func() {
			if releaseErr := e.locker.Release(ctx, key); releaseErr != nil {
				logger.ErrorContext(ctx, "Failed to release run lock", "error", releaseErr)
			}
		}()
	}

	duplicate, err := e.isDuplicate(ctx, flowID, execCtx.CustomerEmail)
	if err != nil {
		logger.ErrorContext(ctx, "Deduplication query failed, aborting run", "error", err)

		return
	}

	if duplicate {
		logger.InfoContext(ctx, "Recent execution found inside dedup window, skipping run")
		e.publishSkipped(ctx, flow, execCtx, "executed inside dedup window")

		return
	}

	triggers := flow.TriggerNodes()
	if len(triggers) != 1 {
		logger.ErrorContext(ctx, "Flow must have exactly one trigger node", "trigger_count", len(triggers))

		record := models.NewExecutionRecord(flowID, "", execCtx.CustomerEmail, models.ExecutionStatusFailure)
		record.Error = fmt.Sprintf("flow has %d trigger nodes, expected exactly 1", len(triggers))
		e.appendRecord(ctx, logger, record)

		return
	}

	trigger := triggers[0]

	triggerConfig, ok := trigger.Config.(models.TriggerConfig)
	if !ok || triggerConfig.EventType != execCtx.TriggerType {
		logger.DebugContext(ctx, "Trigger event type does not match, skipping run",
			"trigger_type", execCtx.TriggerType)

		return
	}

	e.publishStarted(ctx, flow, execCtx)

	started := time.Now()
	visited := map[string]bool{trigger.ID: true}
	executed, failed := e.traverse(ctx, logger, flow, trigger.ID, nil, execCtx, visited)

	logger.InfoContext(ctx, "Flow run finished",
		"nodes_executed", executed,
		"nodes_failed", failed,
		"duration", time.Since(started))
	e.publishFinished(ctx, flow, executed, failed, time.Since(started))
}

// Resume continues a run suspended by a delay node. The dedup guard is
// skipped: the resumed branch belongs to the run that already passed it.
func (e *Executor) Resume(ctx context.Context, resumption *models.DelayedResumption) {
	logger := e.logger.With(
		"flow_id", resumption.FlowID,
		"node_id", resumption.NodeID,
		"customer_email", resumption.Context.CustomerEmail,
		"resumption_id", resumption.ID)

	if err := e.persistence.Resumptions().Delete(ctx, resumption.ID); err != nil {
		if !persistence.IsResumptionNotFound(err) {
			logger.ErrorContext(ctx, "Failed to claim resumption", "error", err)
		}

		return
	}

	flow, err := e.persistence.Flows().GetByID(ctx, resumption.FlowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load flow for resumption", "error", err)

		return
	}

	if flow == nil || !flow.IsActive() {
		logger.InfoContext(ctx, "Flow deactivated while branch was suspended, dropping resumption")

		return
	}

	node := flow.NodeByID(resumption.NodeID)
	if node == nil {
		logger.InfoContext(ctx, "Delay node removed while branch was suspended, dropping resumption")

		return
	}

	e.publishDelayElapsed(ctx, resumption)

	started := time.Now()
	visited := map[string]bool{node.ID: true}
	executed, failed := e.traverse(ctx, logger, flow, node.ID, nil, resumption.Context, visited)

	logger.InfoContext(ctx, "Resumed branch finished",
		"nodes_executed", executed,
		"nodes_failed", failed,
		"duration", time.Since(started))
	e.publishFinished(ctx, flow, executed, failed, time.Since(started))
}

// traverse walks the graph depth first from the out-edges of startID using
// an explicit stack. Out-edges are pushed in reverse so that the subtree of
// an earlier edge completes before a later edge begins. A failing or
// halting node prunes only its own descendants.
func (e *Executor) traverse(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	startID string,
	startResult *bool,
	execCtx models.ExecutionContext,
	visited map[string]bool,
) (executed, failed int) {
	stack := make([]string, 0, len(flow.Nodes))
	pushFollowable(&stack, flow.EdgesFrom(startID), startResult, visited)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[nodeID] {
			continue
		}

		visited[nodeID] = true

		node := flow.NodeByID(nodeID)
		if node == nil {
			logger.ErrorContext(ctx, "Edge targets unknown node", "node_id", nodeID)

			continue
		}

		outcome := e.executeNode(ctx, logger, flow, node, execCtx)
		executed++

		if !outcome.ok {
			failed++

			if !outcome.degraded {
				continue
			}
		}

		if outcome.halt {
			continue
		}

		pushFollowable(&stack, flow.EdgesFrom(nodeID), outcome.conditionResult, visited)
	}

	return executed, failed
}

func pushFollowable(stack *[]string, edges []*models.Edge, conditionResult *bool, visited map[string]bool) {
	for i := len(edges) - 1; i >= 0; i-- {
		edge := edges[i]
		if edge.Follows(conditionResult) && !visited[edge.Target] {
			*stack = append(*stack, edge.Target)
		}
	}
}

// executeNode dispatches on the node's config variant. The type switch is
// exhaustive over the closed NodeConfig set.
func (e *Executor) executeNode(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	execCtx models.ExecutionContext,
) nodeOutcome {
	logger = logger.With("node_id", node.ID, "node_type", node.Type)

	switch config := node.Config.(type) {
	case models.TriggerConfig:
		// A trigger reached mid-graph has nothing to do.
		return nodeOutcome{ok: true}
	case models.SendMessageConfig:
		return e.executeSendMessage(ctx, logger, flow, node, config, execCtx)
	case models.DelayConfig:
		return e.executeDelay(ctx, logger, flow, node, config, execCtx)
	case models.ConditionConfig:
		return e.executeCondition(ctx, logger, flow, node, config, execCtx)
	case models.ProfileActionConfig:
		return e.executeProfileAction(ctx, logger, flow, node, config, execCtx)
	default:
		logger.ErrorContext(ctx, "Node has no decodable config")

		record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusFailure)
		record.Error = fmt.Sprintf("node %s has unsupported config for type %s", node.ID, node.Type)
		e.appendRecord(ctx, logger, record)

		return nodeOutcome{ok: false}
	}
}

func (e *Executor) executeSendMessage(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	config models.SendMessageConfig,
	execCtx models.ExecutionContext,
) nodeOutcome {
	tmpl, err := e.persistence.Templates().GetByID(ctx, config.TemplateID)
	if err != nil {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("failed to load template %s: %v", config.TemplateID, err))
	}

	if tmpl == nil {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("template %s not found", config.TemplateID))
	}

	if !tmpl.Active {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("template %s is inactive", config.TemplateID))
	}

	subject := tmpl.Subject
	if config.SubjectOverride != "" {
		subject = config.SubjectOverride
	}

	subject = template.Render(subject, &execCtx)

	body := template.Render(tmpl.Body, &execCtx)
	if config.Prelude != "" {
		body = config.Prelude + "\n\n" + body
	}

	message := transport.Message{
		To:        execCtx.CustomerEmail,
		FromName:  tmpl.FromName,
		FromEmail: tmpl.FromEmail,
		Subject:   subject,
		Body:      body,
		Channel:   tmpl.Channel,
	}

	if err := e.sender.Send(ctx, message); err != nil {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("transport error: %v", err))
	}

	logger.InfoContext(ctx, "Message sent", "template_id", tmpl.ID, "subject", subject)

	record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusSuccess)
	record.Metadata["template_id"] = tmpl.ID
	record.Metadata["subject"] = subject
	e.appendRecord(ctx, logger, record)

	return nodeOutcome{ok: true}
}

// executeDelay suspends the branch: it persists a resumption token and
// halts traversal past this node. The success record written here also
// anchors the dedup window for runs that suspend before any other node has
// executed.
func (e *Executor) executeDelay(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	config models.DelayConfig,
	execCtx models.ExecutionContext,
) nodeOutcome {
	resumption := models.NewDelayedResumption(flow.ID, node.ID, execCtx, config.Duration())

	if err := e.persistence.Resumptions().Save(ctx, resumption); err != nil {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("failed to persist delayed resumption: %v", err))
	}

	logger.InfoContext(ctx, "Branch suspended",
		"resumption_id", resumption.ID,
		"due_at", resumption.DueAt)
	e.publishDelayScheduled(ctx, resumption)

	record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusSuccess)
	record.Metadata["resumption_id"] = resumption.ID
	record.Metadata["due_at"] = resumption.DueAt.Format(time.RFC3339)
	e.appendRecord(ctx, logger, record)

	return nodeOutcome{ok: true, halt: true}
}

func (e *Executor) executeCondition(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	config models.ConditionConfig,
	execCtx models.ExecutionContext,
) nodeOutcome {
	result := condition.Evaluate(config, &execCtx)

	logger.InfoContext(ctx, "Condition evaluated",
		"field", config.Field,
		"operator", config.Operator,
		"result", result)

	record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusSuccess)
	record.Metadata["field"] = string(config.Field)
	record.Metadata["operator"] = string(config.Operator)
	record.Metadata["value"] = config.Value
	record.Metadata["result"] = result
	e.appendRecord(ctx, logger, record)

	return nodeOutcome{ok: true, conditionResult: &result}
}

func (e *Executor) executeProfileAction(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	config models.ProfileActionConfig,
	execCtx models.ExecutionContext,
) nodeOutcome {
	if config.Action == models.ProfileActionEndFlow {
		logger.InfoContext(ctx, "Flow ended by node", "reason", config.Reason)

		record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusSuccess)
		record.Metadata["action"] = string(config.Action)
		record.Metadata["reason"] = config.Reason
		e.appendRecord(ctx, logger, record)

		return nodeOutcome{ok: true, halt: true}
	}

	// Absent customer ID skips the side effect but does not abort the
	// branch: downstream nodes still run against the same context.
	if execCtx.CustomerID == "" {
		message := fmt.Sprintf("profile action %s requires a customer ID", config.Action)
		logger.WarnContext(ctx, "Profile action skipped", "error", message)

		record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusFailure)
		record.Error = message
		record.Metadata["action"] = string(config.Action)
		e.appendRecord(ctx, logger, record)

		return nodeOutcome{degraded: true}
	}

	var err error

	switch config.Action {
	case models.ProfileActionUpdateTags:
		err = e.profiles.AddTags(ctx, execCtx.CustomerID, config.Tags)
	case models.ProfileActionApplyDiscount:
		err = e.profiles.ApplyDiscount(ctx, execCtx.CustomerID, profile.Discount{
			Type:      config.DiscountType,
			Value:     config.DiscountValue,
			ExpiresAt: time.Now().UTC().AddDate(0, 0, config.ExpiresInDays),
			Reason:    config.Reason,
		})
	default:
		err = fmt.Errorf("unknown profile action %q", config.Action)
	}

	if err != nil {
		return e.failNode(ctx, logger, flow, node, execCtx,
			fmt.Sprintf("profile action %s failed: %v", config.Action, err))
	}

	logger.InfoContext(ctx, "Profile action applied",
		"action", config.Action,
		"customer_id", execCtx.CustomerID)

	record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusSuccess)
	record.Metadata["action"] = string(config.Action)
	e.appendRecord(ctx, logger, record)

	return nodeOutcome{ok: true}
}

func (e *Executor) failNode(
	ctx context.Context,
	logger *slog.Logger,
	flow *models.Flow,
	node *models.FlowNode,
	execCtx models.ExecutionContext,
	message string,
) nodeOutcome {
	logger.ErrorContext(ctx, "Node execution failed", "error", message)

	record := models.NewExecutionRecord(flow.ID, node.ID, execCtx.CustomerEmail, models.ExecutionStatusFailure)
	record.Error = message
	e.appendRecord(ctx, logger, record)

	return nodeOutcome{ok: false}
}

func (e *Executor) isDuplicate(ctx context.Context, flowID, email string) (bool, error) {
	since := time.Now().UTC().Add(-DedupWindow)

	records, err := e.persistence.ExecutionRecords().ListRecent(ctx, flowID, email, since)
	if err != nil {
		return false, err
	}

	return len(records) > 0, nil
}

// appendRecord writes an audit row. Append failures are logged and
// swallowed: the audit trail must never break a running branch.
func (e *Executor) appendRecord(ctx context.Context, logger *slog.Logger, record *models.ExecutionRecord) {
	if err := e.persistence.ExecutionRecords().Append(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to append execution record", "error", err, "record_id", record.ID)
	}
}

func (e *Executor) publishStarted(ctx context.Context, flow *models.Flow, execCtx models.ExecutionContext) {
	if e.publisher == nil {
		return
	}

	event := events.FlowExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.FlowExecutionStartedEvent, flow.ID),
		FlowName:    flow.Name,
		TriggerType: execCtx.TriggerType,
		Customer:    execCtx.CustomerEmail,
	}
	e.publish(ctx, flow.ID, event)
}

func (e *Executor) publishFinished(ctx context.Context, flow *models.Flow, executed, failed int, duration time.Duration) {
	if e.publisher == nil {
		return
	}

	event := events.FlowExecutionFinished{
		BaseEvent:     events.NewBaseEvent(events.FlowExecutionFinishedEvent, flow.ID),
		NodesExecuted: executed,
		NodesFailed:   failed,
		Duration:      duration,
	}
	e.publish(ctx, flow.ID, event)
}

func (e *Executor) publishSkipped(ctx context.Context, flow *models.Flow, execCtx models.ExecutionContext, reason string) {
	if e.publisher == nil {
		return
	}

	event := events.FlowExecutionSkipped{
		BaseEvent: events.NewBaseEvent(events.FlowExecutionSkippedEvent, flow.ID),
		Customer:  execCtx.CustomerEmail,
		Reason:    reason,
	}
	e.publish(ctx, flow.ID, event)
}

func (e *Executor) publishDelayScheduled(ctx context.Context, resumption *models.DelayedResumption) {
	if e.publisher == nil {
		return
	}

	event := events.DelayScheduled{
		BaseEvent:    events.NewBaseEvent(events.DelayScheduledEvent, resumption.FlowID),
		ResumptionID: resumption.ID,
		NodeID:       resumption.NodeID,
		DueAt:        resumption.DueAt,
	}
	e.publish(ctx, resumption.FlowID, event)
}

func (e *Executor) publishDelayElapsed(ctx context.Context, resumption *models.DelayedResumption) {
	if e.publisher == nil {
		return
	}

	event := events.DelayElapsed{
		BaseEvent:    events.NewBaseEvent(events.DelayElapsedEvent, resumption.FlowID),
		ResumptionID: resumption.ID,
		NodeID:       resumption.NodeID,
	}
	e.publish(ctx, resumption.FlowID, event)
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
