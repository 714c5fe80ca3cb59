// Package engine orchestrates cascades: it decides which nodes must re-run,
// executes them in dependency order under the pause/stop/partial rules,
// persists results with compare-and-swapped versions, and fans outputs out
// to sinks and dependent workflows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cascadehq/cascade/pkg/alerts"
	"github.com/cascadehq/cascade/pkg/events"
	"github.com/cascadehq/cascade/pkg/fingerprint"
	"github.com/cascadehq/cascade/pkg/graph"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes"
	"github.com/cascadehq/cascade/pkg/otelhelper"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/cascadehq/cascade/pkg/sink"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrWorkflowNotEligible signals a directly-targeted workflow that cannot
// cascade (no ingest node).
var ErrWorkflowNotEligible = errors.New("workflow has no ingest node")

// Controller runs cascades.
type Controller struct {
	store    persistence.Persistence
	registry nodes.Registry
	router   *sink.Router
	alerts   *alerts.Service
	config   Config
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewController wires a cascade controller. The tracer may be nil.
func NewController(
	logger *slog.Logger,
	store persistence.Persistence,
	registry nodes.Registry,
	router *sink.Router,
	alertService *alerts.Service,
	tracer trace.Tracer,
	config Config,
) *Controller {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("cascade")
	}

	return &Controller{
		store:    store,
		registry: registry,
		router:   router,
		alerts:   alertService,
		config:   config.withDefaults(),
		tracer:   tracer,
		logger:   logger.With("module", "engine"),
	}
}

// Run executes one trigger end to end: submission rehydration, the
// in-scope workflows in order, then the guarded cross-workflow cascade.
// Node-level failures are contained; only store and configuration failures
// abort the run.
func (c *Controller) Run(ctx context.Context, req TriggerRequest) (*RunReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "cascade.run",
		attribute.String(otelhelper.TenantIDKey, req.TenantID),
		attribute.String(otelhelper.SubmissionIDKey, req.SubmissionID),
	)
	defer span.End()

	report := &RunReport{
		TenantID:     req.TenantID,
		SubmissionID: req.SubmissionID,
		Synced:       make(sink.Counts),
		StartedAt:    time.Now().UTC(),
	}

	submission, err := c.prepareSubmission(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	targets, err := c.selectWorkflows(ctx, req, submission)
	if err != nil {
		c.failSubmission(ctx, submission, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	// Visited guards the recursive cross-workflow cascade against re-entry
	// within one trigger chain.
	visited := make(map[string]bool)

	// frontier maps workflow id to the nodes executed there in the last
	// wave, the inputs the next cascade wave is scanned against.
	frontier := make(map[string]map[string]bool)

	for _, workflow := range targets {
		visited[workflow.ID] = true

		executed, err := c.runWorkflow(ctx, workflow, submission, req, report, false)
		if err != nil {
			c.failSubmission(ctx, submission, err)
			otelhelper.SetError(span, err)

			return nil, err
		}

		if len(executed) > 0 {
			frontier[workflow.ID] = executed
		}
	}

	if err := c.cascadeDependents(ctx, submission, req, report, visited, frontier); err != nil {
		c.failSubmission(ctx, submission, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	submission.Status = models.SubmissionStatusCompleted
	submission.UpdatedAt = time.Now().UTC()

	if err := c.store.SubmissionRepository().Save(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to complete submission: %w", err)
	}

	report.FinishedAt = time.Now().UTC()

	c.alerts.ExecutionSummary(ctx, req.TenantID, len(report.Workflows), report.ExecutedCount(), report.CachedCount())

	return report, nil
}

// prepareSubmission loads the submission, rehydrates bare triggers from the
// latest submission carrying real data, and marks it processing.
func (c *Controller) prepareSubmission(ctx context.Context, req TriggerRequest) (*models.Submission, error) {
	submissions := c.store.SubmissionRepository()

	submission, err := submissions.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", req.SubmissionID, err)
	}

	if submission.TriggerOnly() {
		latest, err := submissions.LatestWithData(ctx, req.TenantID)
		if err != nil {
			c.failSubmission(ctx, submission, err)

			return nil, fmt.Errorf("cannot rehydrate trigger submission %s: %w", submission.ID, err)
		}

		submission.Payload = latest.Payload

		if submission.Source == "" {
			submission.Source = latest.Source
		}
	}

	submission.Status = models.SubmissionStatusProcessing
	submission.UpdatedAt = time.Now().UTC()

	if err := submissions.Save(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to mark submission processing: %w", err)
	}

	return submission, nil
}

func (c *Controller) failSubmission(ctx context.Context, submission *models.Submission, cause error) {
	submission.Status = models.SubmissionStatusFailed
	submission.UpdatedAt = time.Now().UTC()

	if err := c.store.SubmissionRepository().Save(ctx, submission); err != nil {
		c.logger.ErrorContext(ctx, "failed to mark submission failed",
			"submission_id", submission.ID,
			"cause", cause,
			"error", err)
	}
}

// selectWorkflows resolves the run's initial workflow scope: the targeted
// workflow, or every live workflow with an ingest node relevant to the
// submission's source.
func (c *Controller) selectWorkflows(ctx context.Context, req TriggerRequest, submission *models.Submission) ([]*models.Workflow, error) {
	if req.WorkflowID != "" {
		workflow, err := c.store.WorkflowRepository().GetByID(ctx, req.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", req.WorkflowID, err)
		}

		if workflow.IngestNode() == nil {
			return nil, fmt.Errorf("workflow %s: %w", req.WorkflowID, ErrWorkflowNotEligible)
		}

		return []*models.Workflow{workflow}, nil
	}

	all, err := c.store.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	var targets []*models.Workflow

	for _, workflow := range all {
		if workflow.DeletedAt != nil || workflow.Settings.ParentID != nil {
			continue
		}

		if workflow.IngestNode() == nil || !workflow.RelevantTo(submission.Source) {
			continue
		}

		targets = append(targets, workflow)
	}

	return targets, nil
}

// cascadeDependents re-runs workflows holding triggering cross-graph
// dependencies on nodes just executed, wave by wave, refusing to re-enter a
// workflow already visited in this trigger chain.
func (c *Controller) cascadeDependents(
	ctx context.Context,
	submission *models.Submission,
	req TriggerRequest,
	report *RunReport,
	visited map[string]bool,
	frontier map[string]map[string]bool,
) error {
	all, err := c.store.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows for cascade: %w", err)
	}

	for len(frontier) > 0 {
		var wave []*models.Workflow

		for _, workflow := range all {
			if visited[workflow.ID] || workflow.DeletedAt != nil {
				continue
			}

			if dependsOnFrontier(workflow, frontier) {
				wave = append(wave, workflow)
			}
		}

		frontier = make(map[string]map[string]bool)

		for _, workflow := range wave {
			visited[workflow.ID] = true

			c.logger.InfoContext(ctx, "cross-workflow cascade",
				"workflow_id", workflow.ID,
				"tenant_id", submission.TenantID)

			executed, err := c.runWorkflow(ctx, workflow, submission, req, report, true)
			if err != nil {
				return err
			}

			if len(executed) > 0 {
				frontier[workflow.ID] = executed
			}
		}
	}

	return nil
}

func dependsOnFrontier(workflow *models.Workflow, frontier map[string]map[string]bool) bool {
	for _, node := range workflow.ExecutableNodes() {
		for _, dep := range node.Dependencies() {
			if !dep.CrossWorkflow() || !dep.Triggers {
				continue
			}

			if frontier[dep.WorkflowID][dep.NodeID] {
				return true
			}
		}
	}

	return false
}

// runWorkflow executes one workflow for the submission and appends its
// report. It returns the set of nodes that ran (executed or failed), the
// inputs for the cross-workflow cascade scan.
func (c *Controller) runWorkflow(
	ctx context.Context,
	workflow *models.Workflow,
	submission *models.Submission,
	req TriggerRequest,
	report *RunReport,
	cascaded bool,
) (map[string]bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "cascade.workflow",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
	)
	defer span.End()

	executable := workflow.ExecutableNodes()
	order := graph.Order(executable)

	wfReport := WorkflowReport{
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		States:       make(map[string]NodeState, len(order)),
		Cascaded:     cascaded,
	}

	records, err := c.loadRecords(ctx, submission.TenantID, workflow.ID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	// Workflow-level short-circuit: an unchanged submission payload means
	// nothing downstream of the ingest node can be dirty. Cascaded runs skip
	// it; their dirtiness comes from cross-graph dependencies.
	submissionHash := fingerprint.Hash(submission.Payload)

	if ingest := workflow.IngestNode(); ingest != nil && !cascaded && !req.Force && req.StartFromNodeID == "" {
		if prior := records[ingest.ID]; prior != nil && prior.ContentHash == submissionHash {
			for _, id := range order {
				wfReport.States[id] = NodeStateCached
				wfReport.Cached = append(wfReport.Cached, id)
			}

			report.Workflows = append(report.Workflows, wfReport)

			return nil, nil
		}
	}

	paused := pausedSet(executable)

	// The start-node restriction only binds workflows that contain the
	// node; others selected by the same trigger run in full.
	var scope map[string]bool
	if req.StartFromNodeID != "" && (req.WorkflowID == "" || req.WorkflowID == workflow.ID) && workflow.Node(req.StartFromNodeID) != nil {
		scope = graph.Dependents(executable, req.StartFromNodeID)
	}

	results, crossHashes, err := c.preloadResults(ctx, submission.TenantID, workflow, records)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	dc := decisionContext{
		currentHash: func(dep models.Dependency) (string, bool) {
			if dep.CrossWorkflow() {
				hash, ok := crossHashes[dep.Key()]

				return hash, ok
			}

			if record := records[dep.NodeID]; record != nil {
				return record.ContentHash, true
			}

			return "", false
		},
		liveFetch: func(nodeID string) bool {
			node := workflow.Node(nodeID)

			return node != nil && node.LiveFetch
		},
	}

	ran := make(map[string]bool)

	for _, id := range order {
		node := workflow.Node(id)

		switch {
		case paused[id]:
			wfReport.States[id] = NodeStateSkippedPaused

			continue
		case scope != nil && !scope[id]:
			wfReport.States[id] = NodeStateSkippedOutOfScope

			continue
		}

		dc.record = records[id]

		if !c.nodeNeedsExecution(node, dc, submissionHash, req) {
			wfReport.States[id] = NodeStateCached
			wfReport.Cached = append(wfReport.Cached, id)

			continue
		}

		state, err := c.executeNode(ctx, workflow, node, submission, results, records, dc, report)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		wfReport.States[id] = state
		wfReport.Executed = append(wfReport.Executed, id)
		ran[id] = true
	}

	report.Workflows = append(report.Workflows, wfReport)

	return ran, nil
}

// nodeNeedsExecution applies the dirtiness rule; the ingest node compares
// the submission payload hash instead of dependency hashes.
func (c *Controller) nodeNeedsExecution(node *models.Node, dc decisionContext, submissionHash string, req TriggerRequest) bool {
	if node.Type == models.NodeTypeIngest {
		hasPrior := dc.record != nil && dc.record.ContentHash != ""

		if req.EmptyOnly {
			return !hasPrior
		}

		return req.Force || !hasPrior || dc.record.ContentHash != submissionHash
	}

	return needsExecution(node, dc, req.Force, req.EmptyOnly)
}

// executeNode runs one dirty node, persists its record, raises alerts for
// its failure classes, and dispatches its sinks. Node failures become
// bracketed marker outputs; only store failures return an error.
func (c *Controller) executeNode(
	ctx context.Context,
	workflow *models.Workflow,
	node *models.Node,
	submission *models.Submission,
	results map[string]string,
	records map[string]*models.NodeOutputRecord,
	dc decisionContext,
	report *RunReport,
) (NodeState, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "cascade.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	in := protocol.NodeInput{
		TenantID:   submission.TenantID,
		Workflow:   workflow,
		Submission: submission,
		Variables:  workflow.Variables,
		Results:    results,
	}

	state := NodeStateExecuted

	executor, err := c.registry.For(node.Type)
	if err != nil {
		return "", fmt.Errorf("workflow %s: %w", workflow.ID, err)
	}

	result, execErr := executor.Execute(ctx, in, node)
	if execErr != nil {
		c.logger.WarnContext(ctx, "node execution failed",
			"workflow_id", workflow.ID,
			"node_id", node.ID,
			"error", execErr)
		otelhelper.SetError(span, execErr)

		c.raiseExecutionAlerts(ctx, submission.TenantID, workflow.ID, node, execErr)

		result = protocol.NodeResult{Output: models.ErrorMarker(execErr.Error())}
		state = NodeStateFailed
	}

	if result.Truncated {
		maxTokens := 0
		if node.Config.Prompt != nil {
			maxTokens = node.Config.Prompt.MaxTokens
		}

		c.alerts.Truncation(ctx, submission.TenantID, workflow.ID, node.ID, maxTokens)
	}

	record, err := c.persistResult(ctx, submission.TenantID, workflow.ID, node, result, dc)
	if err != nil {
		return "", err
	}

	records[node.ID] = record
	results[node.ID] = record.Output

	if result.Evaluation != nil {
		c.recordEvaluation(ctx, submission.TenantID, workflow.ID, node.ID, result.Evaluation)
	}

	if state == NodeStateExecuted && record.Output != models.StopSignal && !models.IsErrorMarker(record.Output) {
		counts := c.router.Dispatch(ctx, events.NodeOutputEvent{
			TenantID:   submission.TenantID,
			WorkflowID: workflow.ID,
			NodeID:     node.ID,
			NodeLabel:  node.Label,
			NodeType:   node.Type,
			Payload:    record.Output,
			Version:    record.Version,
			ExecutedAt: record.ExecutedAt,
		}, node.Sync)

		report.Synced.Merge(counts)
	}

	return state, nil
}

func (c *Controller) raiseExecutionAlerts(ctx context.Context, tenantID, workflowID string, node *models.Node, execErr error) {
	model := ""
	if node.Config.Prompt != nil {
		model = node.Config.Prompt.Model
	}

	switch {
	case errors.Is(execErr, protocol.ErrModelNotFound):
		c.alerts.ModelNotFound(ctx, tenantID, workflowID, node.ID, model)
	case node.Type == models.NodeTypePrompt:
		c.alerts.ModelError(ctx, tenantID, workflowID, node.ID, model, execErr)
	}
}

// persistResult upserts the node's record under the version compare-and-swap,
// re-reading and retrying a bounded number of times on conflict.
func (c *Controller) persistResult(
	ctx context.Context,
	tenantID, workflowID string,
	node *models.Node,
	result protocol.NodeResult,
	dc decisionContext,
) (*models.NodeOutputRecord, error) {
	outputs := c.store.NodeOutputRepository()

	expected := 0
	if dc.record != nil {
		expected = dc.record.Version
	}

	for attempt := 0; ; attempt++ {
		record := &models.NodeOutputRecord{
			TenantID:         tenantID,
			WorkflowID:       workflowID,
			NodeID:           node.ID,
			Output:           result.Output,
			ContentHash:      fingerprint.Hash(result.Output),
			DependencyHashes: c.dependencyHashes(node, dc),
			Evaluation:       result.Evaluation,
			LowQualityFields: result.LowQualityFields,
			ExecutedAt:       time.Now().UTC(),
		}

		err := outputs.Upsert(ctx, record, expected)
		if err == nil {
			return record, nil
		}

		if !persistence.IsVersionConflict(err) || attempt >= c.config.UpsertRetries {
			return nil, fmt.Errorf("failed to persist output for node %s: %w", node.ID, err)
		}

		current, getErr := outputs.Get(ctx, tenantID, workflowID, node.ID)

		switch {
		case getErr == nil:
			expected = current.Version
		case persistence.IsNotFound(getErr):
			expected = 0
		default:
			return nil, fmt.Errorf("failed to re-read output for node %s: %w", node.ID, getErr)
		}

		c.logger.WarnContext(ctx, "version conflict, retrying upsert",
			"node_id", node.ID,
			"expected", expected,
			"attempt", attempt+1)
	}
}

// dependencyHashes snapshots the current hash of every tracked dependency.
// Trigger-disabled and live-fetch dependencies are never tracked.
func (c *Controller) dependencyHashes(node *models.Node, dc decisionContext) map[string]string {
	hashes := make(map[string]string)

	for _, dep := range node.Dependencies() {
		if !dep.Triggers {
			continue
		}

		if !dep.CrossWorkflow() && dc.liveFetch(dep.NodeID) {
			continue
		}

		if hash, ok := dc.currentHash(dep); ok {
			hashes[dep.Key()] = hash
		}
	}

	if len(hashes) == 0 {
		return nil
	}

	return hashes
}

func (c *Controller) recordEvaluation(ctx context.Context, tenantID, workflowID, nodeID string, record *models.EvaluationRecord) {
	err := c.store.EvaluationRepository().Append(ctx, tenantID, workflowID, nodeID, record, c.config.EvaluationRetention)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to append evaluation history",
			"node_id", nodeID,
			"error", err)
	}

	if record.Flagged() {
		c.alerts.LowQuality(ctx, tenantID, workflowID, nodeID, record)
	}
}

func (c *Controller) loadRecords(ctx context.Context, tenantID, workflowID string) (map[string]*models.NodeOutputRecord, error) {
	list, err := c.store.NodeOutputRepository().ListByWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load node outputs: %w", err)
	}

	records := make(map[string]*models.NodeOutputRecord, len(list))
	for _, record := range list {
		records[record.NodeID] = record
	}

	return records, nil
}

// preloadResults seeds the in-memory results map with every prior output,
// so cached, skipped, and out-of-scope nodes stay resolvable, and resolves
// cross-workflow dependencies by direct store lookup.
func (c *Controller) preloadResults(
	ctx context.Context,
	tenantID string,
	workflow *models.Workflow,
	records map[string]*models.NodeOutputRecord,
) (map[string]string, map[string]string, error) {
	results := make(map[string]string, len(records))
	for nodeID, record := range records {
		results[nodeID] = record.Output
	}

	crossHashes := make(map[string]string)

	for _, node := range workflow.ExecutableNodes() {
		for _, dep := range node.Dependencies() {
			if !dep.CrossWorkflow() {
				continue
			}

			key := dep.Key()
			if _, done := results[key]; done {
				continue
			}

			record, err := c.store.NodeOutputRepository().Get(ctx, tenantID, dep.WorkflowID, dep.NodeID)
			if err != nil {
				if persistence.IsNotFound(err) {
					continue
				}

				return nil, nil, fmt.Errorf("failed to resolve cross-workflow dependency %s: %w", key, err)
			}

			results[key] = record.Output
			crossHashes[key] = record.ContentHash
		}
	}

	return results, crossHashes, nil
}

// pausedSet is each paused node plus everything transitively reachable from
// it via logical dependency edges.
func pausedSet(nodes []*models.Node) map[string]bool {
	paused := make(map[string]bool)

	for _, node := range nodes {
		if !node.Paused || paused[node.ID] {
			continue
		}

		for id := range graph.Dependents(nodes, node.ID) {
			paused[id] = true
		}
	}

	return paused
}
