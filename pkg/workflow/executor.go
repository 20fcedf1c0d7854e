// Package workflow routes a workflow run through its node graph.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/nodeflow/pkg/expression"
	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/otelhelper"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/registry"
	"github.com/dukex/nodeflow/pkg/step"
	"github.com/dukex/nodeflow/pkg/template"
)

type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRequest starts a run. Reusing the RunID of an interrupted run replays
// its journaled steps.
type RunRequest struct {
	RunID string `json:"runId,omitempty"`
	// TriggerNodeID selects the trigger node; the first trigger node when empty.
	TriggerNodeID string         `json:"triggerNodeId,omitempty"`
	TriggerData   map[string]any `json:"triggerData,omitempty"`
	// Variables override the workflow variables for this run.
	Variables map[string]any `json:"variables,omitempty"`
	CallerID  string         `json:"callerId,omitempty"`
	Channel   string         `json:"channel,omitempty"`
}

type RunResult struct {
	RunID      string    `json:"runId"`
	WorkflowID string    `json:"workflowId"`
	Status     RunStatus `json:"status"`
	// Context is the output of the last node executed outside loop bodies.
	Context models.ExecutionContext `json:"context"`
	// Executed lists node ids in execution order; loop body nodes carry their
	// iteration scope, e.g. "notify#2".
	Executed   []string  `json:"executed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

type Option func(*Executor)

func WithPublisher(publisher protocol.StatusPublisher) Option {
	return func(e *Executor) {
		e.publisher = publisher
	}
}

// WithStepRunners sets the constructor of the per-run durable step runner.
func WithStepRunners(steps func(runID string) protocol.StepRunner) Option {
	return func(e *Executor) {
		e.steps = steps
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger.With("module", "workflow_executor")
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// Executor runs workflows. Nodes of one run execute sequentially in
// topological order.
type Executor struct {
	registry  *registry.Registry
	publisher protocol.StatusPublisher
	steps     func(runID string) protocol.StepRunner
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewExecutor(reg *registry.Registry, opts ...Option) *Executor {
	e := &Executor{
		registry:  reg,
		publisher: protocol.NopPublisher{},
		steps:     step.NewFactory(step.NewMemoryJournal()),
		logger:    slog.Default().With("module", "workflow_executor"),
		tracer:    otel.Tracer("nodeflow/workflow"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes wf. A node failure without an error port connection ends the
// run with a *RunError; the returned result then has status failed.
func (e *Executor) Run(ctx context.Context, wf *models.Workflow, req RunRequest) (*RunResult, error) {
	g, err := newGraph(wf)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", wf.ID, "run_id", runID)

	seeds, err := e.seed(wf, g, req)
	if err != nil {
		return nil, err
	}

	channel := req.Channel
	if channel == "" {
		channel = wf.ID
	}

	r := &run{
		executor: e,
		graph:    g,
		wf:       wf,
		req:      req,
		runID:    runID,
		channel:  channel,
		steps:    e.steps(runID),
		logger:   logger,
		result: &RunResult{
			RunID:      runID,
			WorkflowID: wf.ID,
			StartedAt:  time.Now().UTC(),
		},
	}

	logger.InfoContext(ctx, "Starting workflow run", "nodes", len(wf.Nodes))

	last, _, err := r.routeScope(ctx, "", seeds, "")

	r.result.FinishedAt = time.Now().UTC()
	r.result.Context = last

	if err != nil {
		r.result.Status = RunStatusFailed

		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Workflow run failed", "error", err)

		return r.result, err
	}

	r.result.Status = RunStatusCompleted

	logger.InfoContext(ctx, "Workflow run completed",
		"executed", len(r.result.Executed),
		"duration", r.result.FinishedAt.Sub(r.result.StartedAt),
	)

	return r.result, nil
}

// seed builds the initial inbox: the trigger node receives the raw trigger
// payload under models.TriggerKey. Workflows without trigger nodes start at
// every root node with the payload bound to "trigger".
func (e *Executor) seed(wf *models.Workflow, g *graph, req RunRequest) (map[string][]input, error) {
	base := models.NewExecutionContext(wf.Variables).Merge(models.NewExecutionContext(req.Variables))

	payload := req.TriggerData
	if payload == nil {
		payload = map[string]any{}
	}

	start := req.TriggerNodeID
	if start == "" {
		if triggers := wf.TriggerNodes(); len(triggers) > 0 {
			start = triggers[0].ID
		}
	}

	if start != "" {
		node := g.nodes[start]
		if node == nil {
			return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, start)
		}

		return map[string][]input{start: {{index: -1, ctx: base.With(models.TriggerKey, payload)}}}, nil
	}

	seeds := make(map[string][]input)

	for _, id := range g.scope("") {
		if len(g.incoming[id]) == 0 {
			seeds[id] = []input{{index: -1, ctx: base.With("trigger", payload)}}
		}
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no entry node", ErrNotExecutable)
	}

	return seeds, nil
}

type input struct {
	index int
	ctx   models.ExecutionContext
}

type run struct {
	executor *Executor
	graph    *graph
	wf       *models.Workflow
	req      RunRequest
	runID    string
	channel  string
	steps    protocol.StepRunner
	logger   *slog.Logger
	result   *RunResult
}

// routeScope executes the nodes owned by loop (top level when empty) that
// receive input, starting from inbox. It returns the output of the last
// executed node.
func (r *run) routeScope(ctx context.Context, loop string, inbox map[string][]input, scope string) (models.ExecutionContext, bool, error) {
	var (
		last     models.ExecutionContext
		executed bool
	)

	for _, id := range r.graph.scope(loop) {
		inputs := inbox[id]
		if len(inputs) == 0 {
			continue
		}

		if err := ctx.Err(); err != nil {
			return last, executed, &RunError{RunID: r.runID, WorkflowID: r.wf.ID, NodeID: id, Err: err}
		}

		out, ports, err := r.executeNode(ctx, r.graph.nodes[id], merge(inputs), scope)
		if err != nil {
			return last, executed, err
		}

		last, executed = out, true

		for _, port := range ports {
			for _, e := range r.graph.outgoing[id][port] {
				if r.graph.owner[e.target] != loop {
					continue
				}

				inbox[e.target] = append(inbox[e.target], input{index: e.index, ctx: out})
			}
		}
	}

	return last, executed, nil
}

// merge combines the contexts of several activated predecessors in
// connection declaration order; later keys win.
func merge(inputs []input) models.ExecutionContext {
	if len(inputs) == 1 {
		return inputs[0].ctx
	}

	sorted := slices.Clone(inputs)
	slices.SortStableFunc(sorted, func(a, b input) int {
		return a.index - b.index
	})

	out := sorted[0].ctx
	for _, in := range sorted[1:] {
		out = out.Merge(in.ctx)
	}

	return out
}

func (r *run) executeNode(ctx context.Context, node *models.WorkflowNode, in models.ExecutionContext, scope string) (models.ExecutionContext, []string, error) {
	r.result.Executed = append(r.result.Executed, node.ID+scope)

	if node.Disabled {
		r.logger.DebugContext(ctx, "Node disabled, passing input through", "node_id", node.ID)

		return in, []string{models.PortSuccess, models.PortDone}, nil
	}

	out, err := Invoke(ctx, r.executor.registry, node.Type, protocol.Invocation{
		Config:     node.Config,
		NodeID:     node.ID,
		Context:    in,
		CallerID:   r.req.CallerID,
		RunID:      r.runID,
		WorkflowID: r.wf.ID,
		Scope:      scope,
		Channel:    r.channel,
		Step:       r.steps,
		Publisher:  r.executor.publisher,
	})
	if err != nil {
		return r.fail(ctx, node, in, err)
	}

	if node.Type == loopNodeType {
		return r.runLoop(ctx, node, out, scope)
	}

	out, port := routingPort(out)

	return out, []string{port}, nil
}

// fail stores the structured error under __error and continues on the error
// port when the node has one; otherwise the run ends.
func (r *run) fail(ctx context.Context, node *models.WorkflowNode, in models.ExecutionContext, err error) (models.ExecutionContext, []string, error) {
	// A missing node type is a broken workflow, not a node failure to handle.
	if errors.Is(err, registry.ErrNodeTypeNotRegistered) || !r.graph.hasPort(node.ID, models.PortError) {
		return in, nil, &RunError{RunID: r.runID, WorkflowID: r.wf.ID, NodeID: node.ID, Err: err}
	}

	fe := failure.Classify(err, "")

	carried := fe.Map()
	carried["nodeId"] = node.ID

	r.logger.WarnContext(ctx, "Node failed, continuing on error port", "node_id", node.ID, "error_code", fe.ErrorCode)

	return in.With(models.ErrorKey, carried), []string{models.PortError}, nil
}

// routingPort reads and strips the routing signal a node left in its output.
func routingPort(out models.ExecutionContext) (models.ExecutionContext, string) {
	port := models.PortSuccess

	if v, ok := out.Get(models.SwitchOutputKey); ok {
		if index, isInt := expression.ToInt(v); isInt {
			port = models.SwitchPort(index)
		}
	} else if v, ok := out.Get(models.BranchKey); ok {
		if branch, isString := v.(string); isString && branch != "" {
			port = branch
		}
	}

	return out.Without(models.SwitchOutputKey, models.BranchKey), port
}

// runLoop runs the loop body once per iteration with the loop variable bound
// to the iteration, then continues on the done port with the per-iteration
// results added to the loop summary.
func (r *run) runLoop(ctx context.Context, node *models.WorkflowNode, out models.ExecutionContext, scope string) (models.ExecutionContext, []string, error) {
	signal, _ := template.AsObject(out.Value(models.LoopKey))
	out = out.Without(models.LoopKey)

	variable, _ := signal["variable"].(string)
	iterations, _ := template.AsList(signal["iterations"])
	items := signal["items"]

	results := make([]any, 0, len(iterations))

	for i, iteration := range iterations {
		bound, _ := template.AsObject(iteration)
		bound = maps.Clone(bound)
		if bound == nil {
			bound = make(map[string]any)
		}
		bound["items"] = items

		seed := out.With(variable, bound)

		inbox := make(map[string][]input)
		for _, e := range r.graph.outgoing[node.ID][models.PortEach] {
			inbox[e.target] = append(inbox[e.target], input{index: e.index, ctx: seed})
		}

		last, executed, err := r.routeScope(ctx, node.ID, inbox, scope+"#"+strconv.Itoa(i))
		if err != nil {
			return out, nil, err
		}

		if executed {
			results = append(results, changes(seed, last))
		} else {
			results = append(results, map[string]any{})
		}
	}

	if summary, ok := template.AsObject(out.Value(variable)); ok {
		summary = maps.Clone(summary)
		summary["results"] = results
		out = out.With(variable, summary)
	}

	return out, []string{models.PortDone}, nil
}

// changes returns the user variables of after that are new or differ from before.
func changes(before, after models.ExecutionContext) map[string]any {
	diff := make(map[string]any)

	for _, key := range after.UserKeys() {
		value := after.Value(key)

		if prev, ok := before.Get(key); !ok || !reflect.DeepEqual(prev, value) {
			diff[key] = value
		}
	}

	return diff
}
