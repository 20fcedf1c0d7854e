package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/mocks"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/registry"
)

const failingNodeType = "test:fail"

type failingNode struct{ id string }

func (n *failingNode) ID() string { return n.id }

func (n *failingNode) Execute(context.Context, protocol.Env, models.ExecutionContext) (models.ExecutionContext, error) {
	return models.ExecutionContext{}, errors.New("upstream exploded")
}

type failingFactory struct{}

func (failingFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.Node, error) {
	return &failingNode{id: id}, nil
}

func (failingFactory) ID() string             { return failingNodeType }
func (failingFactory) Name() string           { return "Fail" }
func (failingFactory) Description() string    { return "Always fails" }
func (failingFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	updates  []models.StatusUpdate
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, update models.StatusUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.channels = append(p.channels, channel)
	p.updates = append(p.updates, update)
}

func testRegistry() *registry.Registry {
	reg := registry.NewDefault(slog.Default())
	reg.RegisterNode(failingFactory{})

	return reg
}

func node(id, nodeType string, config map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Type: nodeType, Name: id, Config: config}
}

func conn(source, target string) *models.Connection {
	return &models.Connection{ID: source + "->" + target, SourcePort: source, TargetPort: target}
}

func setField(name, value string) map[string]any {
	return map[string]any{"fields": []any{map[string]any{"name": name, "value": value}}}
}

func newWorkflow(nodes []*models.WorkflowNode, connections ...*models.Connection) *models.Workflow {
	return &models.Workflow{
		ID:          "wf-test",
		Name:        "Test workflow",
		Status:      models.WorkflowStatusPublished,
		Nodes:       nodes,
		Connections: connections,
	}
}

func TestExecutor_LinearRun(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("greet", "set", setField("greeting", "Hello {{trigger.name}}")),
		},
		conn("start:success", "greet:main"),
	)
	wf.Variables = map[string]any{"env": "test"}

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		RunID:       "run-1",
		TriggerData: map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, []string{"start", "greet"}, result.Executed)
	assert.Equal(t, "Hello Ada", result.Context.Value("greeting"))
	assert.Equal(t, "test", result.Context.Value("env"))
	assert.Equal(t, map[string]any{"name": "Ada"}, result.Context.Value("trigger"))
	assert.False(t, result.Context.Has(models.TriggerKey))
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestExecutor_RequestVariablesOverrideWorkflowVariables(t *testing.T) {
	wf := newWorkflow([]*models.WorkflowNode{node("start", models.NodeTypeTriggerManual, nil)})
	wf.Variables = map[string]any{"env": "test", "region": "eu"}

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		Variables: map[string]any{"env": "prod"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "prod", result.Context.Value("env"))
	assert.Equal(t, "eu", result.Context.Value("region"))
}

func conditionalWorkflow(nodeType string) *models.Workflow {
	return newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("check", nodeType, map[string]any{
				"conditions": []any{
					map[string]any{"field": "trigger.amount", "operator": "greater_than", "value": 100},
				},
			}),
			node("big", "set", setField("size", "big")),
			node("small", "set", setField("size", "small")),
		},
		conn("start:success", "check:main"),
		conn("check:true", "big:main"),
		conn("check:false", "small:main"),
	)
}

func TestExecutor_ConditionalRoutesBranches(t *testing.T) {
	tests := []struct {
		amount   int
		expected string
	}{
		{amount: 150, expected: "big"},
		{amount: 50, expected: "small"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result, err := NewExecutor(testRegistry()).Run(context.Background(), conditionalWorkflow("conditional"), RunRequest{
				TriggerData: map[string]any{"amount": tt.amount},
			})
			require.NoError(t, err)

			assert.Equal(t, []string{"start", "check", tt.expected}, result.Executed)
			assert.Equal(t, tt.expected, result.Context.Value("size"))
			assert.False(t, result.Context.Has(models.BranchKey))
		})
	}
}

func TestExecutor_FilterStopsFailingItems(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("paid", "filter", map[string]any{
				"conditions": []any{
					map[string]any{"field": "trigger.status", "operator": "equals", "value": "paid"},
				},
			}),
			node("ship", "set", setField("shipped", "yes")),
		},
		conn("start:success", "paid:main"),
		conn("paid:true", "ship:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		TriggerData: map[string]any{"status": "pending"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, []string{"start", "paid"}, result.Executed)
	assert.False(t, result.Context.Has("shipped"))
}

func TestExecutor_SwitchRoutesToOutputPort(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("route", "switch", map[string]any{
				"rules": []any{
					map[string]any{"name": "gold", "condition": "trigger.tier == 'gold'", "output": 1},
				},
				"fallbackOutput": 0,
			}),
			node("standard", "set", setField("lane", "standard")),
			node("vip", "set", setField("lane", "vip")),
		},
		conn("start:success", "route:main"),
		conn("route:output_0", "standard:main"),
		conn("route:output_1", "vip:main"),
	)

	executor := NewExecutor(testRegistry())

	gold, err := executor.Run(context.Background(), wf, RunRequest{TriggerData: map[string]any{"tier": "gold"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "route", "vip"}, gold.Executed)
	assert.False(t, gold.Context.Has(models.SwitchOutputKey))

	silver, err := executor.Run(context.Background(), wf, RunRequest{TriggerData: map[string]any{"tier": "silver"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "route", "standard"}, silver.Executed)
}

func TestExecutor_MergesPredecessorsInDeclarationOrder(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("a", "set", map[string]any{"fields": []any{
				map[string]any{"name": "from", "value": "a"},
				map[string]any{"name": "onlyA", "value": "yes"},
			}}),
			node("b", "set", map[string]any{"fields": []any{
				map[string]any{"name": "from", "value": "b"},
				map[string]any{"name": "onlyB", "value": "yes"},
			}}),
			node("join", "set", setField("joined", "yes")),
		},
		conn("start:success", "a:main"),
		conn("start:success", "b:main"),
		conn("b:success", "join:main"),
		conn("a:success", "join:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "a", "b", "join"}, result.Executed)
	// a -> join is declared last, so its values win.
	assert.Equal(t, "a", result.Context.Value("from"))
	assert.Equal(t, "yes", result.Context.Value("onlyA"))
	assert.Equal(t, "yes", result.Context.Value("onlyB"))
	assert.Equal(t, "yes", result.Context.Value("joined"))
}

func TestExecutor_LoopRunsBodyPerIteration(t *testing.T) {
	steps := &mocks.MockStepRunner{}
	steps.On("Sleep", mock.Anything, "wait:sleep#0", time.Duration(0)).Return(nil).Once()
	steps.On("Sleep", mock.Anything, "wait:sleep#1", time.Duration(0)).Return(nil).Once()

	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("each", "loop", map[string]any{"source": "trigger.items"}),
			node("wait", "delay", map[string]any{"duration": "0"}),
			node("label", "set", setField("label", "item {{loop.currentItem}}")),
			node("after", "set", setField("finished", "yes")),
		},
		conn("start:success", "each:main"),
		conn("each:each", "wait:main"),
		conn("wait:success", "label:main"),
		conn("each:done", "after:main"),
	)

	executor := NewExecutor(testRegistry(), WithStepRunners(func(string) protocol.StepRunner { return steps }))

	result, err := executor.Run(context.Background(), wf, RunRequest{
		TriggerData: map[string]any{"items": []any{"a", "b"}},
	})
	require.NoError(t, err)

	steps.AssertExpectations(t)

	assert.Equal(t, []string{"start", "each", "wait#0", "label#0", "wait#1", "label#1", "after"}, result.Executed)
	assert.Equal(t, "yes", result.Context.Value("finished"))
	assert.False(t, result.Context.Has("label"))
	assert.False(t, result.Context.Has(models.LoopKey))

	summary, ok := result.Context.Value("loop").(map[string]any)
	require.True(t, ok)

	results, ok := summary["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "item a", results[0].(map[string]any)["label"])
	assert.Equal(t, "item b", results[1].(map[string]any)["label"])
}

func TestExecutor_LoopBindsItemsPerIteration(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("each", "loop", map[string]any{"source": "trigger.items"}),
			node("label", "set", setField("label", "{{loop.currentItem}} of {{loop.items.2}}")),
		},
		conn("start:success", "each:main"),
		conn("each:each", "label:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		TriggerData: map[string]any{"items": []any{"a", "b", "c"}},
	})
	require.NoError(t, err)

	summary, ok := result.Context.Value("loop").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b", "c"}, summary["items"])

	results := summary["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, "a of c", results[0].(map[string]any)["label"])
	assert.Equal(t, "c of c", results[2].(map[string]any)["label"])

	for _, iteration := range summary["iterations"].([]any) {
		assert.NotContains(t, iteration.(map[string]any), "items")
	}
}

func TestExecutor_ErrorPortDegradesGracefully(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("boom", failingNodeType, nil),
			node("ok", "set", setField("reached", "success")),
			node("handle", "errorhandler", nil),
		},
		conn("start:success", "boom:main"),
		conn("boom:success", "ok:main"),
		conn("boom:error", "handle:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, []string{"start", "boom", "handle"}, result.Executed)
	assert.False(t, result.Context.Has(models.ErrorKey))
	assert.False(t, result.Context.Has("reached"))

	carried, ok := result.Context.Value("failure").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", carried["nodeId"])
	assert.Equal(t, false, carried["retriable"])
	assert.NotEmpty(t, carried["message"])
}

func TestExecutor_UnregisteredNodeTypeIgnoresErrorPort(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("ghost", "not-installed", nil),
			node("handle", "errorhandler", nil),
		},
		conn("start:success", "ghost:main"),
		conn("ghost:error", "handle:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrNodeTypeNotRegistered)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "ghost", runErr.NodeID)

	if result != nil {
		assert.NotContains(t, result.Executed, "handle")
	}
}

func TestExecutor_FailureWithoutErrorPortEndsRun(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("boom", failingNodeType, nil),
			node("never", "set", setField("reached", "yes")),
		},
		conn("start:success", "boom:main"),
		conn("boom:success", "never:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{RunID: "run-9"})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "boom", runErr.NodeID)
	assert.Equal(t, "run-9", runErr.RunID)
	assert.Equal(t, "wf-test", runErr.WorkflowID)

	_, structured := failure.As(err)
	assert.True(t, structured)

	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Equal(t, []string{"start", "boom"}, result.Executed)
}

func TestExecutor_DisabledNodePassesThrough(t *testing.T) {
	skipped := node("skipped", "set", setField("skipped", "ran"))
	skipped.Disabled = true

	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			skipped,
			node("after", "set", setField("after", "ran")),
		},
		conn("start:success", "skipped:main"),
		conn("skipped:success", "after:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "skipped", "after"}, result.Executed)
	assert.False(t, result.Context.Has("skipped"))
	assert.Equal(t, "ran", result.Context.Value("after"))
}

func TestExecutor_RejectsCycles(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("a", "set", setField("a", "1")),
			node("b", "set", setField("b", "1")),
		},
		conn("a:success", "b:main"),
		conn("b:success", "a:main"),
	)

	_, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{})
	assert.ErrorIs(t, err, ErrInvalidWorkflow)
}

func TestExecutor_UnknownTriggerNode(t *testing.T) {
	wf := newWorkflow([]*models.WorkflowNode{node("start", models.NodeTypeTriggerManual, nil)})

	_, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{TriggerNodeID: "missing"})
	assert.ErrorIs(t, err, ErrTriggerNotFound)
}

func TestExecutor_SelectsRequestedTrigger(t *testing.T) {
	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("manual", models.NodeTypeTriggerManual, nil),
			node("hook", models.NodeTypeTriggerWebhook, map[string]any{"webhookPath": "/orders"}),
			node("fromManual", "set", setField("via", "manual")),
			node("fromHook", "set", setField("via", "webhook")),
		},
		conn("manual:success", "fromManual:main"),
		conn("hook:success", "fromHook:main"),
	)

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		TriggerNodeID: "hook",
		TriggerData:   map[string]any{"body": map[string]any{"id": "o-1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"hook", "fromHook"}, result.Executed)
	assert.Equal(t, "webhook", result.Context.Value("via"))
}

func TestExecutor_WithoutTriggerNodesSeedsRoots(t *testing.T) {
	wf := newWorkflow([]*models.WorkflowNode{node("echo", "set", setField("echo", "{{trigger.message}}"))})

	result, err := NewExecutor(testRegistry()).Run(context.Background(), wf, RunRequest{
		TriggerData: map[string]any{"message": "ping"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ping", result.Context.Value("echo"))
}

func TestExecutor_PublishesStatusPerNode(t *testing.T) {
	publisher := &recordingPublisher{}

	wf := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("greet", "set", setField("greeting", "hi")),
		},
		conn("start:success", "greet:main"),
	)

	_, err := NewExecutor(testRegistry(), WithPublisher(publisher)).Run(context.Background(), wf, RunRequest{RunID: "run-1"})
	require.NoError(t, err)

	require.Len(t, publisher.updates, 4)

	expected := []struct {
		node   string
		status models.NodeStatus
	}{
		{"start", models.NodeStatusLoading},
		{"start", models.NodeStatusSuccess},
		{"greet", models.NodeStatusLoading},
		{"greet", models.NodeStatusSuccess},
	}

	for i, e := range expected {
		assert.Equal(t, e.node, publisher.updates[i].NodeID)
		assert.Equal(t, e.status, publisher.updates[i].Status)
		assert.Equal(t, "run-1", publisher.updates[i].RunID)
		assert.Equal(t, "wf-test", publisher.channels[i])
	}
}

func TestExecutor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := newWorkflow([]*models.WorkflowNode{node("start", models.NodeTypeTriggerManual, nil)})

	result, err := NewExecutor(testRegistry()).Run(ctx, wf, RunRequest{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Empty(t, result.Executed)
}
