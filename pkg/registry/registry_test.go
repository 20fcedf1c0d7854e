package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

type recordingPublisher struct {
	mu      sync.Mutex
	updates []models.StatusUpdate
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, update models.StatusUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updates = append(p.updates, update)
}

func (p *recordingPublisher) statuses() []models.NodeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.NodeStatus, len(p.updates))
	for i, u := range p.updates {
		out[i] = u.Status
	}

	return out
}

type stubNode struct {
	id      string
	execute func(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error)
}

func (n *stubNode) ID() string { return n.id }

func (n *stubNode) Execute(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	return n.execute(ctx, env, execCtx)
}

type stubFactory struct {
	id      string
	create  error
	execute func(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error)
}

func (f *stubFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.Node, error) {
	if f.create != nil {
		return nil, f.create
	}

	return &stubNode{id: id, execute: f.execute}, nil
}

func (f *stubFactory) ID() string             { return f.id }
func (f *stubFactory) Name() string           { return f.id }
func (f *stubFactory) Description() string    { return "" }
func (f *stubFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

func newTestRegistry(factories ...protocol.NodeFactory) *Registry {
	r := NewRegistry(slog.Default())
	for _, f := range factories {
		r.RegisterNode(f)
	}

	return r
}

func TestExecutor_Success(t *testing.T) {
	r := newTestRegistry(&stubFactory{
		id: "stub",
		execute: func(_ context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
			return execCtx.With("seen", env.NodeID), nil
		},
	})

	publisher := &recordingPublisher{}

	out, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{
		NodeID:    "n1",
		RunID:     "run-1",
		Context:   models.ExecutionContext{}.With("a", 1),
		Publisher: publisher,
	})

	require.NoError(t, err)
	assert.Equal(t, "n1", out.Value("seen"))
	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusSuccess}, publisher.statuses())
	assert.Equal(t, "run-1", publisher.updates[1].RunID)
}

func TestExecutor_ConfigErrorPublishesErrorOnce(t *testing.T) {
	r := newTestRegistry(&stubFactory{id: "stub", create: failure.Missing("url")})

	publisher := &recordingPublisher{}

	_, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{NodeID: "n1", Publisher: publisher})

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeInvalidConfig, fe.ErrorCode)
	assert.False(t, fe.Retriable)
	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusError}, publisher.statuses())
	assert.Equal(t, fe.Message, publisher.updates[1].Extra["message"])
}

func TestExecutor_ExecutionErrorIsClassified(t *testing.T) {
	r := newTestRegistry(&stubFactory{
		id: "stub",
		execute: func(ctx context.Context, _ protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
			return execCtx, context.DeadlineExceeded
		},
	})

	publisher := &recordingPublisher{}
	in := models.ExecutionContext{}.With("a", 1)

	out, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{NodeID: "n1", Context: in, Publisher: publisher})

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeTimeout, fe.ErrorCode)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, in, out)
	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusError}, publisher.statuses())
}

func TestExecutor_PanicPublishesError(t *testing.T) {
	r := newTestRegistry(&stubFactory{
		id: "stub",
		execute: func(context.Context, protocol.Env, models.ExecutionContext) (models.ExecutionContext, error) {
			panic("boom")
		},
	})

	publisher := &recordingPublisher{}

	_, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{NodeID: "n1", Publisher: publisher})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusError}, publisher.statuses())
}

func TestExecutor_ModelHint(t *testing.T) {
	r := newTestRegistry(&stubFactory{id: "stub", create: failure.ModelNotFound("gpt-x")})

	_, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{
		NodeID: "n1",
		Config: map[string]any{"model": "gpt-x"},
	})

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeModelNotFound, fe.ErrorCode)
}

func TestExecutor_DefaultStepRunner(t *testing.T) {
	var gotStep bool

	r := newTestRegistry(&stubFactory{
		id: "stub",
		execute: func(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
			gotStep = env.Step != nil

			return execCtx, nil
		},
	})

	_, err := r.MustExecutor("stub")(context.Background(), protocol.Invocation{NodeID: "n1"})

	require.NoError(t, err)
	assert.True(t, gotStep)
}

func TestExecutor_UnknownType(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Executor("missing")
	require.ErrorIs(t, err, ErrNodeTypeNotRegistered)

	assert.Panics(t, func() { r.MustExecutor("missing") })
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefault(slog.Default())

	ids := make([]string, 0)
	for _, f := range r.Factories() {
		ids = append(ids, f.ID())
	}

	assert.Equal(t, []string{
		"conditional", "delay", "errorhandler", "filter", "httprequest", "log", "loop",
		"merge", "set", "split", "switch", "transform",
		models.NodeTypeTriggerKafka, models.NodeTypeTriggerManual,
		models.NodeTypeTriggerScheduler, models.NodeTypeTriggerWebhook,
	}, ids)
}

func TestDefaultRegistry_RunsSetNode(t *testing.T) {
	r := NewDefault(slog.Default())

	out, err := r.MustExecutor("set")(context.Background(), protocol.Invocation{
		NodeID: "greet",
		Config: map[string]any{"fields": []any{map[string]any{"name": "greeting", "value": "hi {{name}}"}}},
		Context: models.ExecutionContext{}.With("name", "Ana"),
	})

	require.NoError(t, err)
	assert.Equal(t, "hi Ana", out.Value("greeting"))
}

func TestValidateConfig(t *testing.T) {
	r := NewDefault(slog.Default())

	require.NoError(t, r.ValidateConfig("httprequest", map[string]any{"url": "https://example.com", "method": "POST"}))

	err := r.ValidateConfig("httprequest", map[string]any{"method": "FETCH"})
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeInvalidConfig, fe.ErrorCode)
	assert.Contains(t, fe.Message, "url")

	require.NoError(t, r.ValidateConfig(models.NodeTypeTriggerManual, nil))

	assert.ErrorIs(t, r.ValidateConfig("missing", nil), ErrNodeTypeNotRegistered)
}

func TestAllSchemasCompile(t *testing.T) {
	r := NewDefault(slog.Default())

	for _, f := range r.Factories() {
		t.Run(f.ID(), func(t *testing.T) {
			err := r.ValidateConfig(f.ID(), map[string]any{})
			if err == nil {
				return
			}

			_, structured := failure.As(err)
			assert.True(t, structured, "schema of %s failed to load: %v", f.ID(), err)
		})
	}
}
