// Package registry maps node types to their factories and builds the executor
// that runs a node type under the node contract.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/protocol"
)

var ErrNodeTypeNotRegistered = errors.New("node type not registered")

type Registry struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	factories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		tracer:    otel.Tracer("nodeflow/registry"),
		factories: make(map[string]protocol.NodeFactory),
	}
}

// NewDefault returns a registry holding every built-in node type.
func NewDefault(log *slog.Logger) *Registry {
	r := NewRegistry(log)
	r.RegisterDefaultNodes()

	return r
}

// SetTracer replaces the tracer used for node spans.
func (r *Registry) SetTracer(tracer trace.Tracer) {
	r.tracer = tracer
}

// RegisterNode adds a factory. A factory with the same ID replaces the
// previous one. Registration happens at startup, before any run executes.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.factories[factory.ID()] = factory
}

func (r *Registry) Factory(nodeType string) (protocol.NodeFactory, bool) {
	factory, ok := r.factories[nodeType]

	return factory, ok
}

// Factories returns the registered factories ordered by ID.
func (r *Registry) Factories() []protocol.NodeFactory {
	out := make([]protocol.NodeFactory, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})

	return out
}

// ValidateConfig checks config against the JSON schema of nodeType.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(factory.Schema()), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate %s configuration: %w", nodeType, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			messages = append(messages, e.String())
		}

		return failure.Config(nodeType, strings.Join(messages, "; "))
	}

	return nil
}

// LoadNodePlugins opens every shared object under pluginsPath/nodes and
// registers the factory exported as the "Node" symbol.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	rootPath := filepath.Join(pluginsPath, "nodes")

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*/*.so")
	if err != nil {
		return nil, err
	}

	l := r.logger.With(slog.String("path", rootPath))
	l.Info("Loading plugins", "count", len(pluginPathList))

	factories := make([]protocol.NodeFactory, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		symbol, err := plg.Lookup("Node")
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}

		var factory protocol.NodeFactory

		switch v := symbol.(type) {
		case protocol.NodeFactory:
			factory = v
		case *protocol.NodeFactory:
			factory = *v
		default:
			return nil, fmt.Errorf("plugin %s: symbol Node is %T, not a node factory", p, symbol)
		}

		r.RegisterNode(factory)
		factories = append(factories, factory)

		l.Info("Loaded node plugin", slog.String("plugin", p), slog.String("type", factory.ID()))
	}

	return factories, nil
}

func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.factories)), true
}
