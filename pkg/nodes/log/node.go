// Package log provides the log node, which writes a templated message to the
// engine logger.
package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	OutputPortSuccess = models.PortSuccess
	InputPortMain     = models.PortMain
)

// LogLevel represents different logging levels.
type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

var logLevelName = map[LogLevel]string{
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
}

var slogLevel = map[string]slog.Level{
	logLevelName[Debug]: slog.LevelDebug,
	logLevelName[Info]:  slog.LevelInfo,
	logLevelName[Warn]:  slog.LevelWarn,
	logLevelName[Error]: slog.LevelError,
}

type Config struct {
	Message        string `json:"message"        validate:"required"`
	Level          string `json:"level"          validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

// LogNode implements the Node interface for logging messages.
type LogNode struct {
	id     string
	config Config
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	cfg.Level = strings.ToLower(cfg.Level)
	if cfg.Level == "" {
		cfg.Level = logLevelName[Info]
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "log")

	return &LogNode{id: id, config: cfg}, nil
}

// ID returns the node ID.
func (n *LogNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *LogNode) Type() string {
	return "log"
}

// Execute performs the logging operation.
func (n *LogNode) Execute(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	message := template.Resolve(n.config.Message, execCtx)

	env.Log().Log(ctx, slogLevel[n.config.Level], message,
		"node_id", n.id,
		"node_type", "log",
		"run_id", env.RunID,
		"workflow_id", env.WorkflowID,
	)

	return execCtx.With(n.config.OutputVariable, map[string]any{
		"message": message,
		"level":   n.config.Level,
		"logged":  true,
	}), nil
}
