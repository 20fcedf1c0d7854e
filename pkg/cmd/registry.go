package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dukex/nodeflow/pkg/registry"
)

// NewRegistry returns a registry with the built-in nodes plus the node plugins
// found under pluginsPath/nodes. A missing plugins directory is not an error.
func NewRegistry(logger *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewDefault(logger)

	if pluginsPath == "" {
		return reg, nil
	}

	if _, err := os.Stat(filepath.Join(pluginsPath, "nodes")); errors.Is(err, os.ErrNotExist) {
		return reg, nil
	}

	if _, err := reg.LoadNodePlugins(pluginsPath); err != nil {
		return nil, fmt.Errorf("failed to load node plugins: %w", err)
	}

	return reg, nil
}
