package sqlbase

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationManager_LatestVersion(t *testing.T) {
	manager := NewMigrationManager(slog.Default(), nil, "schema_migrations", map[int]string{
		3: "SELECT 3",
		1: "SELECT 1",
		2: "SELECT 2",
	})

	assert.Equal(t, 3, manager.LatestVersion())
	assert.Equal(t, 0, NewMigrationManager(slog.Default(), nil, "schema_migrations", nil).LatestVersion())
}
