//go:build integration

package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("nodeflow_test"),
			postgres.WithUsername("nodeflow"),
			postgres.WithPassword("nodeflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		db, err := sql.Open("postgres", databaseURL)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.ExecContext(ctx, "TRUNCATE TABLE workflows")
		require.NoError(t, err)

		_ = p.Close(ctx)
	})

	return p, ctx
}

func TestPersistence_RoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := &models.Workflow{
		Name:   "Orders",
		Status: models.WorkflowStatusPublished,
		Nodes: []*models.WorkflowNode{
			{ID: "start", Type: models.NodeTypeTriggerManual, Name: "Start"},
		},
		Variables: map[string]any{"region": "eu"},
	}

	require.NoError(t, p.SaveWorkflow(ctx, wf))
	require.NotEmpty(t, wf.ID)

	loaded, err := p.WorkflowByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders", loaded.Name)
	assert.Equal(t, "eu", loaded.Variables["region"])

	wf.Name = "Orders v2"
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	all, err := p.Workflows(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Orders v2", all[0].Name)
}

func TestPersistence_SoftDelete(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := &models.Workflow{ID: "wf-delete", Name: "Delete me", Status: models.WorkflowStatusDraft}
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	require.NoError(t, p.DeleteWorkflow(ctx, "wf-delete"))

	_, err := p.WorkflowByID(ctx, "wf-delete")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.DeleteWorkflow(ctx, "wf-delete")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_MigrationsAreIdempotent(t *testing.T) {
	p, ctx := setupTestDB(t)

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	again, err := NewPersistence(ctx, p.logger, databaseURL)
	require.NoError(t, err)
	assert.NoError(t, again.HealthCheck(ctx))
	assert.NoError(t, again.Close(ctx))
}
