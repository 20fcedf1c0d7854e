package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
)

func newSchedule(id, workflowID, nodeID string, enabled bool) *models.Schedule {
	return &models.Schedule{
		ID:           id,
		WorkflowID:   workflowID,
		NodeID:       nodeID,
		ScheduleType: models.ScheduleTypeDaily,
		Hour:         9,
		Enabled:      enabled,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPersistence_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Upsert(ctx, newSchedule("s1", "wf", "cron", true)))

	byID, err := p.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "cron", byID.NodeID)

	byNode, err := p.ByNode(ctx, "wf", "cron")
	require.NoError(t, err)
	assert.Equal(t, "s1", byNode.ID)

	_, err = p.ByNode(ctx, "wf", "other")
	assert.True(t, persistence.IsScheduleNotFound(err))
}

func TestPersistence_UpsertReplacesNodeSchedule(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Upsert(ctx, newSchedule("s1", "wf", "cron", true)))
	require.NoError(t, p.Upsert(ctx, newSchedule("s2", "wf", "cron", true)))

	_, err = p.ByID(ctx, "s1")
	assert.True(t, persistence.IsScheduleNotFound(err))

	enabled, err := p.Enabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "s2", enabled[0].ID)
}

func TestPersistence_ReturnsCopies(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Upsert(ctx, newSchedule("s1", "wf", "cron", true)))

	found, err := p.ByID(ctx, "s1")
	require.NoError(t, err)

	found.Hour = 20

	again, err := p.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 9, again.Hour)
}

func TestPersistence_SetEnabledAndDelete(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	next := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := newSchedule("s1", "wf", "cron", true)
	s.NextRunAt = &next

	require.NoError(t, p.Upsert(ctx, s))
	require.NoError(t, p.Upsert(ctx, newSchedule("s2", "wf", "other", false)))

	require.NoError(t, p.SetEnabled(ctx, "s1", false))

	found, err := p.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found.Enabled)
	assert.Nil(t, found.NextRunAt)

	enabled, err := p.Enabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, p.Delete(ctx, "s1"))
	assert.True(t, persistence.IsScheduleNotFound(p.Delete(ctx, "s1")))
	assert.True(t, persistence.IsScheduleNotFound(p.SetEnabled(ctx, "missing", true)))
}

func TestPersistence_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := NewPersistence("file://" + dir)
	require.NoError(t, err)
	require.NoError(t, p.Upsert(ctx, newSchedule("s1", "wf", "cron", true)))
	require.NoError(t, p.Close())

	reloaded, err := NewPersistence(dir)
	require.NoError(t, err)

	found, err := reloaded.ByNode(ctx, "wf", "cron")
	require.NoError(t, err)
	assert.Equal(t, "s1", found.ID)
	assert.NoError(t, reloaded.HealthCheck(ctx))
}

func TestPersistence_EnabledOrderedByNextRun(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	later := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	a := newSchedule("a", "wf", "n1", true)
	a.NextRunAt = &later
	b := newSchedule("b", "wf", "n2", true)
	b.NextRunAt = &sooner
	c := newSchedule("c", "wf", "n3", true)

	require.NoError(t, p.Upsert(ctx, a))
	require.NoError(t, p.Upsert(ctx, b))
	require.NoError(t, p.Upsert(ctx, c))

	enabled, err := p.Enabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{enabled[0].ID, enabled[1].ID, enabled[2].ID})
}
