package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent(WorkflowTriggeredEvent, "wf-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, WorkflowTriggeredEvent, event.Type)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.False(t, event.Timestamp.Before(before))
	assert.NotNil(t, event.Metadata)

	assert.NotEqual(t, event.ID, NewBaseEvent(WorkflowTriggeredEvent, "wf-1").ID)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, WorkflowTriggeredEvent, WorkflowTriggered{}.GetType())
	assert.Equal(t, WorkflowFinishedEvent, WorkflowFinished{}.GetType())
	assert.Equal(t, WorkflowFailedEvent, WorkflowFailed{}.GetType())
	assert.Equal(t, NodeStatusChangedEvent, NodeStatusChanged{}.GetType())
}

func TestNodeStatusChanged_WireFormat(t *testing.T) {
	event := NodeStatusChanged{
		BaseEvent: NewBaseEvent(NodeStatusChangedEvent, "wf-1"),
		Channel:   "wf-1",
		Update: models.StatusUpdate{
			NodeID: "fetch",
			Status: models.NodeStatusError,
			RunID:  "run-1",
			Extra:  map[string]any{"errorCode": "RATE_LIMITED"},
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"node.status.changed"`)
	assert.Contains(t, string(data), `"nodeId":"fetch"`)
	assert.Contains(t, string(data), `"status":"error"`)
	assert.Contains(t, string(data), `"errorCode":"RATE_LIMITED"`)
}
