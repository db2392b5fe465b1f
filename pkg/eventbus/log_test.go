package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agentkernel/kernel/internal/testutil"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/models"
)

func TestLog_AppendPublishesWithTheAssignedID(t *testing.T) {
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "inline", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)

	sub := bus.Subscribe(task.ID)
	defer sub.Unsubscribe()

	persisted, err := log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeTaskRunning, map[string]any{"foo": "bar"})
	require.NoError(t, err)
	require.Equal(t, int64(1), persisted.ID)

	select {
	case live := <-sub.C:
		require.Equal(t, persisted.ID, live.ID)
		require.Equal(t, models.EventTypeTaskRunning, live.Type)
	case <-time.After(time.Second):
		t.Fatal("expected live event to be published after durable append")
	}

	events, err := st.ListTaskEvents(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, persisted.ID, events[0].ID)
}
