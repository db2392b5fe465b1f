package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agentkernel/kernel/internal/testutil"
	"github.com/agentkernel/kernel/pkg/approval"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/store"
)

func newTask(t *testing.T, st store.Store, workspaceID string) *models.Task {
	task, err := st.CreateTask(context.Background(), models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "inline", TimeoutMs: 1000, WorkspaceID: workspaceID,
	})
	require.NoError(t, err)
	return task
}

func TestAwait_ResolvesWhenAnotherGoroutineApproves(t *testing.T) {
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	coord := approval.New(st, log)
	ctx := context.Background()

	task := newTask(t, st, "ws-1")
	created, err := st.CreateApproval(ctx, models.CreateApprovalParams{
		ID: uuid.NewString(), TaskID: task.ID, ToolPath: "fs.write", Input: map[string]any{},
	})
	require.NoError(t, err)

	resultCh := make(chan models.ApprovalDecision, 1)
	go func() {
		decision, err := coord.Await(ctx, created.ID, "ws-1")
		require.NoError(t, err)
		resultCh <- decision
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = coord.Resolve(ctx, created.ID, models.ApprovalDecisionApproved, "reviewer-1", "ok")
	require.NoError(t, err)

	select {
	case decision := <-resultCh:
		require.Equal(t, models.ApprovalDecisionApproved, decision)
	case <-time.After(2 * time.Second):
		t.Fatal("Await never resolved")
	}
}

func TestAwait_ReturnsImmediatelyForAlreadyResolvedApproval(t *testing.T) {
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	coord := approval.New(st, log)
	ctx := context.Background()

	task := newTask(t, st, "ws-2")
	created, err := st.CreateApproval(ctx, models.CreateApprovalParams{
		ID: uuid.NewString(), TaskID: task.ID, ToolPath: "fs.write", Input: map[string]any{},
	})
	require.NoError(t, err)

	_, err = coord.Resolve(ctx, created.ID, models.ApprovalDecisionDenied, "reviewer-1", "no")
	require.NoError(t, err)

	decision, err := coord.Await(ctx, created.ID, "ws-2")
	require.NoError(t, err)
	require.Equal(t, models.ApprovalDecisionDenied, decision)
}

func TestAwait_TimesOutViaContext(t *testing.T) {
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	coord := approval.New(st, log)
	ctx := context.Background()

	task := newTask(t, st, "ws-3")
	created, err := st.CreateApproval(ctx, models.CreateApprovalParams{
		ID: uuid.NewString(), TaskID: task.ID, ToolPath: "fs.write", Input: map[string]any{},
	})
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	decision, err := coord.Await(shortCtx, created.ID, "ws-3")
	require.Error(t, err)
	require.Equal(t, models.ApprovalDecisionTimedOut, decision)
}

func TestResolve_UnknownApprovalIsNilNotError(t *testing.T) {
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	coord := approval.New(st, log)

	resolved, err := coord.Resolve(context.Background(), uuid.NewString(), models.ApprovalDecisionApproved, "reviewer-1", "")
	require.NoError(t, err)
	require.Nil(t, resolved)
}
