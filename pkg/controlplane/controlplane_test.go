package controlplane_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentkernel/kernel/internal/testutil"
	"github.com/agentkernel/kernel/pkg/approval"
	"github.com/agentkernel/kernel/pkg/controlplane"
	"github.com/agentkernel/kernel/pkg/credential"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/mediator"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/policy"
	"github.com/agentkernel/kernel/pkg/registry"
	"github.com/agentkernel/kernel/pkg/runtime"
	"github.com/agentkernel/kernel/pkg/scheduler"
	"github.com/agentkernel/kernel/pkg/store"
)

func newControlPlane(t *testing.T) (*controlplane.ControlPlane, store.Store, *runtime.Registry) {
	t.Helper()
	st := testutil.NewTestStore(t)
	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	reg := registry.New()
	appr := approval.New(st, log)
	med := mediator.New(st, log, reg, policy.New(st), appr, credential.New(st))
	runtimes := runtime.NewRegistry()
	sched := scheduler.New(st, log, runtimes, med)
	return controlplane.New(st, sched, bus, appr), st, runtimes
}

func TestControlPlane_CreateAndGetTaskIsWorkspaceIsolated(t *testing.T) {
	cp, _, runtimes := newControlPlane(t)
	runtimes.Register("inline", runtime.NewInlineRuntime(func(ctx context.Context, req runtime.RunRequest, adapter runtime.Adapter) (models.SandboxExecutionResult, error) {
		return models.SandboxExecutionResult{Status: models.TaskStatusCompleted}, nil
	}))

	task, err := cp.CreateTask(context.Background(), controlplane.CreateTaskParams{
		WorkspaceID: "ws-1", RuntimeID: "inline", TimeoutMs: 1000,
	})
	require.NoError(t, err)

	found, err := cp.GetTask(context.Background(), task.ID, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, found)

	notFound, err := cp.GetTask(context.Background(), task.ID, "ws-2")
	require.NoError(t, err)
	require.Nil(t, notFound)
}

func TestControlPlane_SubscribeReceivesLiveEvents(t *testing.T) {
	cp, _, runtimes := newControlPlane(t)
	runtimes.Register("inline", runtime.NewInlineRuntime(func(ctx context.Context, req runtime.RunRequest, adapter runtime.Adapter) (models.SandboxExecutionResult, error) {
		return models.SandboxExecutionResult{Status: models.TaskStatusCompleted}, nil
	}))

	task, err := cp.CreateTask(context.Background(), controlplane.CreateTaskParams{
		WorkspaceID: "ws-1", RuntimeID: "inline", TimeoutMs: 1000,
	})
	require.NoError(t, err)

	sub := cp.Subscribe(task.ID)
	defer sub.Unsubscribe()

	var sawCompleted bool
	deadline := time.After(2 * time.Second)
	for !sawCompleted {
		select {
		case ev := <-sub.C:
			if ev.Type == models.EventTypeTaskCompleted {
				sawCompleted = true
			}
		case <-deadline:
			t.Fatal("never observed task.completed on the live subscription")
		}
	}
}

func TestControlPlane_ResolveApprovalIsWorkspaceScoped(t *testing.T) {
	cp, st, _ := newControlPlane(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: "task-1", Code: "x", RuntimeID: "inline", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)
	created, err := st.CreateApproval(ctx, models.CreateApprovalParams{ID: "appr-1", TaskID: task.ID, ToolPath: "fs.write"})
	require.NoError(t, err)

	wrongWorkspace, err := cp.ResolveApproval(ctx, "ws-wrong", created.ID, models.ApprovalDecisionApproved, "r1", "")
	require.NoError(t, err)
	require.Nil(t, wrongWorkspace)

	resolved, err := cp.ResolveApproval(ctx, "ws-1", created.ID, models.ApprovalDecisionApproved, "r1", "")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Equal(t, models.ApprovalStatusApproved, resolved.Status)
}

func TestControlPlane_BootstrapAnonymousContextIsIdempotent(t *testing.T) {
	cp, _, _ := newControlPlane(t)
	ctx := context.Background()

	first, err := cp.BootstrapAnonymousContext(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)

	second, err := cp.BootstrapAnonymousContext(ctx, first.SessionID)
	require.NoError(t, err)
	require.Equal(t, first.WorkspaceID, second.WorkspaceID)
}
