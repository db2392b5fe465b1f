package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agentkernel/kernel/internal/testutil"
	"github.com/agentkernel/kernel/pkg/models"
)

func TestTask_CreateGetRoundTrip(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID:          uuid.NewString(),
		Code:        "print('hi')",
		RuntimeID:   "python",
		TimeoutMs:   5000,
		WorkspaceID: "ws-1",
		ActorID:     "actor-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusQueued, created.Status)

	fetched, err := st.GetTask(ctx, created.ID, "ws-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, "python", fetched.RuntimeID)

	missing, err := st.GetTask(ctx, created.ID, "ws-other")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestTask_TerminalStatusIsAbsorbing(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "python", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)

	require.NoError(t, st.MarkTaskRunning(ctx, task.ID))
	exitCode := 0
	require.NoError(t, st.MarkTaskFinished(ctx, task.ID, models.TaskStatusCompleted, "ok", "", &exitCode, ""))

	// A late timeout firing after completion must not override the result.
	require.NoError(t, st.MarkTaskFinished(ctx, task.ID, models.TaskStatusTimedOut, "", "", nil, "timed out"))

	final, err := st.GetTask(ctx, task.ID, "ws-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, final.Status)
	require.Equal(t, "ok", final.Stdout)
}

func TestTask_MarkRunningTasksFailedOnBoot(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "python", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)
	require.NoError(t, st.MarkTaskRunning(ctx, task.ID))

	count, err := st.MarkRunningTasksFailed(ctx, "kernel restarted")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	final, err := st.GetTask(ctx, task.ID, "ws-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, final.Status)
}

func TestTaskEvents_MonotonicPerTask(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "python", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := st.AppendTaskEvent(ctx, models.AppendTaskEventParams{
				TaskID: task.ID, EventName: models.EventNameTask, Type: models.EventTypeTaskStdout,
				Payload: map[string]any{"line": "x"},
			})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	events, err := st.ListTaskEvents(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, n)

	seen := make(map[int64]bool, n)
	for i, ev := range events {
		require.False(t, seen[ev.ID], "duplicate event id %d", ev.ID)
		seen[ev.ID] = true
		if i > 0 {
			require.Greater(t, ev.ID, events[i-1].ID)
		}
	}
}

func TestApproval_CreateAndResolve(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: "x", RuntimeID: "python", TimeoutMs: 1000, WorkspaceID: "ws-1",
	})
	require.NoError(t, err)

	approval, err := st.CreateApproval(ctx, models.CreateApprovalParams{
		ID: uuid.NewString(), TaskID: task.ID, ToolPath: "fs.write", Input: map[string]any{"path": "/tmp/x"},
	})
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusPending, approval.Status)

	resolved, err := st.ResolveApproval(ctx, approval.ID, models.ApprovalDecisionApproved, "reviewer-1", "looks fine")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Equal(t, models.ApprovalStatusApproved, resolved.Status)

	// Resolving a second time returns nil, nil: no match on a pending row.
	again, err := st.ResolveApproval(ctx, approval.ID, models.ApprovalDecisionDenied, "reviewer-2", "too late")
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestCredential_UpsertIsIdempotentPerScopeKey(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	params := models.UpsertCredentialParams{
		WorkspaceID: "ws-1", SourceKey: "github", Scope: models.CredentialScopeWorkspace,
		SecretJSON: map[string]any{"token": "abc"}, Provider: models.CredentialProviderLocal,
	}
	first, err := st.UpsertCredential(ctx, params)
	require.NoError(t, err)

	params.SecretJSON = map[string]any{"token": "def"}
	second, err := st.UpsertCredential(ctx, params)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	resolved, err := st.ResolveCredential(ctx, "ws-1", "github", models.CredentialScopeWorkspace, "")
	require.NoError(t, err)
	require.Equal(t, "def", resolved.SecretJSON["token"])
}

func TestPolicy_UpsertListDelete(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := st.UpsertPolicy(ctx, models.UpsertPolicyParams{
		WorkspaceID: "ws-1", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionDeny, Priority: 10,
	})
	require.NoError(t, err)

	updated, err := st.UpsertPolicy(ctx, models.UpsertPolicyParams{
		ID: created.ID, WorkspaceID: "ws-1", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionRequireApproval, Priority: 20,
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, models.PolicyDecisionRequireApproval, updated.Decision)

	policies, err := st.ListPolicies(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, policies, 1)

	require.NoError(t, st.DeletePolicy(ctx, "ws-1", created.ID))
	policies, err = st.ListPolicies(ctx, "ws-1")
	require.NoError(t, err)
	require.Empty(t, policies)
}

func TestToolSource_UpsertListDelete(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertToolSource(ctx, models.UpsertToolSourceParams{
		WorkspaceID: "ws-1", Name: "github-mcp", Type: models.ToolSourceTypeMCP, Enabled: true,
	})
	require.NoError(t, err)

	sources, err := st.ListToolSources(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "github-mcp", sources[0].Name)

	require.NoError(t, st.DeleteToolSource(ctx, "ws-1", "github-mcp"))
	sources, err = st.ListToolSources(ctx, "ws-1")
	require.NoError(t, err)
	require.Empty(t, sources)
}

func TestAnonymousSession_BootstrapIsIdempotent(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := st.BootstrapAnonymousSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", first.SessionID)
	require.NotEmpty(t, first.WorkspaceID)

	second, err := st.BootstrapAnonymousSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, first.WorkspaceID, second.WorkspaceID)
	require.Equal(t, first.ActorID, second.ActorID)
}
