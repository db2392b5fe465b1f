package policy

import (
	"context"
	"testing"
	"time"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal store.Store stub exercising only what the
// PolicyEngine reads: ListPolicies. Every other method is unused by this
// package and panics if ever called, so a test that accidentally
// exercises unintended behavior fails loudly.
type fakeStore struct {
	policies []*models.AccessPolicy
}

func (f *fakeStore) ListPolicies(_ context.Context, workspaceID string) ([]*models.AccessPolicy, error) {
	var out []*models.AccessPolicy
	for _, p := range f.policies {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) notImplemented() { panic("not implemented in fakeStore") }

func (f *fakeStore) CreateTask(context.Context, models.CreateTaskParams) (*models.Task, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) GetTask(context.Context, string, string) (*models.Task, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ListTasks(context.Context, string, int) ([]*models.Task, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) MarkTaskRunning(context.Context, string) error { f.notImplemented(); return nil }
func (f *fakeStore) MarkTaskFinished(context.Context, string, models.TaskStatus, string, string, *int, string) error {
	f.notImplemented()
	return nil
}
func (f *fakeStore) CreateApproval(context.Context, models.CreateApprovalParams) (*models.Approval, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ResolveApproval(context.Context, string, models.ApprovalDecision, string, string) (*models.Approval, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ListPendingApprovals(context.Context, string) ([]*models.Approval, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) GetApprovalInWorkspace(context.Context, string, string) (*models.Approval, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) UpsertPolicy(context.Context, models.UpsertPolicyParams) (*models.AccessPolicy, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) DeletePolicy(context.Context, string, string) error { f.notImplemented(); return nil }
func (f *fakeStore) UpsertCredential(context.Context, models.UpsertCredentialParams) (*models.Credential, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ResolveCredential(context.Context, string, string, models.CredentialScope, string) (*models.Credential, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ListCredentials(context.Context, string) ([]*models.Credential, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) UpsertToolSource(context.Context, models.UpsertToolSourceParams) (*models.ToolSource, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ListToolSources(context.Context, string) ([]*models.ToolSource, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) DeleteToolSource(context.Context, string, string) error {
	f.notImplemented()
	return nil
}
func (f *fakeStore) AppendTaskEvent(context.Context, models.AppendTaskEventParams) (*models.TaskEvent, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) ListTaskEvents(context.Context, string) ([]*models.TaskEvent, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) BootstrapAnonymousSession(context.Context, string) (*models.AnonymousSession, error) {
	f.notImplemented()
	return nil, nil
}
func (f *fakeStore) MarkRunningTasksFailed(context.Context, string) (int, error) {
	f.notImplemented()
	return 0, nil
}
func (f *fakeStore) Close() error { return nil }

func TestEngine_DefaultWhenNoMatch(t *testing.T) {
	fs := &fakeStore{}
	e := New(fs)

	decision, err := e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "math.add"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionAllow, decision)
}

func TestEngine_PriorityWins(t *testing.T) {
	now := time.Unix(0, 0)
	fs := &fakeStore{policies: []*models.AccessPolicy{
		{WorkspaceID: "ws_test", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionRequireApproval, Priority: 10, CreatedAt: now},
		{WorkspaceID: "ws_test", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionDeny, Priority: 100, CreatedAt: now},
	}}
	e := New(fs)

	decision, err := e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "admin.delete_data"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionDeny, decision)
}

func TestEngine_SegmentWildcard(t *testing.T) {
	fs := &fakeStore{policies: []*models.AccessPolicy{
		{WorkspaceID: "ws_test", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionDeny, Priority: 1, CreatedAt: time.Now()},
	}}
	e := New(fs)

	decision, err := e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "admin.delete_data"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionDeny, decision)

	decision, err = e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "math.add"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionAllow, decision)
}

func TestEngine_ArgumentCondition(t *testing.T) {
	fs := &fakeStore{policies: []*models.AccessPolicy{
		{
			WorkspaceID:     "ws_test",
			ToolPathPattern: "admin.delete_data",
			Decision:        models.PolicyDecisionDeny,
			Priority:        1,
			CreatedAt:       time.Now(),
			ArgumentConditions: []models.ArgumentCondition{
				{Key: "key", Operator: models.ConditionOperatorEquals, Value: "abc"},
			},
		},
	}}
	e := New(fs)

	decision, err := e.Evaluate(context.Background(), Request{
		WorkspaceID: "ws_test", ToolPath: "admin.delete_data", Input: map[string]any{"key": "abc"},
	}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionDeny, decision)

	decision, err = e.Evaluate(context.Background(), Request{
		WorkspaceID: "ws_test", ToolPath: "admin.delete_data", Input: map[string]any{"key": "xyz"},
	}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionAllow, decision)
}

func TestEngine_ArgumentConditionEqualsOnNestedValueDoesNotPanic(t *testing.T) {
	fs := &fakeStore{policies: []*models.AccessPolicy{
		{
			WorkspaceID:     "ws_test",
			ToolPathPattern: "admin.delete_data",
			Decision:        models.PolicyDecisionDeny,
			Priority:        1,
			CreatedAt:       time.Now(),
			ArgumentConditions: []models.ArgumentCondition{
				{Key: "filter", Operator: models.ConditionOperatorEquals, Value: map[string]any{"region": "us", "ids": []any{1, 2}}},
			},
		},
	}}
	e := New(fs)

	require.NotPanics(t, func() {
		decision, err := e.Evaluate(context.Background(), Request{
			WorkspaceID: "ws_test", ToolPath: "admin.delete_data",
			Input: map[string]any{"filter": map[string]any{"region": "us", "ids": []any{1, 2}}},
		}, models.PolicyDecisionAllow)
		require.NoError(t, err)
		require.Equal(t, models.PolicyDecisionDeny, decision)
	})

	require.NotPanics(t, func() {
		decision, err := e.Evaluate(context.Background(), Request{
			WorkspaceID: "ws_test", ToolPath: "admin.delete_data",
			Input: map[string]any{"filter": map[string]any{"region": "eu", "ids": []any{1, 2}}},
		}, models.PolicyDecisionAllow)
		require.NoError(t, err)
		require.Equal(t, models.PolicyDecisionAllow, decision)
	})
}

func TestEngine_InvalidateWorkspace(t *testing.T) {
	fs := &fakeStore{}
	e := New(fs)

	decision, err := e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "admin.delete_data"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionAllow, decision)

	fs.policies = append(fs.policies, &models.AccessPolicy{
		WorkspaceID: "ws_test", ToolPathPattern: "admin.*", Decision: models.PolicyDecisionDeny, Priority: 1, CreatedAt: time.Now(),
	})
	e.InvalidateWorkspace("ws_test")

	decision, err = e.Evaluate(context.Background(), Request{WorkspaceID: "ws_test", ToolPath: "admin.delete_data"}, models.PolicyDecisionAllow)
	require.NoError(t, err)
	require.Equal(t, models.PolicyDecisionDeny, decision)
}
