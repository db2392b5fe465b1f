// Package store implements the kernel's single-writer persistence layer:
// tasks, approvals, durable task events, access policies, credentials,
// tool sources, and anonymous sessions, all backed by PostgreSQL.
package store

import (
	"context"

	"github.com/agentkernel/kernel/pkg/models"
)

// Store is the kernel's persistence contract. Every method either
// succeeds or returns an error; partial writes are never observable to
// a caller that sees an error.
type Store interface {
	CreateTask(ctx context.Context, params models.CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, taskID string, workspaceID string) (*models.Task, error)
	ListTasks(ctx context.Context, workspaceID string, limit int) ([]*models.Task, error)
	MarkTaskRunning(ctx context.Context, taskID string) error
	MarkTaskFinished(ctx context.Context, taskID string, status models.TaskStatus, stdout, stderr string, exitCode *int, errMsg string) error

	CreateApproval(ctx context.Context, params models.CreateApprovalParams) (*models.Approval, error)
	ResolveApproval(ctx context.Context, approvalID string, decision models.ApprovalDecision, reviewerID, reason string) (*models.Approval, error)
	ListPendingApprovals(ctx context.Context, workspaceID string) ([]*models.Approval, error)
	GetApprovalInWorkspace(ctx context.Context, approvalID, workspaceID string) (*models.Approval, error)

	UpsertPolicy(ctx context.Context, params models.UpsertPolicyParams) (*models.AccessPolicy, error)
	ListPolicies(ctx context.Context, workspaceID string) ([]*models.AccessPolicy, error)
	DeletePolicy(ctx context.Context, workspaceID, policyID string) error

	UpsertCredential(ctx context.Context, params models.UpsertCredentialParams) (*models.Credential, error)
	ResolveCredential(ctx context.Context, workspaceID, sourceKey string, scope models.CredentialScope, actorID string) (*models.Credential, error)
	ListCredentials(ctx context.Context, workspaceID string) ([]*models.Credential, error)

	UpsertToolSource(ctx context.Context, params models.UpsertToolSourceParams) (*models.ToolSource, error)
	ListToolSources(ctx context.Context, workspaceID string) ([]*models.ToolSource, error)
	DeleteToolSource(ctx context.Context, workspaceID, name string) error

	AppendTaskEvent(ctx context.Context, params models.AppendTaskEventParams) (*models.TaskEvent, error)
	ListTaskEvents(ctx context.Context, taskID string) ([]*models.TaskEvent, error)

	BootstrapAnonymousSession(ctx context.Context, sessionID string) (*models.AnonymousSession, error)

	// MarkRunningTasksFailed marks every task still `running` (e.g. from a
	// prior process that crashed or was killed) `failed`, as part of the
	// boot-time recovery sweep. Returns the number of tasks affected.
	MarkRunningTasksFailed(ctx context.Context, errMsg string) (int, error)

	Close() error
}
