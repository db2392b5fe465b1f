// Package controlplane implements the kernel's thin ControlPlane surface:
// the only boundary external transports are meant to call through.
package controlplane

import (
	"context"
	"fmt"

	"github.com/agentkernel/kernel/pkg/approval"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/scheduler"
	"github.com/agentkernel/kernel/pkg/store"
)

// ControlPlane delegates every operation to the scheduler/store/bus,
// enforcing workspace isolation (missing/foreign records come back as
// "not found", never "forbidden", to avoid id enumeration).
type ControlPlane struct {
	store      store.Store
	scheduler  *scheduler.Scheduler
	bus        *eventbus.Bus
	approvals  *approval.Coordinator
}

// New returns a ControlPlane wired to its collaborators.
func New(st store.Store, sched *scheduler.Scheduler, bus *eventbus.Bus, appr *approval.Coordinator) *ControlPlane {
	return &ControlPlane{store: st, scheduler: sched, bus: bus, approvals: appr}
}

// CreateTaskParams is the input to CreateTask.
type CreateTaskParams struct {
	WorkspaceID string
	ActorID     string
	Code        string
	RuntimeID   string
	TimeoutMs   int64
	Metadata    map[string]any
	ClientID    string
}

// CreateTask submits a new task for execution.
func (c *ControlPlane) CreateTask(ctx context.Context, p CreateTaskParams) (*models.Task, error) {
	return c.scheduler.CreateTask(ctx, scheduler.CreateTaskParams{
		WorkspaceID: p.WorkspaceID, ActorID: p.ActorID, ClientID: p.ClientID,
		Code: p.Code, RuntimeID: p.RuntimeID, TimeoutMs: p.TimeoutMs, Metadata: p.Metadata,
	})
}

// GetTask returns a task only if it belongs to workspaceID.
func (c *ControlPlane) GetTask(ctx context.Context, taskID, workspaceID string) (*models.Task, error) {
	return c.store.GetTask(ctx, taskID, workspaceID)
}

// ListTasks returns up to 500 tasks in a workspace (the store's default
// limit), newest first.
func (c *ControlPlane) ListTasks(ctx context.Context, workspaceID string) ([]*models.Task, error) {
	return c.store.ListTasks(ctx, workspaceID, 0)
}

// Subscribe returns a live subscription to taskId's events. Callers
// wanting replay-then-live semantics should call ListTaskEvents first,
// then Subscribe.
func (c *ControlPlane) Subscribe(taskID string) eventbus.Subscription {
	return c.bus.Subscribe(taskID)
}

// ListTaskEvents returns the durable event log for a task, in order.
func (c *ControlPlane) ListTaskEvents(ctx context.Context, taskID string) ([]*models.TaskEvent, error) {
	return c.store.ListTaskEvents(ctx, taskID)
}

// ListPendingApprovals returns every pending approval in a workspace.
func (c *ControlPlane) ListPendingApprovals(ctx context.Context, workspaceID string) ([]*models.Approval, error) {
	return c.store.ListPendingApprovals(ctx, workspaceID)
}

// ResolveApproval resolves a pending approval, scoped to its workspace.
// Returns nil (no error) if approvalID does not exist in that workspace.
func (c *ControlPlane) ResolveApproval(ctx context.Context, workspaceID, approvalID string, decision models.ApprovalDecision, reviewerID, reason string) (*models.Approval, error) {
	existing, err := c.store.GetApprovalInWorkspace(ctx, approvalID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	return c.approvals.Resolve(ctx, approvalID, decision, reviewerID, reason)
}

// BootstrapAnonymousContext bootstraps or refreshes an anonymous session.
func (c *ControlPlane) BootstrapAnonymousContext(ctx context.Context, sessionID string) (*models.AnonymousSession, error) {
	return c.store.BootstrapAnonymousSession(ctx, sessionID)
}
