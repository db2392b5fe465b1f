// Package approval implements the kernel's ApprovalCoordinator: a
// one-shot waiter per pending approval, parking tool calls until a
// reviewer decides or a task timeout cancels the wait. Restart clears
// all waiters — there is no durable waiter resumption; tasks left
// running at boot are finalized failed instead.
package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/store"
)

// Coordinator is the kernel's ApprovalCoordinator.
type Coordinator struct {
	store store.Store
	log   *eventbus.Log

	mu      sync.Mutex
	waiters map[string]chan models.ApprovalDecision // approvalId -> one-shot signal
}

// New returns a Coordinator writing through st and publishing resolution
// events through log.
func New(st store.Store, log *eventbus.Log) *Coordinator {
	return &Coordinator{
		store:   st,
		log:     log,
		waiters: make(map[string]chan models.ApprovalDecision),
	}
}

// Await blocks until approvalId resolves, times out via ctx, or — if it
// is already terminal — returns immediately.
func (c *Coordinator) Await(ctx context.Context, approvalID, workspaceID string) (models.ApprovalDecision, error) {
	existing, err := c.store.GetApprovalInWorkspace(ctx, approvalID, workspaceID)
	if err != nil {
		return "", fmt.Errorf("load approval: %w", err)
	}
	if existing == nil {
		return "", fmt.Errorf("approval %q not found", approvalID)
	}
	if existing.Status != models.ApprovalStatusPending {
		return terminalDecision(existing.Status), nil
	}

	waiter := c.registerWaiter(approvalID)
	defer c.removeWaiter(approvalID)

	select {
	case decision := <-waiter:
		return decision, nil
	case <-ctx.Done():
		return models.ApprovalDecisionTimedOut, ctx.Err()
	}
}

// Resolve transitions a pending approval to approved/denied, publishes
// `approval.resolved`, and signals any waiter. If the approval is missing
// or already resolved, returns (nil, nil) without side effects.
func (c *Coordinator) Resolve(ctx context.Context, approvalID string, decision models.ApprovalDecision, reviewerID, reason string) (*models.Approval, error) {
	resolved, err := c.store.ResolveApproval(ctx, approvalID, decision, reviewerID, reason)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	if resolved == nil {
		return nil, nil
	}

	if _, err := c.log.Append(ctx, resolved.TaskID, models.EventNameApproval, models.EventTypeApprovalResolved, map[string]any{
		"approvalId": resolved.ID,
		"taskId":     resolved.TaskID,
		"toolPath":   resolved.ToolPath,
		"decision":   resolved.Status,
		"reviewerId": resolved.ReviewerID,
		"reason":     resolved.Reason,
		"resolvedAt": resolved.ResolvedAt,
	}); err != nil {
		return nil, fmt.Errorf("publish approval.resolved: %w", err)
	}

	c.signal(approvalID, decision)
	return resolved, nil
}

func (c *Coordinator) registerWaiter(approvalID string) chan models.ApprovalDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan models.ApprovalDecision, 1)
	c.waiters[approvalID] = ch
	return ch
}

func (c *Coordinator) removeWaiter(approvalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, approvalID)
}

func (c *Coordinator) signal(approvalID string, decision models.ApprovalDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.waiters[approvalID]; ok {
		ch <- decision
	}
}

func terminalDecision(status models.ApprovalStatus) models.ApprovalDecision {
	switch status {
	case models.ApprovalStatusApproved:
		return models.ApprovalDecisionApproved
	default:
		return models.ApprovalDecisionDenied
	}
}
