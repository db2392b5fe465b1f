// Package mediator implements the kernel's ToolMediator: the entry
// point every tool call passes through on behalf of a sandbox —
// resolve, policy check, approval gate, credential bind, invoke, publish.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentkernel/kernel/pkg/approval"
	"github.com/agentkernel/kernel/pkg/credential"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/policy"
	"github.com/agentkernel/kernel/pkg/registry"
	"github.com/agentkernel/kernel/pkg/store"
	"github.com/google/uuid"
)

// ErrRunMismatch names a call whose RunID does not match the task it
// claims to belong to. InvokeTool does not return it: it reports a
// mismatch as a ToolCallResult with OK false.
var ErrRunMismatch = errors.New("mediator: run mismatch")

// Call is one tool invocation request from a runtime adapter.
type Call struct {
	RunID    string
	CallID   string
	ToolPath string
	Input    map[string]any
}

// Mediator is the kernel's ToolMediator. Safe for concurrent use across
// distinct (task, callId) pairs, including re-entrant calls a tool
// handler makes through its ToolRunContext.
type Mediator struct {
	store      store.Store
	log        *eventbus.Log
	registry   *registry.Registry
	policy     *policy.Engine
	approvals  *approval.Coordinator
	credential *credential.Resolver

	approvalWaitTimeout time.Duration
}

// New returns a Mediator wired to its collaborators.
func New(st store.Store, log *eventbus.Log, reg *registry.Registry, pol *policy.Engine, appr *approval.Coordinator, cred *credential.Resolver) *Mediator {
	return &Mediator{
		store:               st,
		log:                 log,
		registry:            reg,
		policy:              pol,
		approvals:           appr,
		credential:          cred,
		approvalWaitTimeout: 24 * time.Hour,
	}
}

// InvokeTool runs call on behalf of task, returning a tagged result,
// never a bare Go error, for policy/approval outcomes: errors are
// returned as content so the caller's sandbox can see and react to them.
func (m *Mediator) InvokeTool(ctx context.Context, task *models.Task, call Call) models.ToolCallResult {
	if call.RunID != task.ID {
		return models.ToolCallResult{OK: false, Error: fmt.Sprintf("Run mismatch for call %s", call.CallID)}
	}

	def, err := m.registry.Resolve(call.ToolPath)
	if err != nil {
		return models.ToolCallResult{OK: false, Error: "unknown_tool"}
	}

	if _, err := m.log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeToolCallStarted, map[string]any{
		"taskId": task.ID, "callId": call.CallID, "toolPath": call.ToolPath, "approval": def.Approval, "input": call.Input,
	}); err != nil {
		return models.ToolCallResult{OK: false, Error: err.Error()}
	}

	decision, err := m.policy.Evaluate(ctx, policy.Request{
		WorkspaceID: task.WorkspaceID,
		ActorID:     task.ActorID,
		ClientID:    task.ClientID,
		ToolPath:    call.ToolPath,
		Input:       call.Input,
	}, defaultDecisionFor(def.Approval))
	if err != nil {
		return models.ToolCallResult{OK: false, Error: err.Error()}
	}

	if decision == models.PolicyDecisionDeny {
		return m.deny(ctx, task, call, "")
	}

	// Stricter wins: require_approval if either the policy or the tool's
	// own declared mode says so.
	if decision == models.PolicyDecisionRequireApproval || def.Approval == models.ApprovalModeRequired {
		outcome := m.gateOnApproval(ctx, task, call)
		if outcome != nil {
			return *outcome
		}
	}

	var resolvedCred *models.ResolvedToolCredential
	if def.CredentialSpec != nil {
		resolvedCred, err = m.credential.Resolve(ctx, def.CredentialSpec, task.WorkspaceID, task.ActorID)
		if err != nil {
			return m.fail(ctx, task, call, err)
		}
	}

	runCtx := models.ToolRunContext{
		Context:     ctx,
		TaskID:      task.ID,
		WorkspaceID: task.WorkspaceID,
		ActorID:     task.ActorID,
		ClientID:    task.ClientID,
		Credential:  resolvedCred,
		IsToolAllowed: func(toolPath string) bool {
			d, err := m.policy.Evaluate(ctx, policy.Request{
				WorkspaceID: task.WorkspaceID, ActorID: task.ActorID, ClientID: task.ClientID, ToolPath: toolPath,
			}, models.PolicyDecisionAllow)
			return err == nil && d != models.PolicyDecisionDeny
		},
	}

	value, err := def.Run(ctx, call.Input, runCtx)
	if err != nil {
		return m.fail(ctx, task, call, err)
	}

	if _, err := m.log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeToolCallCompleted, map[string]any{
		"taskId": task.ID, "callId": call.CallID, "toolPath": call.ToolPath, "output": value,
	}); err != nil {
		return models.ToolCallResult{OK: false, Error: err.Error()}
	}

	return models.ToolCallResult{OK: true, Value: value}
}

// gateOnApproval creates an approval, parks on it, and returns a non-nil
// result only if the call must stop here (denied or approval-system
// failure). A nil return means the caller should continue to invocation.
func (m *Mediator) gateOnApproval(ctx context.Context, task *models.Task, call Call) *models.ToolCallResult {
	approvalID := uuid.NewString()
	created, err := m.store.CreateApproval(ctx, models.CreateApprovalParams{
		ID: approvalID, TaskID: task.ID, ToolPath: call.ToolPath, Input: call.Input,
	})
	if err != nil {
		res := models.ToolCallResult{OK: false, Error: err.Error()}
		return &res
	}

	if _, err := m.log.Append(ctx, task.ID, models.EventNameApproval, models.EventTypeApprovalRequested, map[string]any{
		"approvalId": created.ID, "taskId": task.ID, "callId": call.CallID, "toolPath": call.ToolPath,
		"input": call.Input, "createdAt": created.CreatedAt,
	}); err != nil {
		res := models.ToolCallResult{OK: false, Error: err.Error()}
		return &res
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.approvalWaitTimeout)
	defer cancel()
	decision, err := m.approvals.Await(waitCtx, created.ID, task.WorkspaceID)
	if err != nil {
		res := m.deny(ctx, task, call, created.ID)
		return &res
	}

	if decision != models.ApprovalDecisionApproved {
		res := m.deny(ctx, task, call, created.ID)
		return &res
	}
	return nil
}

func (m *Mediator) deny(ctx context.Context, task *models.Task, call Call, approvalID string) models.ToolCallResult {
	payload := map[string]any{"taskId": task.ID, "callId": call.CallID, "toolPath": call.ToolPath}
	if approvalID != "" {
		payload["approvalId"] = approvalID
	}
	_, _ = m.log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeToolCallDenied, payload)
	return models.ToolCallResult{OK: false, Denied: true, Error: fmt.Sprintf("tool call %s denied", call.ToolPath)}
}

func (m *Mediator) fail(ctx context.Context, task *models.Task, call Call, err error) models.ToolCallResult {
	_, _ = m.log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeToolCallFailed, map[string]any{
		"taskId": task.ID, "callId": call.CallID, "toolPath": call.ToolPath, "error": err.Error(),
	})
	return models.ToolCallResult{OK: false, Error: err.Error()}
}

func defaultDecisionFor(mode models.ApprovalMode) models.PolicyDecision {
	if mode == models.ApprovalModeRequired {
		return models.PolicyDecisionRequireApproval
	}
	return models.PolicyDecisionAllow
}
