package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/jackc/pgx/v5"
)

// CreateApproval inserts a new pending approval.
func (s *PostgresStore) CreateApproval(ctx context.Context, p models.CreateApprovalParams) (*models.Approval, error) {
	inputJSON, err := json.Marshal(p.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal approval input: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO approvals (id, task_id, tool_path, input, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, task_id, tool_path, input, status, reviewer_id, reason, created_at, resolved_at`,
		p.ID, p.TaskID, p.ToolPath, inputJSON, models.ApprovalStatusPending)
	return scanApproval(row)
}

// ResolveApproval transitions a pending approval to approved/denied. If
// the approval is missing or not pending, returns (nil, nil) without
// side effects.
func (s *PostgresStore) ResolveApproval(ctx context.Context, approvalID string, decision models.ApprovalDecision, reviewerID, reason string) (*models.Approval, error) {
	var status models.ApprovalStatus
	switch decision {
	case models.ApprovalDecisionApproved:
		status = models.ApprovalStatusApproved
	case models.ApprovalDecisionDenied, models.ApprovalDecisionTimedOut:
		status = models.ApprovalStatusDenied
	default:
		return nil, fmt.Errorf("resolve approval: unknown decision %q", decision)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE approvals SET status = $2, reviewer_id = $3, reason = $4, resolved_at = now()
		WHERE id = $1 AND status = $5
		RETURNING id, task_id, tool_path, input, status, reviewer_id, reason, created_at, resolved_at`,
		approvalID, status, reviewerID, reason, models.ApprovalStatusPending)

	approval, err := scanApproval(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return approval, nil
}

// ListPendingApprovals returns pending approvals for a workspace, oldest
// first, joined through their owning task.
func (s *PostgresStore) ListPendingApprovals(ctx context.Context, workspaceID string) ([]*models.Approval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.task_id, a.tool_path, a.input, a.status, a.reviewer_id, a.reason, a.created_at, a.resolved_at
		FROM approvals a JOIN tasks t ON t.id = a.task_id
		WHERE t.workspace_id = $1 AND a.status = $2
		ORDER BY a.created_at ASC`, workspaceID, models.ApprovalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var out []*models.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetApprovalInWorkspace returns the approval only if its owning task
// belongs to workspaceID.
func (s *PostgresStore) GetApprovalInWorkspace(ctx context.Context, approvalID, workspaceID string) (*models.Approval, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a.task_id, a.tool_path, a.input, a.status, a.reviewer_id, a.reason, a.created_at, a.resolved_at
		FROM approvals a JOIN tasks t ON t.id = a.task_id
		WHERE a.id = $1 AND t.workspace_id = $2`, approvalID, workspaceID)
	a, err := scanApproval(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanApproval(row rowScanner) (*models.Approval, error) {
	var a models.Approval
	var inputJSON []byte
	if err := row.Scan(&a.ID, &a.TaskID, &a.ToolPath, &inputJSON, &a.Status, &a.ReviewerID, &a.Reason, &a.CreatedAt, &a.ResolvedAt); err != nil {
		return nil, err
	}
	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &a.Input); err != nil {
			return nil, fmt.Errorf("unmarshal approval input: %w", err)
		}
	}
	return &a, nil
}
