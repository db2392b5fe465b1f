package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/google/uuid"
)

// UpsertPolicy creates a new policy, or replaces an existing one in place
// if p.ID is set.
func (s *PostgresStore) UpsertPolicy(ctx context.Context, p models.UpsertPolicyParams) (*models.AccessPolicy, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	condJSON, err := json.Marshal(p.ArgumentConditions)
	if err != nil {
		return nil, fmt.Errorf("marshal argument conditions: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO access_policies (id, workspace_id, actor_id, client_id, tool_path_pattern, decision, priority, argument_conditions, scope_type, target_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			actor_id = EXCLUDED.actor_id,
			client_id = EXCLUDED.client_id,
			tool_path_pattern = EXCLUDED.tool_path_pattern,
			decision = EXCLUDED.decision,
			priority = EXCLUDED.priority,
			argument_conditions = EXCLUDED.argument_conditions,
			scope_type = EXCLUDED.scope_type,
			target_account_id = EXCLUDED.target_account_id
		RETURNING id, workspace_id, actor_id, client_id, tool_path_pattern, decision, priority, argument_conditions, scope_type, target_account_id, created_at`,
		id, p.WorkspaceID, p.ActorID, p.ClientID, p.ToolPathPattern, p.Decision, p.Priority, condJSON, p.ScopeType, p.TargetAccountID)

	return scanPolicy(row)
}

// ListPolicies returns every policy for a workspace, ordered by
// (priority DESC, created_at ASC) — the order PolicyEngine evaluates.
func (s *PostgresStore) ListPolicies(ctx context.Context, workspaceID string) ([]*models.AccessPolicy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workspace_id, actor_id, client_id, tool_path_pattern, decision, priority, argument_conditions, scope_type, target_account_id, created_at
		FROM access_policies WHERE workspace_id = $1
		ORDER BY priority DESC, created_at ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []*models.AccessPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePolicy removes a policy scoped to its workspace.
func (s *PostgresStore) DeletePolicy(ctx context.Context, workspaceID, policyID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM access_policies WHERE id = $1 AND workspace_id = $2`, policyID, workspaceID); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	return nil
}

func scanPolicy(row rowScanner) (*models.AccessPolicy, error) {
	var p models.AccessPolicy
	var condJSON []byte
	if err := row.Scan(&p.ID, &p.WorkspaceID, &p.ActorID, &p.ClientID, &p.ToolPathPattern, &p.Decision, &p.Priority,
		&condJSON, &p.ScopeType, &p.TargetAccountID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if len(condJSON) > 0 {
		if err := json.Unmarshal(condJSON, &p.ArgumentConditions); err != nil {
			return nil, fmt.Errorf("unmarshal argument conditions: %w", err)
		}
	}
	return &p, nil
}
