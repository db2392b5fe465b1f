package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/google/uuid"
)

// UpsertToolSource creates or replaces the tool source matching
// (workspaceId, name).
func (s *PostgresStore) UpsertToolSource(ctx context.Context, p models.UpsertToolSourceParams) (*models.ToolSource, error) {
	configJSON, err := json.Marshal(p.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal tool source config: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tool_sources (id, workspace_id, name, type, config, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, name) DO UPDATE SET
			type = EXCLUDED.type,
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			updated_at = now()
		RETURNING id, workspace_id, name, type, config, enabled, created_at, updated_at`,
		uuid.NewString(), p.WorkspaceID, p.Name, p.Type, configJSON, p.Enabled)

	return scanToolSource(row)
}

// ListToolSources returns every tool source for a workspace.
func (s *PostgresStore) ListToolSources(ctx context.Context, workspaceID string) ([]*models.ToolSource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workspace_id, name, type, config, enabled, created_at, updated_at
		FROM tool_sources WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list tool sources: %w", err)
	}
	defer rows.Close()

	var out []*models.ToolSource
	for rows.Next() {
		t, err := scanToolSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteToolSource removes a tool source scoped to its workspace.
func (s *PostgresStore) DeleteToolSource(ctx context.Context, workspaceID, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tool_sources WHERE workspace_id = $1 AND name = $2`, workspaceID, name); err != nil {
		return fmt.Errorf("delete tool source: %w", err)
	}
	return nil
}

func scanToolSource(row rowScanner) (*models.ToolSource, error) {
	var t models.ToolSource
	var configJSON []byte
	if err := row.Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Type, &configJSON, &t.Enabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &t.Config); err != nil {
			return nil, fmt.Errorf("unmarshal tool source config: %w", err)
		}
	}
	return &t, nil
}
