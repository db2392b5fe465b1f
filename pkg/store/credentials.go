package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertCredential creates or replaces the credential matching
// (workspaceId, sourceKey, scope, actorId??'').
func (s *PostgresStore) UpsertCredential(ctx context.Context, p models.UpsertCredentialParams) (*models.Credential, error) {
	secretJSON, err := json.Marshal(p.SecretJSON)
	if err != nil {
		return nil, fmt.Errorf("marshal credential secret: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO source_credentials (id, workspace_id, source_key, scope, actor_id, secret_json, provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workspace_id, source_key, scope, actor_id) DO UPDATE SET
			secret_json = EXCLUDED.secret_json,
			provider = EXCLUDED.provider
		RETURNING id, workspace_id, source_key, scope, actor_id, secret_json, provider`,
		uuid.NewString(), p.WorkspaceID, p.SourceKey, p.Scope, p.ActorID, secretJSON, p.Provider)

	return scanCredential(row)
}

// ResolveCredential looks up the credential bound for a tool call: for
// scope=actor it matches by actorId, for scope=workspace there is at most
// one match per (workspaceId, sourceKey).
func (s *PostgresStore) ResolveCredential(ctx context.Context, workspaceID, sourceKey string, scope models.CredentialScope, actorID string) (*models.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, workspace_id, source_key, scope, actor_id, secret_json, provider
		FROM source_credentials
		WHERE workspace_id = $1 AND source_key = $2 AND scope = $3 AND actor_id = $4`,
		workspaceID, sourceKey, scope, actorID)

	cred, err := scanCredential(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return cred, nil
}

// ListCredentials returns every credential for a workspace.
func (s *PostgresStore) ListCredentials(ctx context.Context, workspaceID string) ([]*models.Credential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workspace_id, source_key, scope, actor_id, secret_json, provider
		FROM source_credentials WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var c models.Credential
	var secretJSON []byte
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.SourceKey, &c.Scope, &c.ActorID, &secretJSON, &c.Provider); err != nil {
		return nil, err
	}
	if len(secretJSON) > 0 {
		if err := json.Unmarshal(secretJSON, &c.SecretJSON); err != nil {
			return nil, fmt.Errorf("unmarshal credential secret: %w", err)
		}
	}
	return &c, nil
}
