package store

import (
	"context"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BootstrapAnonymousSession returns the existing session for sessionID
// (refreshing lastSeenAt), or creates a new one with fresh workspace/
// actor ids if sessionID is empty or unknown.
func (s *PostgresStore) BootstrapAnonymousSession(ctx context.Context, sessionID string) (*models.AnonymousSession, error) {
	if sessionID != "" {
		row := s.pool.QueryRow(ctx, `
			UPDATE anonymous_sessions SET last_seen_at = now()
			WHERE session_id = $1
			RETURNING session_id, workspace_id, actor_id, client_id, created_at, last_seen_at`, sessionID)
		session, err := scanSession(row)
		if err == nil {
			return session, nil
		}
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("refresh anonymous session: %w", err)
		}
	}

	newID := sessionID
	if newID == "" {
		newID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO anonymous_sessions (session_id, workspace_id, actor_id, client_id)
		VALUES ($1, $2, $3, $4)
		RETURNING session_id, workspace_id, actor_id, client_id, created_at, last_seen_at`,
		newID, "ws_"+uuid.NewString(), "actor_"+uuid.NewString(), "client_"+uuid.NewString())

	return scanSession(row)
}

func scanSession(row rowScanner) (*models.AnonymousSession, error) {
	var sess models.AnonymousSession
	if err := row.Scan(&sess.SessionID, &sess.WorkspaceID, &sess.ActorID, &sess.ClientID, &sess.CreatedAt, &sess.LastSeenAt); err != nil {
		return nil, err
	}
	return &sess, nil
}
