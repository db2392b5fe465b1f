package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/jackc/pgx/v5"
)

// CreateTask inserts a new task row with status=queued.
func (s *PostgresStore) CreateTask(ctx context.Context, p models.CreateTaskParams) (*models.Task, error) {
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, code, runtime_id, timeout_ms, metadata, workspace_id, actor_id, client_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, code, runtime_id, timeout_ms, metadata, workspace_id, actor_id, client_id, status,
			created_at, updated_at, started_at, completed_at, stdout, stderr, exit_code, error`,
		p.ID, p.Code, p.RuntimeID, p.TimeoutMs, metaJSON, p.WorkspaceID, p.ActorID, p.ClientID, models.TaskStatusQueued)

	return scanTask(row)
}

// GetTask returns the task if it exists and belongs to workspaceID (when
// workspaceID is non-empty); otherwise nil.
func (s *PostgresStore) GetTask(ctx context.Context, taskID string, workspaceID string) (*models.Task, error) {
	query := `SELECT id, code, runtime_id, timeout_ms, metadata, workspace_id, actor_id, client_id, status,
		created_at, updated_at, started_at, completed_at, stdout, stderr, exit_code, error
		FROM tasks WHERE id = $1`
	args := []any{taskID}
	if workspaceID != "" {
		query += " AND workspace_id = $2"
		args = append(args, workspaceID)
	}

	row := s.pool.QueryRow(ctx, query, args...)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// ListTasks returns up to limit tasks for workspaceID, newest first.
func (s *PostgresStore) ListTasks(ctx context.Context, workspaceID string, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `SELECT id, code, runtime_id, timeout_ms, metadata, workspace_id, actor_id, client_id, status,
		created_at, updated_at, started_at, completed_at, stdout, stderr, exit_code, error
		FROM tasks WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkTaskRunning transitions queued -> running. No-op if already
// running; silently refuses if the task is already terminal.
func (s *PostgresStore) MarkTaskRunning(ctx context.Context, taskID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now(),
			started_at = COALESCE(started_at, now())
		WHERE id = $1 AND status = $3`,
		taskID, models.TaskStatusRunning, models.TaskStatusQueued)
	if err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	_ = tag // queued->running is the only transition this statement performs; a no-op row count is expected once running/terminal
	return nil
}

// MarkTaskFinished transitions the task to a terminal status, refusing
// silently if it is already terminal.
func (s *PostgresStore) MarkTaskFinished(ctx context.Context, taskID string, status models.TaskStatus, stdout, stderr string, exitCode *int, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("mark task finished: %q is not a terminal status", status)
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, stdout = $3, stderr = $4, exit_code = $5, error = $6,
			completed_at = now(), updated_at = now()
		WHERE id = $1 AND status NOT IN ($7, $8, $9, $10)`,
		taskID, status, stdout, stderr, exitCode, errMsg,
		models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusTimedOut, models.TaskStatusDenied)
	if err != nil {
		return fmt.Errorf("mark task finished: %w", err)
	}
	return nil
}

// MarkRunningTasksFailed is the boot-time recovery sweep: any task left
// `running` by a prior process is finalized `failed`.
func (s *PostgresStore) MarkRunningTasksFailed(ctx context.Context, errMsg string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $1, error = $2, completed_at = now(), updated_at = now()
		WHERE status = $3`,
		models.TaskStatusFailed, errMsg, models.TaskStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("mark running tasks failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var metaJSON []byte
	if err := row.Scan(&t.ID, &t.Code, &t.RuntimeID, &t.TimeoutMs, &metaJSON, &t.WorkspaceID, &t.ActorID, &t.ClientID,
		&t.Status, &t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.CompletedAt, &t.Stdout, &t.Stderr, &t.ExitCode, &t.Error); err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal task metadata: %w", err)
		}
	}
	return &t, nil
}
