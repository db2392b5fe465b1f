package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
)

// AppendTaskEvent inserts a new event for a task, assigning the next
// monotonic id for that task. The owning task row is locked for the
// duration so concurrent appends for the same task serialize instead of
// racing on the next id.
func (s *PostgresStore) AppendTaskEvent(ctx context.Context, p models.AppendTaskEventParams) (*models.TaskEvent, error) {
	payloadJSON, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append event tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`, p.TaskID); err != nil {
		return nil, fmt.Errorf("lock task for event append: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO task_events (task_id, id, event_name, type, payload)
		VALUES ($1, COALESCE((SELECT MAX(id) + 1 FROM task_events WHERE task_id = $1), 1), $2, $3, $4)
		RETURNING id, task_id, event_name, type, payload, created_at`,
		p.TaskID, p.EventName, p.Type, payloadJSON)

	event, err := scanTaskEvent(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append event tx: %w", err)
	}
	return event, nil
}

// ListTaskEvents returns all events for a task in ascending id order.
func (s *PostgresStore) ListTaskEvents(ctx context.Context, taskID string) ([]*models.TaskEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, event_name, type, payload, created_at
		FROM task_events WHERE task_id = $1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	var out []*models.TaskEvent
	for rows.Next() {
		e, err := scanTaskEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanTaskEvent(row rowScanner) (*models.TaskEvent, error) {
	var e models.TaskEvent
	var payloadJSON []byte
	if err := row.Scan(&e.ID, &e.TaskID, &e.EventName, &e.Type, &payloadJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal event payload: %w", err)
		}
	}
	return &e, nil
}
