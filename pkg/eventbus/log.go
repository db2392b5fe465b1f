package eventbus

import (
	"context"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/store"
)

// Log couples a durable Store append with live Bus delivery, enforcing
// strict ordering: the append that assigns the id happens before the
// publish that carries it.
type Log struct {
	store store.Store
	bus   *Bus
}

// NewLog returns a Log writing through st and fanning out on bus.
func NewLog(st store.Store, bus *Bus) *Log {
	return &Log{store: st, bus: bus}
}

// Append durably records the event, then publishes it live, returning
// the persisted TaskEvent (with its assigned id).
func (l *Log) Append(ctx context.Context, taskID string, eventName models.EventName, eventType string, payload map[string]any) (*models.TaskEvent, error) {
	ev, err := l.store.AppendTaskEvent(ctx, models.AppendTaskEventParams{
		TaskID:    taskID,
		EventName: eventName,
		Type:      eventType,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("append task event: %w", err)
	}

	l.bus.Publish(LiveEvent{
		ID:        ev.ID,
		TaskID:    ev.TaskID,
		EventName: ev.EventName,
		Type:      ev.Type,
		Payload:   ev.Payload,
	})
	return ev, nil
}
