package models

import "time"

// EventName is the coarse category of a TaskEvent, distinguishing the two
// durable streams the kernel writes: task lifecycle and approval lifecycle.
type EventName string

const (
	EventNameTask     EventName = "task"
	EventNameApproval EventName = "approval"
)

// Durable event type constants, the dotted `type` values external
// consumers key on.
const (
	EventTypeTaskCreated  = "task.created"
	EventTypeTaskQueued   = "task.queued"
	EventTypeTaskRunning  = "task.running"
	EventTypeTaskStdout   = "task.stdout"
	EventTypeTaskStderr   = "task.stderr"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypeTaskTimedOut  = "task.timed_out"
	EventTypeTaskDenied    = "task.denied"

	EventTypeToolCallStarted   = "tool.call.started"
	EventTypeToolCallDenied    = "tool.call.denied"
	EventTypeToolCallCompleted = "tool.call.completed"
	EventTypeToolCallFailed    = "tool.call.failed"

	EventTypeApprovalRequested = "approval.requested"
	EventTypeApprovalResolved  = "approval.resolved"
)

// TaskEvent is one immutable, durably-appended record in a task's event
// log. IDs are assigned by the Store and increase monotonically per task.
type TaskEvent struct {
	ID        int64
	TaskID    string
	EventName EventName
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

// AppendTaskEventParams carries the fields needed to append a new event;
// ID and CreatedAt are assigned by the Store.
type AppendTaskEventParams struct {
	TaskID    string
	EventName EventName
	Type      string
	Payload   map[string]any
}
