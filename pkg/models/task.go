// Package models defines the data-model types shared across the kernel:
// tasks, approvals, durable events, access policies, credentials, tool
// sources, and the in-memory ToolDefinition/ToolRunContext contract tools
// are invoked through.
package models

import "time"

// TaskStatus is the lifecycle status of a Task. Terminal statuses are
// absorbing: once set, a Task never transitions again.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusTimedOut  TaskStatus = "timed_out"
	TaskStatusDenied    TaskStatus = "denied"
)

// IsTerminal reports whether the status is one of the absorbing terminal
// states.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusTimedOut, TaskStatusDenied:
		return true
	default:
		return false
	}
}

// Task is one submitted program to be executed in a sandbox.
type Task struct {
	ID          string
	Code        string
	RuntimeID   string
	TimeoutMs   int64
	Metadata    map[string]any
	WorkspaceID string
	ActorID     string // optional, empty if unset
	ClientID    string // optional, empty if unset

	Status TaskStatus

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Stdout   string
	Stderr   string
	ExitCode *int
	Error    string
}

// CreateTaskParams carries the fields needed to create a new Task.
type CreateTaskParams struct {
	ID          string
	Code        string
	RuntimeID   string
	TimeoutMs   int64
	Metadata    map[string]any
	WorkspaceID string
	ActorID     string
	ClientID    string
}
