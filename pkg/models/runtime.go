package models

import "time"

// OutputStream names which of a task's two output channels a
// RuntimeOutputEvent belongs to.
type OutputStream string

const (
	OutputStreamStdout OutputStream = "stdout"
	OutputStreamStderr OutputStream = "stderr"
)

// ToolCallRequest is what a Runtime sends (in-process as a direct call,
// remote as an HTTP POST body) to invoke a tool on the kernel's behalf.
type ToolCallRequest struct {
	RunID    string
	CallID   string
	ToolPath string
	Input    map[string]any
}

// ToolCallResult is the tagged sum type the RuntimeAdapter returns for a
// ToolCallRequest: either Ok with a value, or not-Ok with an error message
// and an explicit Denied flag (replacing the source's `denied:` message
// prefix convention — see SPEC_FULL.md).
type ToolCallResult struct {
	OK     bool
	Value  any
	Error  string
	Denied bool
}

// RuntimeOutputEvent is a single line of streamed stdout/stderr from a
// running task, as reported through the RuntimeAdapter.
type RuntimeOutputEvent struct {
	RunID     string
	Stream    OutputStream
	Line      string
	Timestamp time.Time
}

// SandboxExecutionResult is what Runtime.Run returns once a task's
// program finishes (by any means: normal return, sandbox-reported
// failure, or scheduler-forced timeout).
type SandboxExecutionResult struct {
	Status     TaskStatus
	Stdout     string
	Stderr     string
	ExitCode   *int
	Error      string
	DurationMs int64
}

// RuntimeCatalogEntry describes one configured Runtime available to the
// TaskScheduler, as loaded from the runtime catalog config.
type RuntimeCatalogEntry struct {
	ID              string
	Kind            string // "inline" | "remote"
	SandboxBaseURL  string // remote only
	AuthToken       string // remote only: shared secret sent to the sandbox host
	RequestTimeout  time.Duration
	CallbackBaseURL string // remote only: advertised to the sandbox host at dispatch
}
