// Package runtime implements the RuntimeAdapter protocol: the
// bidirectional contract between the TaskScheduler and a pluggable
// Runtime (in-process or a remote isolate host), plus the RuntimeRegistry
// mapping runtimeId to a concrete Runtime.
package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/agentkernel/kernel/pkg/models"
)

// ErrUnknownRuntime is returned when a runtimeId has no registered
// Runtime.
var ErrUnknownRuntime = errors.New("runtime: unknown runtime")

// RunRequest is what the scheduler hands to a Runtime.
type RunRequest struct {
	TaskID    string
	Code      string
	TimeoutMs int64
}

// Adapter is what a Runtime is given to reach back into the kernel.
// InProcessAdapter implements it; RemoteRuntime makes that same adapter
// reachable for an out-of-process sandbox by registering it in the
// CallbackRegistry the internal HTTP callback routes look up.
type Adapter interface {
	// InvokeTool runs one tool call on behalf of this run. The adapter
	// validates RunID against the task it's bound to; a mismatch returns
	// OK:false without side effects.
	InvokeTool(ctx context.Context, req models.ToolCallRequest) models.ToolCallResult
	// EmitOutput streams one line of stdout/stderr. Fire-and-forget:
	// delivery failures are never surfaced to the Runtime.
	EmitOutput(ctx context.Context, ev models.RuntimeOutputEvent)
}

// Runtime is a pluggable sandbox implementation.
type Runtime interface {
	Run(ctx context.Context, req RunRequest, adapter Adapter) (models.SandboxExecutionResult, error)
}

// Registry maps runtimeId -> Runtime. Read-mostly; Register and Resolve
// are guarded by a read/write lock.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]Runtime
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[string]Runtime)}
}

// Register installs or replaces a Runtime under runtimeID.
func (r *Registry) Register(runtimeID string, rt Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[runtimeID] = rt
}

// Resolve returns the Runtime registered under runtimeID.
func (r *Registry) Resolve(runtimeID string) (Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[runtimeID]
	if !ok {
		return nil, ErrUnknownRuntime
	}
	return rt, nil
}
