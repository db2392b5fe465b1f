package runtime

import (
	"context"

	"github.com/agentkernel/kernel/pkg/models"
)

// InlineFunc is a Runtime expressed as a plain function — the shape used
// by tests and simple example runtimes registered under "inline".
type InlineFunc func(ctx context.Context, req RunRequest, adapter Adapter) (models.SandboxExecutionResult, error)

// InlineRuntime adapts an InlineFunc to the Runtime interface.
type InlineRuntime struct {
	Func InlineFunc
}

// NewInlineRuntime returns a Runtime that simply calls fn.
func NewInlineRuntime(fn InlineFunc) *InlineRuntime {
	return &InlineRuntime{Func: fn}
}

// Run implements Runtime.
func (r *InlineRuntime) Run(ctx context.Context, req RunRequest, adapter Adapter) (models.SandboxExecutionResult, error) {
	return r.Func(ctx, req, adapter)
}
