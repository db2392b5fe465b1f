package runtime

import (
	"context"
	"time"

	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/mediator"
	"github.com/agentkernel/kernel/pkg/models"
)

// InProcessAdapter calls the kernel's ToolMediator and EventBus directly
// — zero serialization. Safe for concurrent InvokeTool calls from
// multiple sandbox worker goroutines for the same task.
type InProcessAdapter struct {
	task     *models.Task
	mediator *mediator.Mediator
	log      *eventbus.Log
}

// NewInProcessAdapter returns an Adapter bound to task.
func NewInProcessAdapter(task *models.Task, med *mediator.Mediator, log *eventbus.Log) *InProcessAdapter {
	return &InProcessAdapter{task: task, mediator: med, log: log}
}

// InvokeTool re-enters the Mediator for this task.
func (a *InProcessAdapter) InvokeTool(ctx context.Context, req models.ToolCallRequest) models.ToolCallResult {
	if req.RunID != a.task.ID {
		return models.ToolCallResult{OK: false, Error: "Run mismatch for call " + req.CallID}
	}
	return a.mediator.InvokeTool(ctx, a.task, mediator.Call{
		RunID: req.RunID, CallID: req.CallID, ToolPath: req.ToolPath, Input: req.Input,
	})
}

// EmitOutput publishes a task.stdout/task.stderr event. Best-effort: a
// logging failure is swallowed, matching the fire-and-forget contract.
func (a *InProcessAdapter) EmitOutput(ctx context.Context, ev models.RuntimeOutputEvent) {
	eventType := models.EventTypeTaskStdout
	if ev.Stream == models.OutputStreamStderr {
		eventType = models.EventTypeTaskStderr
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, _ = a.log.Append(ctx, a.task.ID, models.EventNameTask, eventType, map[string]any{
		"taskId": a.task.ID, "line": ev.Line, "timestamp": ts,
	})
}
