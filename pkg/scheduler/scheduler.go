// Package scheduler implements the kernel's TaskScheduler: it accepts
// new tasks, dispatches each to its runtime on its own goroutine,
// enforces per-task timeouts, records terminal state, and emits the
// task-lifecycle event sequence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/mediator"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/runtime"
	"github.com/agentkernel/kernel/pkg/store"
	"github.com/google/uuid"
)

// ErrRuntimeNotFound names the case of a task whose declared runtimeId
// has no registered Runtime. run records such a task failed with the
// error string "unknown_runtime"; it does not return this value.
var ErrRuntimeNotFound = errors.New("scheduler: runtime not found")

// DefaultTimeoutMs is used when a CreateTask request does not set one.
const DefaultTimeoutMs = 15_000

// Scheduler is the kernel's TaskScheduler.
type Scheduler struct {
	store    store.Store
	log      *eventbus.Log
	runtimes *runtime.Registry
	mediator *mediator.Mediator

	mu           sync.Mutex
	inFlight     map[string]context.CancelFunc
	wg           sync.WaitGroup
	shuttingDown bool
}

// New returns a Scheduler wired to its collaborators.
func New(st store.Store, log *eventbus.Log, runtimes *runtime.Registry, med *mediator.Mediator) *Scheduler {
	return &Scheduler{
		store:    st,
		log:      log,
		runtimes: runtimes,
		mediator: med,
		inFlight: make(map[string]context.CancelFunc),
	}
}

// CreateTaskParams is the input to CreateTask.
type CreateTaskParams struct {
	WorkspaceID string
	ActorID     string
	ClientID    string
	Code        string
	RuntimeID   string
	TimeoutMs   int64
	Metadata    map[string]any
}

// CreateTask persists a new task (status=queued), publishes
// task.created/task.queued, and dispatches it asynchronously. Returns
// once the task row exists; dispatch happens on its own goroutine.
func (s *Scheduler) CreateTask(ctx context.Context, p CreateTaskParams) (*models.Task, error) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil, fmt.Errorf("scheduler: shutting down, not accepting new tasks")
	}
	s.mu.Unlock()

	timeoutMs := p.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}

	task, err := s.store.CreateTask(ctx, models.CreateTaskParams{
		ID: uuid.NewString(), Code: p.Code, RuntimeID: p.RuntimeID, TimeoutMs: timeoutMs,
		Metadata: p.Metadata, WorkspaceID: p.WorkspaceID, ActorID: p.ActorID, ClientID: p.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if _, err := s.log.Append(context.Background(), task.ID, models.EventNameTask, models.EventTypeTaskCreated, map[string]any{
		"taskId": task.ID, "status": task.Status, "runtimeId": task.RuntimeID, "timeoutMs": task.TimeoutMs, "createdAt": task.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("publish task.created: %w", err)
	}
	if _, err := s.log.Append(context.Background(), task.ID, models.EventNameTask, models.EventTypeTaskQueued, map[string]any{
		"taskId": task.ID, "status": models.TaskStatusQueued,
	}); err != nil {
		return nil, fmt.Errorf("publish task.queued: %w", err)
	}

	s.dispatch(task)
	return task, nil
}

// dispatch guards against a double-dispatch of the same task and runs
// the task's lifecycle on its own goroutine.
func (s *Scheduler) dispatch(task *models.Task) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return
	}
	if _, already := s.inFlight[task.ID]; already {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.inFlight[task.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.finishDispatch(task.ID)
		s.run(runCtx, task)
	}()
}

func (s *Scheduler) finishDispatch(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, taskID)
}

// run executes one task's lifecycle: resolve runtime, mark running,
// build an adapter, call Runtime.Run under the task's timeout, and
// record the terminal outcome.
func (s *Scheduler) run(ctx context.Context, task *models.Task) {
	rt, err := s.runtimes.Resolve(task.RuntimeID)
	if err != nil {
		s.finalize(ctx, task, models.TaskStatusFailed, "", "", nil, "unknown_runtime")
		return
	}

	if err := s.store.MarkTaskRunning(ctx, task.ID); err != nil {
		slog.Error("scheduler: mark task running failed", "task_id", task.ID, "error", err)
		return
	}
	startedAt := time.Now()
	if _, err := s.log.Append(ctx, task.ID, models.EventNameTask, models.EventTypeTaskRunning, map[string]any{
		"taskId": task.ID, "status": models.TaskStatusRunning, "startedAt": startedAt,
	}); err != nil {
		slog.Error("scheduler: publish task.running failed", "task_id", task.ID, "error", err)
	}

	adapter := runtime.NewInProcessAdapter(task, s.mediator, s.log)

	if task.TimeoutMs <= 0 {
		s.finalize(ctx, task, models.TaskStatusTimedOut, "", "", nil, "")
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(task.TimeoutMs)*time.Millisecond)
	defer cancel()

	type runOutcome struct {
		result models.SandboxExecutionResult
		err    error
	}
	done := make(chan runOutcome, 1)
	go func() {
		result, err := rt.Run(timeoutCtx, runtime.RunRequest{TaskID: task.ID, Code: task.Code, TimeoutMs: task.TimeoutMs}, adapter)
		done <- runOutcome{result, err}
	}()

	// Shutdown cancels ctx; the terminal state is still recorded after that.
	recordCtx := context.WithoutCancel(ctx)

	var outcome runOutcome
	select {
	case outcome = <-done:
	case <-timeoutCtx.Done():
		if ctx.Err() == nil {
			s.finalize(recordCtx, task, models.TaskStatusTimedOut, "", "", nil, "")
			return
		}
		// Cancelled by Shutdown: wait for the runtime to return.
		outcome = <-done
	}
	if outcome.err != nil {
		s.finalize(recordCtx, task, classifyError(outcome.err), "", "", nil, outcome.err.Error())
		return
	}
	res := outcome.result
	status := res.Status
	if status == "" {
		status = models.TaskStatusCompleted
	}
	s.finalize(recordCtx, task, status, res.Stdout, res.Stderr, res.ExitCode, res.Error)
}

// finalize records terminal state and publishes the terminal event. It
// is idempotent at the Store layer (MarkTaskFinished no-ops if already
// terminal), so a slow runtime that returns after a timeout already
// finalized the task cannot overwrite it.
func (s *Scheduler) finalize(ctx context.Context, task *models.Task, status models.TaskStatus, stdout, stderr string, exitCode *int, errMsg string) {
	if err := s.store.MarkTaskFinished(ctx, task.ID, status, stdout, stderr, exitCode, errMsg); err != nil {
		slog.Error("scheduler: mark task finished failed", "task_id", task.ID, "error", err)
		return
	}

	eventType := terminalEventType(status)
	if _, err := s.log.Append(ctx, task.ID, models.EventNameTask, eventType, map[string]any{
		"taskId": task.ID, "status": status, "exitCode": exitCode, "error": errMsg, "completedAt": time.Now(),
	}); err != nil {
		slog.Error("scheduler: publish terminal event failed", "task_id", task.ID, "error", err)
	}
}

// Shutdown stops accepting new dispatch, cancels every in-flight
// adapter's context, and waits (bounded by ctx) for their goroutines to
// finish recording terminal events.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	for _, cancel := range s.inFlight {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverOnBoot marks any task left `running` by a prior process
// `failed`: there is no durable waiter resumption across a restart.
// Call once before accepting dispatch.
func (s *Scheduler) RecoverOnBoot(ctx context.Context) (int, error) {
	n, err := s.store.MarkRunningTasksFailed(ctx, "kernel restarted while running")
	if err != nil {
		return 0, fmt.Errorf("recover on boot: %w", err)
	}
	if n > 0 {
		slog.Warn("scheduler: recovered tasks left running by a prior process", "count", n)
	}
	return n, nil
}

func terminalEventType(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusCompleted:
		return models.EventTypeTaskCompleted
	case models.TaskStatusTimedOut:
		return models.EventTypeTaskTimedOut
	case models.TaskStatusDenied:
		return models.EventTypeTaskDenied
	default:
		return models.EventTypeTaskFailed
	}
}

func classifyError(err error) models.TaskStatus {
	if err == context.DeadlineExceeded {
		return models.TaskStatusTimedOut
	}
	return models.TaskStatusFailed
}
