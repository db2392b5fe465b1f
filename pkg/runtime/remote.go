package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentkernel/kernel/pkg/models"
)

// RemoteRuntime dispatches task execution to an out-of-process sandbox
// host over HTTP and receives tool-call/output callbacks through the
// kernel's own internal HTTP surface, serviced via CallbackRegistry.
type RemoteRuntime struct {
	SandboxBaseURL  string
	AuthToken       string
	CallbackBaseURL string
	RequestTimeout  time.Duration
	Client          *http.Client

	callbacks *CallbackRegistry
}

// NewRemoteRuntime returns a RemoteRuntime dispatching to entry's
// sandbox host, routing callbacks through callbacks.
func NewRemoteRuntime(entry models.RuntimeCatalogEntry, callbacks *CallbackRegistry) *RemoteRuntime {
	timeout := entry.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteRuntime{
		SandboxBaseURL:  entry.SandboxBaseURL,
		AuthToken:       entry.AuthToken,
		CallbackBaseURL: entry.CallbackBaseURL,
		RequestTimeout:  timeout,
		Client:          &http.Client{},
		callbacks:       callbacks,
	}
}

// dispatchRequest is the body POSTed to the sandbox host to start a run.
type dispatchRequest struct {
	RunID           string `json:"runId"`
	Code            string `json:"code"`
	TimeoutMs       int64  `json:"timeoutMs"`
	CallbackBaseURL string `json:"callbackBaseUrl"`
	AuthToken       string `json:"authToken"`
}

// Run registers adapter for the duration of the call so the kernel's
// callback handlers can service this run, then dispatches to the
// sandbox host and waits for its result. Cancelling ctx aborts the
// outbound HTTP request.
func (r *RemoteRuntime) Run(ctx context.Context, req RunRequest, adapter Adapter) (models.SandboxExecutionResult, error) {
	r.callbacks.Register(req.TaskID, adapter)
	defer r.callbacks.Unregister(req.TaskID)

	body, err := json.Marshal(dispatchRequest{
		RunID: req.TaskID, Code: req.Code, TimeoutMs: req.TimeoutMs,
		CallbackBaseURL: r.CallbackBaseURL, AuthToken: r.AuthToken,
	})
	if err != nil {
		return models.SandboxExecutionResult{}, fmt.Errorf("marshal dispatch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.SandboxBaseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return models.SandboxExecutionResult{}, fmt.Errorf("build dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return models.SandboxExecutionResult{}, fmt.Errorf("runtime_transport_error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SandboxExecutionResult{}, fmt.Errorf("read dispatch response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.SandboxExecutionResult{}, fmt.Errorf("runtime_transport_error: sandbox host returned %d: %s", resp.StatusCode, respBody)
	}

	var result models.SandboxExecutionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return models.SandboxExecutionResult{}, fmt.Errorf("unmarshal dispatch response: %w", err)
	}
	return result, nil
}
