package httpapi

import (
	"time"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/gin-gonic/gin"
)

type toolCallRequestBody struct {
	CallID   string         `json:"callId"`
	ToolPath string         `json:"toolPath"`
	Input    map[string]any `json:"input"`
}

type toolCallResponseBody struct {
	OK     bool   `json:"ok"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
	Denied bool   `json:"denied,omitempty"`
}

// handleToolCall services POST /internal/runs/:runId/tool-call: a remote
// sandbox invoking a tool through the kernel.
func (s *Server) handleToolCall(c *gin.Context) {
	runID := c.Param("runId")
	adapter, ok := s.callbacks.Lookup(runID)
	if !ok {
		c.JSON(404, toolCallResponseBody{OK: false, Error: "unknown run " + runID})
		return
	}

	var body toolCallRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, toolCallResponseBody{OK: false, Error: "invalid request body"})
		return
	}

	result := adapter.InvokeTool(c.Request.Context(), models.ToolCallRequest{
		RunID: runID, CallID: body.CallID, ToolPath: body.ToolPath, Input: body.Input,
	})

	c.JSON(200, toolCallResponseBody{OK: result.OK, Value: result.Value, Error: result.Error, Denied: result.Denied})
}

type outputEventBody struct {
	Stream string `json:"stream"`
	Line   string `json:"line"`
}

// handleOutput services POST /internal/runs/:runId/output: a remote
// sandbox streaming a stdout/stderr line. Unknown runId is a silent
// drop: the sandbox host still gets a 204.
func (s *Server) handleOutput(c *gin.Context) {
	runID := c.Param("runId")

	var body outputEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Status(204)
		return
	}

	if adapter, ok := s.callbacks.Lookup(runID); ok {
		stream := models.OutputStreamStdout
		if body.Stream == string(models.OutputStreamStderr) {
			stream = models.OutputStreamStderr
		}
		adapter.EmitOutput(c.Request.Context(), models.RuntimeOutputEvent{
			RunID: runID, Stream: stream, Line: body.Line, Timestamp: time.Now(),
		})
	}

	c.Status(204)
}
