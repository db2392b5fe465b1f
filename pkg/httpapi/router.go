// Package httpapi exposes the kernel's internal remote-runtime callback
// surface and a health endpoint, built on gin.
package httpapi

import (
	"github.com/agentkernel/kernel/pkg/runtime"
	"github.com/gin-gonic/gin"
)

// Server wraps the gin engine and its dependencies.
type Server struct {
	engine      *gin.Engine
	callbacks   *runtime.CallbackRegistry
	internalTok string
}

// NewServer builds the router: a public health check plus the
// bearer-token-gated internal callback routes under
// /internal/runs/:runId/.
func NewServer(callbacks *runtime.CallbackRegistry, internalToken string) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, callbacks: callbacks, internalTok: internalToken}

	engine.GET("/healthz", s.handleHealth)

	internal := engine.Group("/internal/runs/:runId")
	internal.Use(s.bearerAuth())
	internal.POST("/tool-call", s.handleToolCall)
	internal.POST("/output", s.handleOutput)

	return s
}

// Engine returns the underlying gin engine (for ListenAndServe / tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
