package models

import (
	"context"
	"time"
)

// ToolSourceType is the kind of external collaborator a ToolSource was
// imported from. The importers themselves are out of scope; the kernel
// only stores and enumerates the record.
type ToolSourceType string

const (
	ToolSourceTypeMCP      ToolSourceType = "mcp"
	ToolSourceTypeOpenAPI  ToolSourceType = "openapi"
	ToolSourceTypeGraphQL  ToolSourceType = "graphql"
)

// ToolSource is a record of an external tool provider; the (out-of-scope)
// importer uses it to materialize ToolDefinitions the ToolRegistry exposes.
type ToolSource struct {
	ID          string
	WorkspaceID string
	Name        string
	Type        ToolSourceType
	Config      map[string]any
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertToolSourceParams carries the fields needed to create or replace a
// ToolSource. (WorkspaceID, Name) is the upsert key.
type UpsertToolSourceParams struct {
	WorkspaceID string
	Name        string
	Type        ToolSourceType
	Config      map[string]any
	Enabled     bool
}

// ApprovalMode is a tool's own declared default gating behavior, used by
// the PolicyEngine when no AccessPolicy matches a call.
type ApprovalMode string

const (
	ApprovalModeAuto     ApprovalMode = "auto"
	ApprovalModeRequired ApprovalMode = "required"
)

// ToolRunContext is handed to every ToolDefinition.Run call. It carries no
// hidden globals: credentials and capability checks both flow through it.
type ToolRunContext struct {
	Context     context.Context
	TaskID      string
	WorkspaceID string
	ActorID     string
	ClientID    string
	Credential  *ResolvedToolCredential

	// IsToolAllowed reports whether the named tool path would currently
	// evaluate to something other than deny for this workspace/actor/
	// client, with an empty input. Lets a tool handler that itself
	// dispatches other tools check capability before attempting it.
	IsToolAllowed func(toolPath string) bool
}

// ToolDefinition is the kernel-visible contract for a named, typed
// function a task's program can call.
type ToolDefinition struct {
	Path           string
	Description    string
	Approval       ApprovalMode
	Source         string // optional, empty for built-ins
	Metadata       map[string]any
	CredentialSpec *CredentialSpec

	Run func(ctx context.Context, input map[string]any, rc ToolRunContext) (any, error)
}
