package models

// CredentialScope narrows a Credential's binding to either the whole
// workspace or a single actor within it.
type CredentialScope string

const (
	CredentialScopeWorkspace CredentialScope = "workspace"
	CredentialScopeActor     CredentialScope = "actor"
)

// CredentialProvider names where a Credential's secret material actually
// lives.
type CredentialProvider string

const (
	CredentialProviderLocal CredentialProvider = "local"
	CredentialProviderVault CredentialProvider = "vault"
)

// Credential is a bound secret associated with a ToolSource, scoped to a
// workspace or a single actor within it.
type Credential struct {
	ID          string
	WorkspaceID string
	SourceKey   string
	Scope       CredentialScope
	ActorID     string // required iff Scope == CredentialScopeActor
	SecretJSON  map[string]any
	Provider    CredentialProvider
}

// UpsertCredentialParams carries the fields needed to create or replace a
// Credential. (WorkspaceID, SourceKey, Scope, ActorID) is the upsert key.
type UpsertCredentialParams struct {
	WorkspaceID string
	SourceKey   string
	Scope       CredentialScope
	ActorID     string
	SecretJSON  map[string]any
	Provider    CredentialProvider
}

// AuthScheme is the HTTP authentication scheme a credential is applied
// with when the CredentialResolver builds outbound headers.
type AuthScheme string

const (
	AuthSchemeBearer AuthScheme = "bearer"
	AuthSchemeAPIKey AuthScheme = "apiKey"
	AuthSchemeBasic  AuthScheme = "basic"
)

// CredentialSpec is the part of a ToolDefinition that tells the
// CredentialResolver which source and scheme a tool's credential binds.
type CredentialSpec struct {
	SourceKey string
	Scheme    AuthScheme
	HeaderName string // used when Scheme == AuthSchemeAPIKey; defaults to "X-API-Key"
}

// ResolvedToolCredential is what the CredentialResolver hands back to the
// mediator: the identity of the bound credential plus ready-to-send
// headers.
type ResolvedToolCredential struct {
	SourceKey string
	Scope     CredentialScope
	Headers   map[string]string
}
