package models

import "time"

// AnonymousSession maps a bearer session id to the workspace/actor/client
// identity the (out-of-scope) API surface bootstraps when no auth
// provider is present.
type AnonymousSession struct {
	SessionID   string
	WorkspaceID string
	ActorID     string
	ClientID    string
	CreatedAt   time.Time
	LastSeenAt  time.Time
}
