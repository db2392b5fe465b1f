// Package credential implements the kernel's CredentialResolver: given
// a tool's declared CredentialSpec and the invoking run context, it
// returns the bound secret applied as ready-to-send HTTP headers.
package credential

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/store"
)

// Resolver resolves tool credentials through a Store.
type Resolver struct {
	store store.Store
}

// New returns a Resolver reading credentials through st.
func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve returns the bound credential for spec in the given workspace/
// actor, or (nil, nil) if none is bound — the tool itself decides whether
// an absent credential is fatal.
func (r *Resolver) Resolve(ctx context.Context, spec *models.CredentialSpec, workspaceID, actorID string) (*models.ResolvedToolCredential, error) {
	if spec == nil {
		return nil, nil
	}

	cred, err := r.resolveCredentialRow(ctx, workspaceID, spec.SourceKey, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}
	if cred == nil {
		return nil, nil
	}

	headers, err := buildHeaders(spec, cred)
	if err != nil {
		return nil, fmt.Errorf("build credential headers: %w", err)
	}

	return &models.ResolvedToolCredential{
		SourceKey: cred.SourceKey,
		Scope:     cred.Scope,
		Headers:   headers,
	}, nil
}

// resolveCredentialRow tries an actor-scoped credential first, then
// falls back to a workspace-scoped one.
func (r *Resolver) resolveCredentialRow(ctx context.Context, workspaceID, sourceKey, actorID string) (*models.Credential, error) {
	if actorID != "" {
		cred, err := r.store.ResolveCredential(ctx, workspaceID, sourceKey, models.CredentialScopeActor, actorID)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			return cred, nil
		}
	}
	return r.store.ResolveCredential(ctx, workspaceID, sourceKey, models.CredentialScopeWorkspace, "")
}

func buildHeaders(spec *models.CredentialSpec, cred *models.Credential) (map[string]string, error) {
	secret, _ := cred.SecretJSON["value"].(string)

	switch spec.Scheme {
	case models.AuthSchemeBearer:
		return map[string]string{"Authorization": "Bearer " + secret}, nil
	case models.AuthSchemeAPIKey:
		name := spec.HeaderName
		if name == "" {
			name = "X-API-Key"
		}
		return map[string]string{name: secret}, nil
	case models.AuthSchemeBasic:
		user, _ := cred.SecretJSON["username"].(string)
		pass, _ := cred.SecretJSON["password"].(string)
		encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		return map[string]string{"Authorization": "Basic " + encoded}, nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q", spec.Scheme)
	}
}
