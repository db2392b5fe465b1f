// Package policy implements the kernel's PolicyEngine: a stateless
// evaluator over per-workspace AccessPolicy rules, with
// pattern and argument-condition matching and a per-workspace compiled-
// matcher cache invalidated through Engine.InvalidateWorkspace.
package policy

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/store"
)

// Request is the input to Evaluate.
type Request struct {
	WorkspaceID string
	ActorID     string
	ClientID    string
	ToolPath    string
	Input       map[string]any
}

// Engine evaluates AccessPolicy rules for a workspace, caching compiled
// matchers per workspace until InvalidateWorkspace is called for that
// workspace. Writing policies through the Store does not invalidate the
// cache by itself.
type Engine struct {
	store store.Store

	mu      sync.Mutex
	version map[string]uint64 // workspaceId -> version
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	version  uint64
	compiled []compiledPolicy
}

type compiledPolicy struct {
	policy  *models.AccessPolicy
	matcher segmentMatcher
}

// New returns an Engine reading policies through st.
func New(st store.Store) *Engine {
	return &Engine{
		store:   st,
		version: make(map[string]uint64),
		cache:   make(map[string]cacheEntry),
	}
}

// InvalidateWorkspace bumps the cache version for a workspace, forcing
// the next Evaluate to reload and recompile its policies. Call this after
// any UpsertPolicy/DeletePolicy for that workspace.
func (e *Engine) InvalidateWorkspace(workspaceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.version[workspaceID]++
}

// Evaluate returns the decision for req: the first (priority DESC,
// createdAt ASC) matching policy's decision, or defaultDecision if none
// match.
func (e *Engine) Evaluate(ctx context.Context, req Request, defaultDecision models.PolicyDecision) (models.PolicyDecision, error) {
	compiled, err := e.compiledPolicies(ctx, req.WorkspaceID)
	if err != nil {
		return "", fmt.Errorf("load policies: %w", err)
	}

	for _, cp := range compiled {
		if !matches(cp, req) {
			continue
		}
		return cp.policy.Decision, nil
	}
	return defaultDecision, nil
}

func (e *Engine) compiledPolicies(ctx context.Context, workspaceID string) ([]compiledPolicy, error) {
	e.mu.Lock()
	curVersion := e.version[workspaceID]
	entry, ok := e.cache[workspaceID]
	e.mu.Unlock()

	if ok && entry.version == curVersion {
		return entry.compiled, nil
	}

	policies, err := e.store.ListPolicies(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledPolicy, 0, len(policies))
	for _, p := range policies {
		compiled = append(compiled, compiledPolicy{
			policy:  p,
			matcher: compileSegmentMatcher(p.ToolPathPattern),
		})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].policy.Priority != compiled[j].policy.Priority {
			return compiled[i].policy.Priority > compiled[j].policy.Priority
		}
		return compiled[i].policy.CreatedAt.Before(compiled[j].policy.CreatedAt)
	})

	e.mu.Lock()
	// Another goroutine may have already refreshed to a newer version
	// while we loaded; only store ours if it is still current.
	if e.version[workspaceID] == curVersion {
		e.cache[workspaceID] = cacheEntry{version: curVersion, compiled: compiled}
	}
	e.mu.Unlock()

	return compiled, nil
}

func matches(cp compiledPolicy, req Request) bool {
	p := cp.policy
	if p.WorkspaceID != req.WorkspaceID {
		return false
	}
	if p.ActorID != "" && p.ActorID != req.ActorID {
		return false
	}
	if p.ClientID != "" && p.ClientID != req.ClientID {
		return false
	}
	if !cp.matcher.match(req.ToolPath) {
		return false
	}
	for _, cond := range p.ArgumentConditions {
		if !evaluateCondition(cond, req.Input) {
			return false
		}
	}
	return true
}

func evaluateCondition(cond models.ArgumentCondition, input map[string]any) bool {
	actual, present := input[cond.Key]

	switch cond.Operator {
	case models.ConditionOperatorEquals:
		return present && reflect.DeepEqual(actual, cond.Value)
	case models.ConditionOperatorNotEquals:
		return !present || !reflect.DeepEqual(actual, cond.Value)
	case models.ConditionOperatorContains:
		if !present {
			return false
		}
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(cond.Value))
	case models.ConditionOperatorStartsWith:
		if !present {
			return false
		}
		return strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(cond.Value))
	default:
		return false
	}
}

// segmentMatcher is a precompiled glob-style path-segment matcher: `*`
// matches exactly one segment, a terminal `*` segment (written `foo.*`)
// matches any suffix of one-or-more segments, otherwise a segment must
// match exactly.
type segmentMatcher struct {
	segments       []string
	terminalWild bool
}

func compileSegmentMatcher(pattern string) segmentMatcher {
	parts := strings.Split(pattern, ".")
	m := segmentMatcher{}
	if len(parts) > 0 && parts[len(parts)-1] == "*" {
		m.terminalWild = true
		parts = parts[:len(parts)-1]
	}
	m.segments = parts
	return m
}

func (m segmentMatcher) match(toolPath string) bool {
	pathSegments := strings.Split(toolPath, ".")

	if m.terminalWild {
		if len(pathSegments) < len(m.segments)+1 {
			return false
		}
	} else if len(pathSegments) != len(m.segments) {
		return false
	}

	for i, seg := range m.segments {
		if seg == "*" {
			continue
		}
		if seg != pathSegments[i] {
			return false
		}
	}
	return true
}
