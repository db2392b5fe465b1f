// Package registry implements the kernel's ToolRegistry: an in-memory,
// read-mostly path→ToolDefinition map built at boot from
// built-in tools and (out-of-scope) imported tool sources.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentkernel/kernel/pkg/models"
)

// ErrUnknownTool is returned when a tool path has no registered
// ToolDefinition.
var ErrUnknownTool = errors.New("registry: unknown tool")

// Registry is the kernel's ToolRegistry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]models.ToolDefinition
}

// New returns an empty Registry and installs the built-in `discover` tool.
func New() *Registry {
	r := &Registry{tools: make(map[string]models.ToolDefinition)}
	r.Register(r.discoverTool())
	return r
}

// Register installs or replaces a ToolDefinition by path.
func (r *Registry) Register(def models.ToolDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Path] = def
}

// Unregister removes a tool by path, if present.
func (r *Registry) Unregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, path)
}

// Resolve returns the ToolDefinition at path, or ErrUnknownTool.
func (r *Registry) Resolve(path string) (models.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[path]
	if !ok {
		return models.ToolDefinition{}, ErrUnknownTool
	}
	return def, nil
}

// List returns every registered ToolDefinition, stable-ordered by path.
func (r *Registry) List() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DiscoverResult is one ranked candidate returned by the built-in
// `discover` tool.
type DiscoverResult struct {
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Approval    models.ApprovalMode `json:"approval"`
	Score       int            `json:"score"`
	Example     map[string]any `json:"example"`
}

// discoverTool builds the built-in `discover` tool: given a free-text
// query, returns tool paths ranked by a deterministic score — path
// segment exact-token matches weigh 3x a plain description token overlap,
// ties are broken lexicographically by path.
func (r *Registry) discoverTool() models.ToolDefinition {
	return models.ToolDefinition{
		Path:        "discover",
		Description: "Find tool paths matching a free-text query.",
		Approval:    models.ApprovalModeAuto,
		Run: func(_ context.Context, input map[string]any, _ models.ToolRunContext) (any, error) {
			query, _ := input["query"].(string)
			return r.Discover(query), nil
		},
	}
}

// Discover ranks every registered tool (other than `discover` itself)
// against query and returns the results best-first.
func (r *Registry) Discover(query string) []DiscoverResult {
	queryTokens := tokenize(query)

	var out []DiscoverResult
	for _, def := range r.List() {
		if def.Path == "discover" {
			continue
		}
		segmentMatches := 0
		pathTokens := tokenize(strings.ReplaceAll(def.Path, ".", " "))
		pathTokenSet := make(map[string]bool, len(pathTokens))
		for _, t := range pathTokens {
			pathTokenSet[t] = true
		}
		for _, qt := range queryTokens {
			if pathTokenSet[qt] {
				segmentMatches++
			}
		}

		descTokens := tokenize(def.Description)
		descTokenSet := make(map[string]bool, len(descTokens))
		for _, t := range descTokens {
			descTokenSet[t] = true
		}
		descOverlap := 0
		for _, qt := range queryTokens {
			if descTokenSet[qt] {
				descOverlap++
			}
		}

		score := segmentMatches*3 + descOverlap
		if score == 0 && query != "" {
			continue
		}

		out = append(out, DiscoverResult{
			Path:        def.Path,
			Description: def.Description,
			Approval:    def.Approval,
			Score:       score,
			Example:     exampleInvocation(def),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func exampleInvocation(def models.ToolDefinition) map[string]any {
	return map[string]any{
		"call": fmt.Sprintf("tools.%s({...})", def.Path),
	}
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}
