package registry

import (
	"context"
	"testing"

	"github.com/agentkernel/kernel/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New()
	_, err := r.Resolve("admin.delete_data")
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New()
	r.Register(models.ToolDefinition{
		Path:        "math.add",
		Description: "Add two numbers",
		Approval:    models.ApprovalModeAuto,
		Run: func(_ context.Context, input map[string]any, _ models.ToolRunContext) (any, error) {
			return map[string]any{"sum": 7}, nil
		},
	})

	def, err := r.Resolve("math.add")
	require.NoError(t, err)
	require.Equal(t, "math.add", def.Path)

	out, err := def.Run(context.Background(), map[string]any{"a": 3, "b": 4}, models.ToolRunContext{})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"sum": 7}, out)
}

func TestRegistry_DiscoverRanking(t *testing.T) {
	r := New()
	r.Register(models.ToolDefinition{Path: "admin.delete_data", Description: "Delete records from a workspace"})
	r.Register(models.ToolDefinition{Path: "admin.read_data", Description: "Read records"})
	r.Register(models.ToolDefinition{Path: "math.add", Description: "Add two numbers"})

	results := r.Discover("admin delete")
	require.NotEmpty(t, results)
	require.Equal(t, "admin.delete_data", results[0].Path)
	require.Greater(t, results[0].Score, 0)
}

func TestRegistry_DiscoverExcludesItself(t *testing.T) {
	r := New()
	for _, res := range r.Discover("discover") {
		require.NotEqual(t, "discover", res.Path)
	}
}
