package tools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool is a configurable test double.
type stubTool struct {
	name string
	exec func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubTool) Definition() ToolDefinition {
	return ToolDefinition{Name: s.name, InputSchema: InputSchema{Type: "object"}}
}

func (s *stubTool) Exec(ctx context.Context, args map[string]any) (string, error) {
	return s.exec(ctx, args)
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry(
		&stubTool{name: "zebra"},
		&stubTool{name: "alpha"},
		&stubTool{name: "mango"},
	)

	defs := r.List()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "mango", defs[1].Name)
	assert.Equal(t, "zebra", defs[2].Name)
}

func TestRegistryRegisterAndRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "x"}))
	assert.Equal(t, 1, r.Len())

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubTool{name: ""}))

	assert.True(t, r.Remove("x"))
	assert.False(t, r.Remove("x"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "nope", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool 'nope' not found")
	assert.Equal(t, result.Error, result.Output())
}

func TestRegistryExecuteSuccess(t *testing.T) {
	r := NewRegistry(&stubTool{
		name: "echo",
		exec: func(_ context.Context, args map[string]any) (string, error) {
			return args["msg"].(string), nil
		},
	})

	result := r.Execute(context.Background(), "echo", map[string]any{"msg": "hi"})
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Output())
}

func TestRegistryExecuteError(t *testing.T) {
	r := NewRegistry(&stubTool{
		name: "boom",
		exec: func(context.Context, map[string]any) (string, error) {
			return "", fmt.Errorf("it broke")
		},
	})

	result := r.Execute(context.Background(), "boom", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "it broke", result.Output())
}

func TestRegistryExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(&stubTool{
		name: "panic",
		exec: func(context.Context, map[string]any) (string, error) {
			panic("boom")
		},
	})

	result := r.Execute(context.Background(), "panic", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool panicked")
}

func TestRegistryExecuteTimeout(t *testing.T) {
	r := NewRegistry(&stubTool{
		name: "slow",
		exec: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "too late", nil
			}
		},
	})
	r.SetTimeout(20 * time.Millisecond)

	result := r.Execute(context.Background(), "slow", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "context deadline exceeded")
}
