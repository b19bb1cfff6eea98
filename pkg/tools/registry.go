package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"oneagent/pkg/logx"
)

// Registry maps tool names to executable capabilities. It is built once from
// the set of enabled tools and is safe for concurrent reads.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
	logger  *logx.Logger
}

// NewRegistry creates a registry holding the given tools.
// Duplicate names overwrite earlier registrations.
func NewRegistry(toolList ...Tool) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool, len(toolList)),
		logger: logx.NewLogger("tools"),
	}
	for _, t := range toolList {
		r.tools[t.Definition().Name] = t
	}
	return r
}

// SetTimeout sets a per-execution time bound. Zero means no bound.
func (r *Registry) SetTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds a tool. Returns an error for nil tools or empty names.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	return nil
}

// Remove deletes a tool by name. Reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	return true
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool '%s' not found", name)
	}
	return t, nil
}

// List returns definitions for all registered tools, sorted by name so the
// descriptor order sent to providers is deterministic.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the named tool with the given arguments and converts every
// failure mode (unknown tool, returned error, panic, timeout) into a failed
// ToolResult. It never returns an error to the caller; the loop must always
// be able to feed a result back to the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) ToolResult {
	t, err := r.Get(name)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error()}
	}

	r.mu.RLock()
	timeout := r.timeout
	r.mu.RUnlock()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := r.execSafe(ctx, t, args)
	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("tool %s failed after %.3fs: %v", name, duration.Seconds(), err)
		return ToolResult{Success: false, Error: err.Error()}
	}
	r.logger.Debug("tool %s completed in %.3fs", name, duration.Seconds())
	return ToolResult{Success: true, Content: content}
}

// execSafe invokes the tool and recovers panics into errors.
func (r *Registry) execSafe(ctx context.Context, t Tool, args map[string]any) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return t.Exec(ctx, args)
}
