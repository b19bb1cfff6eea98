package tools

import (
	"context"
	"fmt"
	"time"
)

// CurrentTimeTool reports the current time, optionally in a named zone.
type CurrentTimeTool struct {
	// now is swappable for tests.
	now func() time.Time
}

// NewCurrentTimeTool creates a current_time tool.
func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{now: time.Now}
}

// Definition returns the tool descriptor.
func (c *CurrentTimeTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "current_time",
		Description: "Get the current date and time, optionally in a specific IANA timezone.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"timezone": {
					Type:        "string",
					Description: "IANA timezone name, e.g. 'America/New_York'. Defaults to local time.",
				},
			},
		},
	}
}

// Exec returns the formatted current time.
func (c *CurrentTimeTool) Exec(_ context.Context, args map[string]any) (string, error) {
	now := c.now()
	if raw, ok := args["timezone"]; ok {
		name, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("timezone must be a string")
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", name, err)
		}
		now = now.In(loc)
	}
	return now.Format("2006-01-02 15:04:05 MST"), nil
}
