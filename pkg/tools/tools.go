// Package tools provides the tool contract, registry, and built-in tool
// implementations used by the agent loop.
package tools

import "context"

// Property describes one parameter in a tool's input schema.
// Mirrors the JSON-Schema subset the vendor APIs accept.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
}

// InputSchema is the JSON-Schema-shaped parameter description for a tool.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition describes a tool capability to providers.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"parameters"`
}

// ToolResult is the outcome of executing one tool call. Exactly one of
// Content and Error is meaningful, selected by Success.
type ToolResult struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Output returns the string the orchestrator feeds back to the model:
// the content on success, the error text on failure.
func (r ToolResult) Output() string {
	if r.Success {
		return r.Content
	}
	return r.Error
}

// Tool is the capability contract. Exec failures are reported through the
// error return; the registry converts them to failed ToolResults so nothing
// propagates into the orchestrator.
type Tool interface {
	Definition() ToolDefinition
	Exec(ctx context.Context, args map[string]any) (string, error)
}

// SchemaToMap converts an InputSchema to the generic map form vendor SDKs
// expect for JSON-Schema parameter objects.
func SchemaToMap(schema *InputSchema) map[string]any {
	m := map[string]any{"type": schema.Type}
	if m["type"] == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]any, len(schema.Properties))
		for name := range schema.Properties {
			prop := schema.Properties[name]
			props[name] = propertyToMap(&prop)
		}
		m["properties"] = props
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

func propertyToMap(prop *Property) map[string]any {
	m := map[string]any{"type": prop.Type}
	if prop.Description != "" {
		m["description"] = prop.Description
	}
	if len(prop.Enum) > 0 {
		m["enum"] = prop.Enum
	}
	if prop.Items != nil {
		m["items"] = propertyToMap(prop.Items)
	}
	if len(prop.Properties) > 0 {
		nested := make(map[string]any, len(prop.Properties))
		for name, child := range prop.Properties {
			if child != nil {
				nested[name] = propertyToMap(child)
			}
		}
		m["properties"] = nested
	}
	return m
}
