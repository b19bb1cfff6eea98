package tools

import (
	"context"
	"fmt"
	"os"
)

// maxReadBytes bounds how much file content a single call can feed back into
// the conversation.
const maxReadBytes = 64 * 1024

// ReadFileTool reads a file from the local filesystem, bounded by
// maxReadBytes so a large file cannot blow out the conversation.
type ReadFileTool struct{}

// NewReadFileTool creates a read_file tool.
func NewReadFileTool() *ReadFileTool {
	return &ReadFileTool{}
}

// Definition returns the tool descriptor.
func (f *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "read_file",
		Description: "Read the contents of a text file at the given path.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Path to the file to read",
				},
			},
			Required: []string{"path"},
		},
	}
}

// Exec reads the file at args["path"].
func (f *ReadFileTool) Exec(_ context.Context, args map[string]any) (string, error) {
	raw, ok := args["path"]
	if !ok {
		return "", fmt.Errorf("missing required argument: path")
	}
	path, ok := raw.(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path must be a non-empty string")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + "\n\n[truncated]", nil
	}
	return string(data), nil
}
