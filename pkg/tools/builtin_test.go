package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello from disk"), 0o600))

	rf := NewReadFileTool()
	out, err := rf.Exec(context.Background(), map[string]any{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "hello from disk", out)
}

func TestReadFileTruncatesLargeFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", maxReadBytes+100)), 0o600))

	rf := NewReadFileTool()
	out, err := rf.Exec(context.Background(), map[string]any{"path": path})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "[truncated]"))
	assert.Less(t, len(out), maxReadBytes+100)
}

func TestReadFileErrors(t *testing.T) {
	rf := NewReadFileTool()

	_, err := rf.Exec(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "missing required argument")

	_, err = rf.Exec(context.Background(), map[string]any{"path": ""})
	assert.ErrorContains(t, err, "non-empty string")

	_, err = rf.Exec(context.Background(), map[string]any{"path": "/no/such/file/anywhere"})
	assert.Error(t, err)

	_, err = rf.Exec(context.Background(), map[string]any{"path": t.TempDir()})
	assert.ErrorContains(t, err, "is a directory")
}

func TestCurrentTime(t *testing.T) {
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ct := &CurrentTimeTool{now: func() time.Time { return fixed }}

	out, err := ct.Exec(context.Background(), map[string]any{"timezone": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15 12:00:00 UTC", out)

	out, err = ct.Exec(context.Background(), map[string]any{"timezone": "America/New_York"})
	require.NoError(t, err)
	assert.Contains(t, out, "2025-06-15 08:00:00")
}

func TestCurrentTimeBadZone(t *testing.T) {
	ct := NewCurrentTimeTool()
	_, err := ct.Exec(context.Background(), map[string]any{"timezone": "Mars/Olympus_Mons"})
	assert.ErrorContains(t, err, "unknown timezone")

	_, err = ct.Exec(context.Background(), map[string]any{"timezone": 5})
	assert.ErrorContains(t, err, "must be a string")
}

func TestSchemaToMap(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"tags": {
				Type:  "array",
				Items: &Property{Type: "string", Enum: []string{"a", "b"}},
			},
		},
		Required: []string{"tags"},
	}

	m := SchemaToMap(&schema)
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"tags"}, m["required"])

	props := m["properties"].(map[string]any)
	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	items := tags["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])
	assert.Equal(t, []string{"a", "b"}, items["enum"])
}

func TestSchemaToMapEmptyTypeDefaultsToObject(t *testing.T) {
	m := SchemaToMap(&InputSchema{})
	assert.Equal(t, "object", m["type"])
}
