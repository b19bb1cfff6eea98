package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"oneagent/pkg/agent/llm"
)

// ExportFormat selects the serialization for Export.
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
)

// export is the JSON envelope written by Export.
type export struct {
	Session  Session       `json:"session"`
	Messages []llm.Message `json:"messages"`
}

// Export serializes a full session transcript.
func (s *Store) Export(sessionID string, format ExportFormat) (string, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return "", err
	}
	messages, err := s.Load(sessionID)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatJSON:
		encoded, err := json.MarshalIndent(export{Session: sess, Messages: messages}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode export: %w", err)
		}
		return string(encoded), nil
	case FormatMarkdown:
		return renderMarkdown(sess, messages), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportToFile serializes a full session transcript and writes it to path.
func (s *Store) ExportToFile(sessionID, path string, format ExportFormat) error {
	out, err := s.Export(sessionID, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write export to %s: %w", path, err)
	}
	return nil
}

func (s *Store) getSession(sessionID string) (Session, error) {
	var sess Session
	err := s.db.QueryRow(
		"SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?", sessionID,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("session %s not found: %w", sessionID, err)
	}
	return sess, nil
}

func roleHeading(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return "System"
	case llm.RoleUser:
		return "User"
	case llm.RoleAssistant:
		return "Assistant"
	case llm.RoleTool:
		return "Tool"
	default:
		return string(role)
	}
}

func renderMarkdown(sess Session, messages []llm.Message) string {
	var b strings.Builder

	title := sess.Title
	if title == "" {
		title = "Session " + sess.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Started: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Updated: %s\n\n", sess.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))

	for i := range messages {
		msg := &messages[i]
		fmt.Fprintf(&b, "## %s\n\n", roleHeading(msg.Role))
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		}
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			args, _ := json.Marshal(tc.Arguments)
			fmt.Fprintf(&b, "> tool call `%s` (%s): `%s`\n\n", tc.Name, tc.ID, args)
		}
		if msg.ToolCallID != "" {
			fmt.Fprintf(&b, "> result for `%s`\n\n", msg.ToolCallID)
		}
	}
	return b.String()
}
