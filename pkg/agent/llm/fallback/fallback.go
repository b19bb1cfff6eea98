// Package fallback extracts tool invocations from unstructured assistant
// text, for models without native tool calling. The protocol is a fenced
// block tagged tool_call containing a JSON object:
//
//	```tool_call
//	{"tool": "calculator", "parameters": {"expression": "1+1"}}
//	```
//
// Parsing is an explicit fence tokenizer rather than a regex so that the
// failure cases are enumerable: unterminated fence, invalid JSON, missing
// tool key.
package fallback

import (
	"encoding/json"
	"fmt"
	"strings"

	"oneagent/pkg/agent/llm"
)

const (
	fenceOpen  = "```tool_call"
	fenceClose = "```"
)

// block is the wire shape of one fenced invocation.
type block struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// Parse scans text for tool_call fenced blocks in left-to-right order.
// Each syntactically valid block becomes one ToolCall with a synthesized id
// (call_0, call_1, ...; skipped blocks consume no id). Malformed blocks are
// dropped silently. When no valid block is found the returned slice is nil,
// which the orchestrator reads as "no tool calls". The second return value is
// the input with all recognized blocks removed and whitespace trimmed.
func Parse(text string) ([]llm.ToolCall, string) {
	var calls []llm.ToolCall
	var kept []string

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != fenceOpen {
			kept = append(kept, lines[i])
			continue
		}

		// Collect body lines until the closing fence.
		body, next, ok := collectBody(lines, i+1)
		if !ok {
			// Unterminated fence: not a block, keep the text as-is.
			kept = append(kept, lines[i:]...)
			break
		}

		if call, err := decodeBlock(body); err == nil {
			call.ID = fmt.Sprintf("call_%d", len(calls))
			calls = append(calls, call)
		}
		// Malformed blocks are dropped from the cleaned content too: the
		// model intended an invocation either way.
		i = next
	}

	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	return calls, cleaned
}

// collectBody gathers lines from start until a closing fence. Returns the
// body, the index of the closing fence line, and whether a close was found.
func collectBody(lines []string, start int) (string, int, bool) {
	for i := start; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fenceClose {
			return strings.Join(lines[start:i], "\n"), i, true
		}
	}
	return "", 0, false
}

// decodeBlock validates one block body: it must be a JSON object with a
// non-empty "tool" string. A missing parameters object defaults to empty.
func decodeBlock(body string) (llm.ToolCall, error) {
	// First decode into raw keys so a missing "tool" is distinguishable
	// from an empty one.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return llm.ToolCall{}, fmt.Errorf("invalid JSON in tool_call block: %w", err)
	}
	if _, ok := raw["tool"]; !ok {
		return llm.ToolCall{}, fmt.Errorf("tool_call block missing required key %q", "tool")
	}

	var b block
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		return llm.ToolCall{}, fmt.Errorf("invalid tool_call block: %w", err)
	}
	if b.Tool == "" {
		return llm.ToolCall{}, fmt.Errorf("tool name cannot be empty")
	}
	if b.Parameters == nil {
		b.Parameters = map[string]any{}
	}
	return llm.ToolCall{Name: b.Tool, Arguments: b.Parameters}, nil
}
