// Package compat provides the OpenAI-compatible adapter family (GLM, Kimi
// and similar endpoints). Models on the native tool-calling allow-list get
// the plain array-of-functions path; everything else is downgraded at
// runtime: tool descriptors are serialized as structured text into the
// system message and tool invocations are recovered from the response text
// by the fallback parser.
package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"oneagent/pkg/agent/internal/llmimpl/openai"
	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llm/fallback"
	"oneagent/pkg/tools"
)

// Client implements llm.Provider for OpenAI-compatible endpoints.
type Client struct {
	native *openai.Client
	model  string
	// nativeTools is the capability flag resolved at construction from the
	// model registry, so the decision is a configuration lookup rather than
	// a heuristic buried in adapter logic.
	nativeTools bool
}

// NewClient creates a compatible-endpoint client. nativeTools selects the
// array-of-functions path; when false, tool requests use the degraded
// text protocol.
func NewClient(apiKey, model, baseURL string, nativeTools bool) *Client {
	return &Client{
		native:      openai.NewClientWithBaseURL(apiKey, model, baseURL),
		model:       model,
		nativeTools: nativeTools,
	}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	if c.nativeTools || len(req.Tools) == 0 {
		return c.native.Chat(ctx, req)
	}
	return c.chatWithTextTools(ctx, req)
}

// Stream implements llm.Provider. Models with native support stream
// incrementally. In degraded mode the fallback parser needs the complete
// text, so the response is buffered and delivered as a single final chunk.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if c.nativeTools || len(req.Tools) == 0 {
		return c.native.Stream(ctx, req)
	}

	ch := make(chan llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		msg, err := c.chatWithTextTools(ctx, req)
		if err != nil {
			ch <- llm.StreamChunk{Err: err}
			return
		}
		ch <- llm.StreamChunk{
			Content:   msg.Content,
			Delta:     msg.Content,
			ToolCalls: msg.ToolCalls,
			Final:     true,
		}
	}()
	return ch, nil
}

// ModelName returns the model for this client.
func (c *Client) ModelName() string {
	return c.model
}

// chatWithTextTools sends the degraded form of the request and recovers
// tool invocations from the response text.
func (c *Client) chatWithTextTools(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	degraded := llm.ChatRequest{
		Messages:    degradeMessages(req.Messages, req.Tools),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	msg, err := c.native.Chat(ctx, degraded)
	if err != nil {
		return llm.Message{}, err
	}

	calls, cleaned := fallback.Parse(msg.Content)
	if calls != nil {
		msg.ToolCalls = calls
		msg.Content = cleaned
	}
	return msg, nil
}

// degradeMessages rewrites the sequence for a model without native tool
// calling: tool descriptors are appended to the system message (or inserted
// as one), prior assistant tool calls are re-rendered as fenced blocks so
// the model sees its own protocol, and tool results become user text.
func degradeMessages(messages []llm.Message, defs []tools.ToolDefinition) []llm.Message {
	toolText := formatToolsAsText(defs)

	result := make([]llm.Message, 0, len(messages)+1)
	injected := false
	for i := range messages {
		msg := messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			if !injected {
				msg.Content = msg.Content + "\n\n" + toolText
				injected = true
			}
		case llm.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				msg.Content = renderToolCalls(msg.Content, msg.ToolCalls)
				msg.ToolCalls = nil
			}
		case llm.RoleTool:
			msg = llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("Tool result for %s:\n%s", msg.ToolCallID, msg.Content),
			}
		}
		result = append(result, msg)
	}

	if !injected {
		result = append([]llm.Message{llm.NewSystemMessage(toolText)}, result...)
	}
	return result
}

// renderToolCalls re-encodes structured tool calls as fenced blocks.
func renderToolCalls(content string, calls []llm.ToolCall) string {
	var b strings.Builder
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	for i := range calls {
		payload := map[string]any{
			"tool":       calls[i].Name,
			"parameters": calls[i].Arguments,
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		b.WriteString("```tool_call\n")
		b.Write(encoded)
		b.WriteString("\n```\n")
	}
	return strings.TrimSpace(b.String())
}

// formatToolsAsText serializes tool descriptors for the system prompt,
// followed by the invocation protocol the fallback parser understands.
func formatToolsAsText(defs []tools.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("# Available Tools\n\n")

	for i := range defs {
		def := &defs[i]
		b.WriteString("## " + def.Name + "\n")
		if def.Description != "" {
			b.WriteString(def.Description + "\n\n")
		} else {
			b.WriteString("No description\n\n")
		}
		b.WriteString("Parameters:\n```json\n")
		schema, err := json.MarshalIndent(tools.SchemaToMap(&def.InputSchema), "", "  ")
		if err == nil {
			b.Write(schema)
		}
		b.WriteString("\n```\n\n")
	}

	b.WriteString(`When using a tool, format your response as:
` + "```tool_call" + `
{
  "tool": "tool_name",
  "parameters": {parameters}
}
` + "```" + `
`)
	return b.String()
}
