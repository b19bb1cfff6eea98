// Package llm provides the vendor-neutral message model and the Provider
// interface implemented by each vendor adapter.
package llm

import (
	"context"

	"oneagent/pkg/tools"
)

// Role represents the role of one conversational turn.
type Role string

const (
	// RoleSystem is the agent's standing instructions.
	RoleSystem Role = "system"
	// RoleUser is input from the human user.
	RoleUser Role = "user"
	// RoleAssistant is a model response.
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of one executed tool call back to the model.
	RoleTool Role = "tool"
)

const (
	// DefaultMaxTokens caps response length when the caller does not specify one.
	DefaultMaxTokens = 4096

	// DefaultTemperature is the sampling temperature used unless overridden.
	DefaultTemperature = 0.7
)

// ToolCall is one requested invocation of a named capability. The ID is
// vendor-issued when native tool calling is used, or synthesized as call_0,
// call_1, ... in arrival order when parsed from fallback text. IDs are unique
// within the assistant turn that produced them, not globally.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one vendor-neutral conversational turn. A nil ToolCalls slice
// means "no tool calls": the orchestrator keys off absence, never emptiness.
// ToolCallID is set only on tool-role messages and references a call emitted
// by the immediately preceding assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewToolResultMessage creates a tool-role message carrying one execution
// outcome back to the model.
func NewToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ChatRequest is a request to generate one assistant turn.
type ChatRequest struct {
	Messages    []Message
	Tools       []tools.ToolDefinition
	MaxTokens   int
	Temperature float32
}

// NewChatRequest creates a request with default generation parameters.
func NewChatRequest(messages []Message, defs []tools.ToolDefinition) ChatRequest {
	return ChatRequest{
		Messages:    messages,
		Tools:       defs,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// StreamChunk is one incremental unit of a streamed response. Content holds
// the text accumulated so far and Delta this chunk's addition. ToolCalls is
// populated only on the terminal chunk of a turn that contains them.
type StreamChunk struct {
	Err       error
	Content   string
	Delta     string
	ToolCalls []ToolCall
	Final     bool
}

// Provider is the adapter contract: one implementation per vendor family.
// Chat blocks until a complete response is available and returns exactly one
// assistant Message, with ToolCalls populated only if the vendor (or the
// fallback parser) found invocations. Errors surface as *llmerrors.Error;
// adapters never retry.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (Message, error)
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
	ModelName() string
}
