package openai

import (
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/tools"
)

func TestToWireMessagesRoles(t *testing.T) {
	messages := []llm.Message{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("hi"),
		{Role: llm.RoleAssistant, Content: "hello"},
		llm.NewToolResultMessage("call_0", "result"),
	}

	wire, err := toWireMessages(messages)
	require.NoError(t, err)
	require.Len(t, wire, 4)
	assert.NotNil(t, wire[0].OfSystem)
	assert.NotNil(t, wire[1].OfUser)
	assert.NotNil(t, wire[2].OfAssistant)
	require.NotNil(t, wire[3].OfTool)
	assert.Equal(t, "call_0", wire[3].OfTool.ToolCallID)
}

func TestToWireMessagesEncodesToolCallArguments(t *testing.T) {
	messages := []llm.Message{
		llm.NewUserMessage("calc"),
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_0", Name: "calculator", Arguments: map[string]any{"expression": "2+2"}},
			},
		},
	}

	wire, err := toWireMessages(messages)
	require.NoError(t, err)
	require.NotNil(t, wire[1].OfAssistant)
	require.Len(t, wire[1].OfAssistant.ToolCalls, 1)

	call := wire[1].OfAssistant.ToolCalls[0].OfFunction
	require.NotNil(t, call)
	assert.Equal(t, "call_0", call.ID)
	assert.Equal(t, "calculator", call.Function.Name)
	assert.JSONEq(t, `{"expression": "2+2"}`, call.Function.Arguments, "arguments travel as a JSON string")
}

func TestToWireMessagesValidation(t *testing.T) {
	_, err := toWireMessages(nil)
	assert.Error(t, err, "empty sequence rejected")

	_, err = toWireMessages([]llm.Message{{Role: llm.RoleTool, Content: "orphan"}})
	assert.ErrorContains(t, err, "missing tool_call_id")

	_, err = toWireMessages([]llm.Message{{Role: "narrator", Content: "once upon a time"}})
	assert.ErrorContains(t, err, "invalid role")
}

func TestParseMessageDecodesArguments(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Content: "calling now",
		ToolCalls: []openai.ChatCompletionMessageToolCallUnion{
			{
				ID:   "call_abc",
				Type: "function",
				Function: openai.ChatCompletionMessageFunctionToolCallFunction{
					Name:      "calculator",
					Arguments: `{"expression": "2+2"}`,
				},
			},
		},
	}

	parsed, err := parseMessage(&msg)
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, parsed.Role)
	assert.Equal(t, "calling now", parsed.Content)
	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "call_abc", parsed.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"expression": "2+2"}, parsed.ToolCalls[0].Arguments)
}

func TestParseMessageEmptyArguments(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		ToolCalls: []openai.ChatCompletionMessageToolCallUnion{
			{
				ID:       "call_0",
				Type:     "function",
				Function: openai.ChatCompletionMessageFunctionToolCallFunction{Name: "current_time"},
			},
		},
	}

	parsed, err := parseMessage(&msg)
	require.NoError(t, err)
	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, map[string]any{}, parsed.ToolCalls[0].Arguments, "missing arguments decode to an empty map")
}

func TestParseMessageBadArgumentsPoisonResponse(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		ToolCalls: []openai.ChatCompletionMessageToolCallUnion{
			{
				ID:   "call_0",
				Type: "function",
				Function: openai.ChatCompletionMessageFunctionToolCallFunction{
					Name:      "calculator",
					Arguments: `{not json`,
				},
			},
		},
	}

	_, err := parseMessage(&msg)
	assert.Error(t, err)
}

func TestParseMessageNoToolCalls(t *testing.T) {
	parsed, err := parseMessage(&openai.ChatCompletionMessage{Content: "plain answer"})
	require.NoError(t, err)
	assert.Nil(t, parsed.ToolCalls, "absence is a nil slice, not an empty one")
}

func TestToWireTools(t *testing.T) {
	defs := []tools.ToolDefinition{{
		Name:        "calculator",
		Description: "math",
		InputSchema: tools.InputSchema{
			Type:       "object",
			Properties: map[string]tools.Property{"expression": {Type: "string"}},
			Required:   []string{"expression"},
		},
	}}

	wire := toWireTools(defs)
	require.Len(t, wire, 1)
	require.NotNil(t, wire[0].OfFunction)
	assert.Equal(t, "calculator", wire[0].OfFunction.Function.Name)
	params := map[string]any(wire[0].OfFunction.Function.Parameters)
	assert.Equal(t, "object", params["type"])
}
