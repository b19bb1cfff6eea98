package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneagent/pkg/agent/llm"
)

func TestAppendPreservesOrder(t *testing.T) {
	h := New()
	h.Append(llm.NewSystemMessage("sys"))
	h.Append(llm.NewUserMessage("first"))
	h.Append(llm.Message{Role: llm.RoleAssistant, Content: "second"})

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
}

func TestMessagesReturnsCopy(t *testing.T) {
	h := New()
	h.Append(llm.NewUserMessage("original"))

	msgs := h.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "original", h.Messages()[0].Content)
}

func TestTrimKeepsSystemMessages(t *testing.T) {
	h := New(WithMaxMessages(4))
	h.Append(llm.NewSystemMessage("sys"))
	for i := 0; i < 10; i++ {
		h.Append(llm.NewUserMessage(fmt.Sprintf("msg %d", i)))
	}

	msgs := h.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role, "system message survives trimming")
	assert.Equal(t, "msg 7", msgs[1].Content, "oldest non-system messages dropped first")
	assert.Equal(t, "msg 9", msgs[3].Content)
}

func TestTrimDropsOrphanedToolResults(t *testing.T) {
	h := New(WithMaxMessages(4))
	h.Append(llm.NewSystemMessage("sys"))
	h.Append(llm.NewUserMessage("calc 2+2"))
	h.Append(llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_0", Name: "calculator", Arguments: map[string]any{"expression": "2+2"}},
		},
	})
	h.Append(llm.NewToolResultMessage("call_0", "4"))
	h.Append(llm.Message{Role: llm.RoleAssistant, Content: "The answer is 4."})

	// This append pushes the assistant turn that issued call_0 out of the
	// window; its result must not survive as a dangling reference.
	h.Append(llm.NewUserMessage("thanks"))

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "The answer is 4.", msgs[1].Content)
	assert.Equal(t, llm.RoleUser, msgs[2].Role)
	for _, msg := range msgs {
		assert.NotEqual(t, llm.RoleTool, msg.Role)
	}
}

func TestTokenTrim(t *testing.T) {
	h := New(WithMaxTokens(50))
	h.Append(llm.NewSystemMessage("keep me"))
	for i := 0; i < 20; i++ {
		h.Append(llm.NewUserMessage("some reasonably long filler message to consume tokens"))
	}

	assert.LessOrEqual(t, h.TokenCount(), 50)
	assert.Equal(t, llm.RoleSystem, h.Messages()[0].Role)
}

func TestReset(t *testing.T) {
	h := New()
	h.Append(llm.NewSystemMessage("sys"))
	h.Append(llm.NewUserMessage("hello"))
	h.Append(llm.Message{Role: llm.RoleAssistant, Content: "hi"})

	h.Reset()
	msgs := h.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)

	// Idempotent.
	h.Reset()
	assert.Equal(t, 1, h.Len())
}

func TestClear(t *testing.T) {
	h := New()
	h.Append(llm.NewSystemMessage("sys"))
	h.Append(llm.NewUserMessage("hello"))
	h.Clear()
	assert.Equal(t, 0, h.Len())
}
