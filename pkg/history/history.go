// Package history manages the ordered conversation sequence owned by one
// agent. Insertion order is semantic: it is the literal exchange order sent
// to providers.
package history

import (
	"oneagent/pkg/agent/llm"
	"oneagent/pkg/utils"
)

// History holds the message sequence plus trim limits. It is not safe for
// concurrent use; the orchestrator is the single writer for one conversation.
type History struct {
	messages    []llm.Message
	maxMessages int
	maxTokens   int
	counter     *utils.TokenCounter
}

// Option configures a History.
type Option func(*History)

// WithMaxMessages caps the number of retained messages. System messages are
// always kept. Zero disables the cap.
func WithMaxMessages(n int) Option {
	return func(h *History) { h.maxMessages = n }
}

// WithMaxTokens caps the approximate token total of retained messages.
// Zero disables the cap.
func WithMaxTokens(n int) Option {
	return func(h *History) { h.maxTokens = n }
}

// New creates an empty history.
func New(opts ...Option) *History {
	h := &History{}
	for _, opt := range opts {
		opt(h)
	}
	if h.maxTokens > 0 {
		// Counter creation only fails if the embedded encoding is missing;
		// a nil counter falls back to character estimation.
		h.counter, _ = utils.NewTokenCounter("gpt-4")
	}
	return h
}

// Append adds a message and trims if a limit is exceeded.
func (h *History) Append(msg llm.Message) {
	h.messages = append(h.messages, msg)
	h.trim()
}

// Messages returns a copy of the sequence in exchange order.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Clear removes all messages.
func (h *History) Clear() {
	h.messages = nil
}

// Reset truncates the history back to its leading system messages,
// discarding the conversation. Idempotent.
func (h *History) Reset() {
	var seed []llm.Message
	for i := range h.messages {
		if h.messages[i].Role != llm.RoleSystem {
			break
		}
		seed = append(seed, h.messages[i])
	}
	h.messages = seed
}

// TokenCount returns the approximate token total of all message content.
func (h *History) TokenCount() int {
	total := 0
	for i := range h.messages {
		total += h.counter.CountTokens(h.messages[i].Content)
	}
	return total
}

// trim drops the oldest non-system messages once a limit is exceeded.
// System messages survive trimming so the agent's standing instructions are
// never lost.
func (h *History) trim() {
	trimmed := false
	if h.maxMessages > 0 && len(h.messages) > h.maxMessages {
		h.trimToMessageLimit()
		trimmed = true
	}
	if h.maxTokens > 0 {
		for h.TokenCount() > h.maxTokens && h.dropOldestNonSystem() {
			trimmed = true
		}
	}
	if trimmed {
		h.dropOrphanedResults()
	}
}

// dropOrphanedResults removes tool-role messages left at the head of the
// window after their assistant turn was trimmed away. Adapters reject tool
// results whose tool_call_id references nothing in the sequence.
func (h *History) dropOrphanedResults() {
	for i := 0; i < len(h.messages); {
		switch h.messages[i].Role {
		case llm.RoleSystem:
			i++
		case llm.RoleTool:
			h.messages = append(h.messages[:i], h.messages[i+1:]...)
		default:
			return
		}
	}
}

func (h *History) trimToMessageLimit() {
	var system, rest []llm.Message
	for i := range h.messages {
		if h.messages[i].Role == llm.RoleSystem {
			system = append(system, h.messages[i])
		} else {
			rest = append(rest, h.messages[i])
		}
	}

	keep := h.maxMessages - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}
	h.messages = append(system, rest...)
}

// dropOldestNonSystem removes the oldest non-system message. Reports whether
// anything was dropped.
func (h *History) dropOldestNonSystem() bool {
	for i := range h.messages {
		if h.messages[i].Role != llm.RoleSystem {
			h.messages = append(h.messages[:i], h.messages[i+1:]...)
			return true
		}
	}
	return false
}
