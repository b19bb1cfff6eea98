// Package anthropic provides the content-block adapter family: assistant
// turns are ordered lists of text and tool_use blocks, tool results travel
// back inside user-role tool_result blocks, and system content is extracted
// out of the sequence into a separate top-level field.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llmerrors"
	"oneagent/pkg/tools"
)

// Client wraps the Anthropic API client to implement llm.Provider.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient creates a Claude client (raw adapter, middleware applied at a
// higher level).
func NewClient(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	params, err := buildParams(c.model, req)
	if err != nil {
		return llm.Message{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Message{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.Message{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from messages API")
	}

	return parseContent(resp.Content)
}

// Stream implements llm.Provider using the messages streaming API. Text
// deltas are forwarded as they arrive; tool_use blocks resolve on the final
// chunk once the event accumulator holds the complete message.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	params, err := buildParams(c.model, req)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	ch := make(chan llm.StreamChunk, 8)
	go func() {
		defer close(ch)

		message := anthropic.Message{}
		var content strings.Builder

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				ch <- llm.StreamChunk{Err: llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "failed to accumulate stream event")}
				return
			}

			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					content.WriteString(deltaVariant.Text)
					ch <- llm.StreamChunk{Content: content.String(), Delta: deltaVariant.Text}
				}
			}
		}

		if err := stream.Err(); err != nil {
			ch <- llm.StreamChunk{Err: classifyError(err)}
			return
		}

		final := llm.StreamChunk{Content: content.String(), Final: true}
		if len(message.Content) > 0 {
			msg, err := parseContent(message.Content)
			if err != nil {
				ch <- llm.StreamChunk{Err: err}
				return
			}
			final.Content = msg.Content
			final.ToolCalls = msg.ToolCalls
		}
		ch <- final
	}()

	return ch, nil
}

// ModelName returns the model for this client.
func (c *Client) ModelName() string {
	return string(c.model)
}

// buildParams converts a vendor-neutral request to messages-API params.
func buildParams(model anthropic.Model, req llm.ChatRequest) (anthropic.MessageNewParams, error) {
	systemPrompt, messages, err := toWireMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toWireTools(req.Tools)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{},
		}
	}
	return params, nil
}

// wireTurn is one user/assistant turn under construction.
type wireTurn struct {
	role   anthropic.MessageParamRole
	blocks []anthropic.ContentBlockParamUnion
}

// toWireMessages converts the neutral sequence to the content-block shape.
// System content is extracted to the top-level field; tool-role messages
// become tool_result blocks on user turns; consecutive same-role turns are
// merged so the sequence keeps strict user/assistant alternation.
func toWireMessages(messages []llm.Message) (string, []anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var turns []wireTurn

	appendBlocks := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].blocks = append(turns[n-1].blocks, blocks...)
			return
		}
		turns = append(turns, wireTurn{role: role, blocks: blocks})
	}

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case llm.RoleUser:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))

		case llm.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for j := range msg.ToolCalls {
				tc := &msg.ToolCalls[j]
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: tc.Arguments,
					},
				})
			}
			if len(blocks) == 0 {
				return "", nil, fmt.Errorf("assistant message at index %d has no content or tool calls", i)
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks...)

		case llm.RoleTool:
			if msg.ToolCallID == "" {
				return "", nil, fmt.Errorf("tool message at index %d missing tool_call_id", i)
			}
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
					},
				},
			})

		default:
			return "", nil, fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}
	}

	if len(turns) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if turns[0].role != anthropic.MessageParamRoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", turns[0].role)
	}

	result := make([]anthropic.MessageParam, 0, len(turns))
	for i := range turns {
		result = append(result, anthropic.MessageParam{
			Role:    turns[i].role,
			Content: turns[i].blocks,
		})
	}
	return strings.Join(systemParts, "\n\n"), result, nil
}

// toWireTools converts tool definitions to the input_schema descriptor shape.
func toWireTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		schema := tools.SchemaToMap(&def.InputSchema)

		toolParam := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: schema["properties"],
			},
		}
		if required, ok := schema["required"].([]string); ok {
			toolParam.InputSchema.Required = required
		}
		result = append(result, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return result
}

// parseContent converts response content blocks back to the neutral model:
// text blocks concatenate in order, tool_use blocks become ToolCalls with
// their vendor-issued ids.
func parseContent(content []anthropic.ContentBlockUnion) (llm.Message, error) {
	out := llm.Message{Role: llm.RoleAssistant}
	var text strings.Builder

	for i := range content {
		block := &content[i]
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			if len(toolUse.Input) > 0 {
				if err := json.Unmarshal(toolUse.Input, &args); err != nil {
					return llm.Message{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err,
						fmt.Sprintf("failed to decode input for tool call %s", toolUse.ID))
				}
			}
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        toolUse.ID,
				Name:      toolUse.Name,
				Arguments: args,
			})
		}
	}

	out.Content = text.String()
	return out, nil
}

// classifyError maps Anthropic SDK errors to the structured taxonomy.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	errStr := err.Error()
	if code := llmerrors.ExtractStatusCode(errStr); code != 0 {
		return llmerrors.NewErrorWithStatus(llmerrors.ClassifyStatusCode(code), code, errStr)
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "connection") ||
		strings.Contains(lower, "network") || strings.Contains(lower, "eof") ||
		strings.Contains(lower, "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(lower, "rate") || strings.Contains(lower, "quota") || strings.Contains(lower, "limit"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "auth") || strings.Contains(lower, "key") || strings.Contains(lower, "unauthorized"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication error")
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "malformed") || strings.Contains(lower, "too large"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "prompt or request error")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified error")
	}
}
