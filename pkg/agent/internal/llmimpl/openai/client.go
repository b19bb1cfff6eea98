// Package openai provides the array-of-functions adapter family: assistant
// tool calls arrive as {id, type:"function", function:{name, arguments}}
// entries and results travel back as role=tool messages tagged with the
// originating call id. System messages stay inline in the sequence.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llmerrors"
	"oneagent/pkg/tools"
)

// Client wraps the official OpenAI Go client to implement llm.Provider.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates an OpenAI chat-completions client (raw adapter,
// middleware applied at a higher level).
func NewClient(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// NewClientWithBaseURL creates a client pointed at an alternate
// OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)),
		model:  model,
	}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	params, err := buildParams(c.model, req)
	if err != nil {
		return llm.Message{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Message{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Message{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from chat completions API")
	}

	return parseMessage(&resp.Choices[0].Message)
}

// Stream implements llm.Provider using the chat-completions SSE transport.
// Text deltas are forwarded as they arrive; tool calls resolve on the final
// chunk once the accumulator has the complete response.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	params, err := buildParams(c.model, req)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)

	ch := make(chan llm.StreamChunk, 8)
	go func() {
		defer close(ch)

		acc := openai.ChatCompletionAccumulator{}
		var content strings.Builder

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			content.WriteString(delta)
			ch <- llm.StreamChunk{Content: content.String(), Delta: delta}
		}

		if err := stream.Err(); err != nil {
			ch <- llm.StreamChunk{Err: classifyError(err)}
			return
		}

		final := llm.StreamChunk{Content: content.String(), Final: true}
		if len(acc.Choices) > 0 {
			msg, err := parseMessage(&acc.Choices[0].Message)
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
	return c.model
}

// buildParams converts a vendor-neutral request to chat-completions params.
func buildParams(model string, req llm.ChatRequest) (openai.ChatCompletionNewParams, error) {
	messages, err := toWireMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if len(req.Tools) > 0 {
		params.Tools = toWireTools(req.Tools)
	}
	return params, nil
}

// toWireMessages converts the ordered neutral sequence to the wire shape.
// The system message stays inline; tool-role messages become role=tool
// entries carrying their tool_call_id.
func toWireMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			assistant, err := toAssistantParam(msg)
			if err != nil {
				return nil, err
			}
			result = append(result, assistant)
		case llm.RoleTool:
			if msg.ToolCallID == "" {
				return nil, fmt.Errorf("tool message at index %d missing tool_call_id", i)
			}
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return nil, fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}
	}
	return result, nil
}

// toAssistantParam converts an assistant message, re-encoding tool-call
// arguments as JSON strings the way the wire format requires.
func toAssistantParam(msg *llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}

	for i := range msg.ToolCalls {
		tc := &msg.ToolCalls[i]
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("failed to encode arguments for tool call %s: %w", tc.ID, err)
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}

// toWireTools converts tool definitions to function descriptors.
func toWireTools(defs []tools.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(tools.SchemaToMap(&def.InputSchema)),
		}))
	}
	return result
}

// parseMessage converts a wire assistant message back to the neutral model.
// Arguments are decoded from their JSON string form; a tool call whose
// arguments fail to decode poisons the whole response rather than being
// silently dropped.
func parseMessage(msg *openai.ChatCompletionMessage) (llm.Message, error) {
	out := llm.Message{Role: llm.RoleAssistant, Content: msg.Content}

	for i := range msg.ToolCalls {
		tc := &msg.ToolCalls[i]
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return llm.Message{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err,
					fmt.Sprintf("failed to decode arguments for tool call %s", tc.ID))
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return out, nil
}

// classifyError maps SDK errors to the structured taxonomy.
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
		strings.Contains(lower, "eof") || strings.Contains(lower, "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(lower, "rate") || strings.Contains(lower, "quota"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "auth") || strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication error")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified error")
	}
}
