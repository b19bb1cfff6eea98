// Package ollama provides an adapter for local models served by the Ollama
// runtime. Ollama speaks the array-of-functions tool shape natively and
// delivers incremental chunks through a chat callback.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llmerrors"
	"oneagent/pkg/tools"
)

// Client wraps the Ollama API client to implement llm.Provider.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates an Ollama client. hostURL is the server URL, e.g.
// "http://localhost:11434"; invalid URLs fall back to the default host.
func NewClient(hostURL, model string) *Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}
	return &Client{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	chatReq, err := buildRequest(c.model, req, false)
	if err != nil {
		return llm.Message{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	var response api.ChatResponse
	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.Message{}, classifyError(err)
	}

	out := llm.Message{Role: llm.RoleAssistant, Content: response.Message.Content}
	if len(response.Message.ToolCalls) > 0 {
		out.ToolCalls = fromWireToolCalls(response.Message.ToolCalls)
	}
	return out, nil
}

// Stream implements llm.Provider. Ollama delivers chunks through the chat
// callback; tool calls typically arrive on the terminal chunk.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	chatReq, err := buildRequest(c.model, req, true)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, err.Error())
	}

	ch := make(chan llm.StreamChunk, 8)
	go func() {
		defer close(ch)

		var content strings.Builder
		var toolCalls []llm.ToolCall

		err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if len(resp.Message.ToolCalls) > 0 {
				toolCalls = append(toolCalls, fromWireToolCalls(resp.Message.ToolCalls)...)
			}
			if resp.Message.Content != "" {
				content.WriteString(resp.Message.Content)
				if !resp.Done {
					ch <- llm.StreamChunk{Content: content.String(), Delta: resp.Message.Content}
				}
			}
			if resp.Done {
				ch <- llm.StreamChunk{
					Content:   content.String(),
					Delta:     resp.Message.Content,
					ToolCalls: toolCalls,
					Final:     true,
				}
			}
			return nil
		})
		if err != nil {
			ch <- llm.StreamChunk{Err: classifyError(err)}
		}
	}()

	return ch, nil
}

// ModelName returns the model for this client.
func (c *Client) ModelName() string {
	return c.model
}

// buildRequest converts a vendor-neutral request to an Ollama chat request.
func buildRequest(model string, req llm.ChatRequest, stream bool) (*api.ChatRequest, error) {
	messages, err := toWireMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": maxTokens,
		},
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toWireTools(req.Tools)
	}
	return chatReq, nil
}

// toWireMessages converts the neutral sequence to Ollama's message format.
// System messages stay inline; tool-role messages keep their call id.
func toWireMessages(messages []llm.Message) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		wireMsg := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == llm.RoleTool {
			wireMsg.ToolCallID = msg.ToolCallID
		}
		if len(msg.ToolCalls) > 0 {
			wireMsg.ToolCalls = make([]api.ToolCall, len(msg.ToolCalls))
			for j := range msg.ToolCalls {
				tc := &msg.ToolCalls[j]
				wireMsg.ToolCalls[j] = api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: api.ToolCallFunctionArguments(tc.Arguments),
					},
				}
			}
		}
		result = append(result, wireMsg)
	}
	return result, nil
}

// toWireTools converts tool definitions to Ollama's tool format.
func toWireTools(defs []tools.ToolDefinition) api.Tools {
	wireTools := make(api.Tools, len(defs))
	for i := range defs {
		def := &defs[i]

		properties := make(map[string]api.ToolProperty)
		for name := range def.InputSchema.Properties {
			prop := def.InputSchema.Properties[name]
			properties[name] = toWireProperty(&prop)
		}

		schemaType := def.InputSchema.Type
		if schemaType == "" {
			schemaType = "object"
		}

		wireTools[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       schemaType,
					Properties: properties,
					Required:   def.InputSchema.Required,
				},
			},
		}
	}
	return wireTools
}

func toWireProperty(prop *tools.Property) api.ToolProperty {
	wireProp := api.ToolProperty{
		Type:        api.PropertyType{prop.Type},
		Description: prop.Description,
	}

	if len(prop.Enum) > 0 {
		enumVals := make([]any, len(prop.Enum))
		for i, v := range prop.Enum {
			enumVals[i] = v
		}
		wireProp.Enum = enumVals
	}

	if prop.Items != nil {
		wireProp.Items = toWireProperty(prop.Items)
	}

	if len(prop.Properties) > 0 {
		nested := make(map[string]api.ToolProperty)
		for name, child := range prop.Properties {
			if child != nil {
				nested[name] = toWireProperty(child)
			}
		}
		wireProp.Items = map[string]any{
			"type":       "object",
			"properties": nested,
		}
	}

	return wireProp
}

// fromWireToolCalls extracts tool calls from an Ollama response, synthesizing
// ids in arrival order when the runtime does not provide them.
func fromWireToolCalls(calls []api.ToolCall) []llm.ToolCall {
	result := make([]llm.ToolCall, len(calls))
	for i := range calls {
		call := &calls[i]
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		result[i] = llm.ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: map[string]any(call.Function.Arguments),
		}
	}
	return result
}

// classifyError converts Ollama errors to the structured taxonomy.
func classifyError(err error) *llmerrors.Error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "ollama server not reachable")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "ollama model not found")
	case strings.Contains(errStr, "context canceled"), strings.Contains(errStr, "timeout"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled or timed out")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "ollama API error")
	}
}
