// Package agent implements the iterative reasoning loop: send the
// conversation to the provider, execute any requested tools, feed results
// back, and repeat until the model answers in plain text or the iteration
// budget runs out.
package agent

import (
	"context"
	"fmt"
	"time"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/middleware/metrics"
	"oneagent/pkg/history"
	"oneagent/pkg/logx"
	"oneagent/pkg/tools"
)

// MaxIterationsMessage is returned as the final answer when the iteration
// budget is exhausted before the model produces a text-only turn.
const MaxIterationsMessage = "Maximum iterations reached. Task incomplete."

// DefaultSystemPrompt is the standing instruction seeded into every new
// conversation unless overridden.
const DefaultSystemPrompt = `You are a helpful assistant with access to tools. ` +
	`Use tools when they help you answer accurately. ` +
	`When you have enough information, answer the user directly in plain text.`

// DefaultMaxIterations bounds the reasoning loop per user input.
const DefaultMaxIterations = 10

// MessageSink receives every message appended to the conversation, in order.
// Used by the CLI to persist transcripts; errors are the sink's problem.
type MessageSink func(llm.Message)

// Agent owns one conversation and drives the reasoning loop over it.
// Not safe for concurrent use; one goroutine drives one agent.
type Agent struct {
	provider       llm.Provider
	registry       *tools.Registry
	history        *history.History
	logger         *logx.Logger
	recorder       *metrics.Recorder
	sink           MessageSink
	systemPrompt   string
	maxIterations  int
	requestTimeout time.Duration
	maxTokens      int
	temperature    float32
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt overrides the default standing instructions.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithMaxIterations sets the reasoning budget per user input.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithRequestTimeout bounds each individual provider call. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Agent) { a.requestTimeout = d }
}

// WithHistoryLimit caps retained conversation messages.
func WithHistoryLimit(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.history = history.New(history.WithMaxMessages(n))
		}
	}
}

// WithMetrics attaches a recorder for run and tool-execution metrics.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(a *Agent) { a.recorder = rec }
}

// WithMessageSink attaches a callback invoked for every appended message.
func WithMessageSink(sink MessageSink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithGeneration overrides per-request generation parameters.
func WithGeneration(maxTokens int, temperature float32) Option {
	return func(a *Agent) {
		a.maxTokens = maxTokens
		a.temperature = temperature
	}
}

// New creates an agent and seeds the conversation with the system prompt.
func New(provider llm.Provider, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		provider:      provider,
		registry:      registry,
		history:       history.New(),
		logger:        logx.NewLogger("agent"),
		systemPrompt:  DefaultSystemPrompt,
		maxIterations: DefaultMaxIterations,
		maxTokens:     llm.DefaultMaxTokens,
		temperature:   llm.DefaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.append(llm.NewSystemMessage(a.systemPrompt))
	return a
}

// Provider returns the current provider.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// SetProvider swaps the provider mid-conversation. The history carries over;
// the neutral message model makes it portable across adapter families.
func (a *Agent) SetProvider(p llm.Provider) {
	a.provider = p
}

// AddTool registers a tool for subsequent iterations.
func (a *Agent) AddTool(t tools.Tool) error {
	return a.registry.Register(t)
}

// RemoveTool unregisters a tool by name.
func (a *Agent) RemoveTool(name string) bool {
	return a.registry.Remove(name)
}

// Messages returns the conversation so far.
func (a *Agent) Messages() []llm.Message {
	return a.history.Messages()
}

// Reset discards the conversation, keeping the system prompt.
func (a *Agent) Reset() {
	a.history.Reset()
}

// Run processes one user input to completion and returns the final text
// answer. Tool calls are executed between iterations; a text-only response
// ends the loop. When the budget runs out the sentinel answer is returned
// with a nil error; budget exhaustion is an outcome, not a failure.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	a.append(llm.NewUserMessage(input))

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		msg, err := a.complete(ctx)
		if err != nil {
			a.recordRun("error", iteration)
			return "", fmt.Errorf("completion failed at iteration %d: %w", iteration, err)
		}
		a.append(msg)

		if msg.ToolCalls == nil {
			a.recordRun("completed", iteration)
			return msg.Content, nil
		}
		a.executeToolCalls(ctx, msg.ToolCalls)
	}

	a.logger.Warn("iteration budget (%d) exhausted", a.maxIterations)
	a.recordRun("budget_exhausted", a.maxIterations)
	return MaxIterationsMessage, nil
}

// Stream processes one user input like Run but delivers incremental chunks.
// Chunks from every iteration flow through the returned channel; the channel
// closes when the loop ends. Callers read the final answer from the last
// Final chunk.
func (a *Agent) Stream(ctx context.Context, input string) (<-chan llm.StreamChunk, error) {
	a.append(llm.NewUserMessage(input))

	out := make(chan llm.StreamChunk, 8)
	go func() {
		defer close(out)

		for iteration := 1; iteration <= a.maxIterations; iteration++ {
			final, ok := a.streamOnce(ctx, out, iteration)
			if !ok {
				return
			}

			msg := llm.Message{
				Role:      llm.RoleAssistant,
				Content:   final.Content,
				ToolCalls: final.ToolCalls,
			}
			a.append(msg)

			if msg.ToolCalls == nil {
				a.recordRun("completed", iteration)
				return
			}
			a.executeToolCalls(ctx, msg.ToolCalls)
		}

		a.logger.Warn("iteration budget (%d) exhausted", a.maxIterations)
		a.recordRun("budget_exhausted", a.maxIterations)
		out <- llm.StreamChunk{
			Content: MaxIterationsMessage,
			Delta:   MaxIterationsMessage,
			Final:   true,
		}
	}()
	return out, nil
}

// streamOnce runs one provider streaming call, forwarding chunks to out.
// Returns the terminal chunk, or ok=false if the stream errored (the error
// chunk has already been forwarded).
func (a *Agent) streamOnce(ctx context.Context, out chan<- llm.StreamChunk, iteration int) (llm.StreamChunk, bool) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	ch, err := a.provider.Stream(callCtx, a.request())
	if err != nil {
		a.recordRun("error", iteration)
		out <- llm.StreamChunk{Err: err}
		return llm.StreamChunk{}, false
	}

	var final llm.StreamChunk
	sawFinal := false
	for chunk := range ch {
		if chunk.Err != nil {
			a.recordRun("error", iteration)
			out <- chunk
			return llm.StreamChunk{}, false
		}
		if chunk.Final {
			final = chunk
			sawFinal = true
			// Terminal chunks with tool calls stay internal to the loop;
			// text-only finals are the answer and go to the caller.
			if chunk.ToolCalls == nil {
				out <- chunk
			}
			continue
		}
		out <- chunk
	}

	if !sawFinal {
		a.recordRun("error", iteration)
		out <- llm.StreamChunk{Err: fmt.Errorf("stream ended without a terminal chunk")}
		return llm.StreamChunk{}, false
	}
	return final, true
}

// executeToolCalls runs every requested call in order and appends one
// tool-role result message per call. Tool failure never aborts the loop;
// the error text goes back to the model as the observation.
func (a *Agent) executeToolCalls(ctx context.Context, calls []llm.ToolCall) {
	for i := range calls {
		call := &calls[i]
		a.logger.Info("executing tool %s (%s)", call.Name, call.ID)

		result := a.registry.Execute(ctx, call.Name, call.Arguments)
		if a.recorder != nil {
			a.recorder.RecordToolExecution(call.Name, result.Success)
		}
		a.append(llm.NewToolResultMessage(call.ID, result.Output()))
	}
}

// complete performs one bounded provider call.
func (a *Agent) complete(ctx context.Context) (llm.Message, error) {
	callCtx, cancel := a.callContext(ctx)
	defer cancel()
	return a.provider.Chat(callCtx, a.request())
}

func (a *Agent) request() llm.ChatRequest {
	req := llm.NewChatRequest(a.history.Messages(), a.registry.List())
	req.MaxTokens = a.maxTokens
	req.Temperature = a.temperature
	return req
}

func (a *Agent) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.requestTimeout > 0 {
		return context.WithTimeout(ctx, a.requestTimeout)
	}
	return context.WithCancel(ctx)
}

func (a *Agent) append(msg llm.Message) {
	a.history.Append(msg)
	if a.sink != nil {
		a.sink(msg)
	}
}

func (a *Agent) recordRun(outcome string, iterations int) {
	if a.recorder != nil {
		a.recorder.RecordRun(outcome, iterations)
	}
}
