package llm

import "context"

// Middleware wraps a Provider with additional behavior. Middlewares are
// composed with Chain to form a processing pipeline around a raw adapter.
type Middleware func(next Provider) Provider

// providerFunc adapts plain functions to the Provider interface.
type providerFunc struct {
	chat      func(context.Context, ChatRequest) (Message, error)
	stream    func(context.Context, ChatRequest) (<-chan StreamChunk, error)
	modelName func() string
}

func (f providerFunc) Chat(ctx context.Context, req ChatRequest) (Message, error) {
	return f.chat(ctx, req)
}

func (f providerFunc) Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	return f.stream(ctx, req)
}

func (f providerFunc) ModelName() string {
	return f.modelName()
}

// WrapProvider creates a Provider from the given function implementations.
// Helper for middleware implementations that need to wrap behavior.
func WrapProvider(
	chat func(context.Context, ChatRequest) (Message, error),
	stream func(context.Context, ChatRequest) (<-chan StreamChunk, error),
	modelName func() string,
) Provider {
	return providerFunc{chat: chat, stream: stream, modelName: modelName}
}

// Chain composes middlewares around a base Provider. Earlier middlewares are
// outermost: Chain(p, mw1, mw2) produces the call stack mw1 -> mw2 -> p.
func Chain(base Provider, middlewares ...Middleware) Provider {
	provider := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		provider = middlewares[i](provider)
	}
	return provider
}
