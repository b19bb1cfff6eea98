package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagMiddleware(tag string, order *[]string) Middleware {
	return func(next Provider) Provider {
		return WrapProvider(
			func(ctx context.Context, req ChatRequest) (Message, error) {
				*order = append(*order, tag)
				return next.Chat(ctx, req)
			},
			next.Stream,
			next.ModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	base := WrapProvider(
		func(context.Context, ChatRequest) (Message, error) {
			order = append(order, "base")
			return Message{Role: RoleAssistant, Content: "ok"}, nil
		},
		func(context.Context, ChatRequest) (<-chan StreamChunk, error) { return nil, nil },
		func() string { return "base-model" },
	)

	chained := Chain(base, tagMiddleware("outer", &order), tagMiddleware("inner", &order))
	msg, err := chained.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
	assert.Equal(t, "base-model", chained.ModelName())
}

func TestChainEmpty(t *testing.T) {
	base := WrapProvider(
		func(context.Context, ChatRequest) (Message, error) {
			return Message{Content: "plain"}, nil
		},
		func(context.Context, ChatRequest) (<-chan StreamChunk, error) { return nil, nil },
		func() string { return "m" },
	)

	chained := Chain(base)
	msg, err := chained.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "plain", msg.Content)
	assert.Equal(t, "m", chained.ModelName())
}
