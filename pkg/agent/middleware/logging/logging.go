// Package logging provides a provider middleware that logs request and
// response summaries without payload contents.
package logging

import (
	"context"
	"time"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llmerrors"
	"oneagent/pkg/logx"
)

// Middleware logs each Chat and Stream call: message and tool counts going
// out, duration and classified error type coming back.
func Middleware(logger *logx.Logger) llm.Middleware {
	return func(next llm.Provider) llm.Provider {
		return llm.WrapProvider(
			func(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
				logger.Debug("chat request: model=%s messages=%d tools=%d",
					next.ModelName(), len(req.Messages), len(req.Tools))

				start := time.Now()
				msg, err := next.Chat(ctx, req)
				elapsed := time.Since(start)

				if err != nil {
					logger.Warn("chat request failed after %v: type=%s err=%v",
						elapsed, llmerrors.TypeOf(err), err)
					return msg, err
				}
				logger.Info("chat response: model=%s elapsed=%v content_len=%d tool_calls=%d",
					next.ModelName(), elapsed, len(msg.Content), len(msg.ToolCalls))
				return msg, nil
			},
			func(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
				logger.Debug("stream request: model=%s messages=%d tools=%d",
					next.ModelName(), len(req.Messages), len(req.Tools))

				start := time.Now()
				ch, err := next.Stream(ctx, req)
				if err != nil {
					logger.Warn("stream request failed: type=%s err=%v", llmerrors.TypeOf(err), err)
					return nil, err
				}

				out := make(chan llm.StreamChunk, 8)
				go func() {
					defer close(out)
					for chunk := range ch {
						if chunk.Err != nil {
							logger.Warn("stream error after %v: type=%s err=%v",
								time.Since(start), llmerrors.TypeOf(chunk.Err), chunk.Err)
						} else if chunk.Final {
							logger.Info("stream complete: model=%s elapsed=%v content_len=%d tool_calls=%d",
								next.ModelName(), time.Since(start), len(chunk.Content), len(chunk.ToolCalls))
						}
						out <- chunk
					}
				}()
				return out, nil
			},
			next.ModelName,
		)
	}
}
