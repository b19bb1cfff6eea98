// Package metrics provides Prometheus instrumentation for provider calls,
// tool executions, and agent runs.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/llmerrors"
)

// Recorder holds the metric families for one agent process.
type Recorder struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolExecutions  *prometheus.CounterVec
	agentRuns       *prometheus.CounterVec
	iterations      prometheus.Histogram
}

// NewRecorder registers the metric families on reg. Pass
// prometheus.DefaultRegisterer for process-wide metrics or a fresh registry
// in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total LLM completion requests by provider, model, status, and error type.",
		}, []string{"provider", "model", "status", "error_type"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request latency in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider", "model"}),
		toolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_executions_total",
			Help: "Total tool executions by tool name and status.",
		}, []string{"tool", "status"}),
		agentRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_runs_total",
			Help: "Total agent runs by outcome (completed, budget_exhausted, error).",
		}, []string{"outcome"}),
		iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_iterations_per_run",
			Help:    "Reasoning iterations consumed per agent run.",
			Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
		}),
	}
}

// RecordRequest records one completion request outcome.
func (r *Recorder) RecordRequest(provider, model string, err error, duration time.Duration) {
	status := "success"
	errorType := ""
	if err != nil {
		status = "error"
		errorType = llmerrors.TypeOf(err).String()
	}
	r.requests.WithLabelValues(provider, model, status, errorType).Inc()
	r.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordToolExecution records one tool invocation outcome.
func (r *Recorder) RecordToolExecution(tool string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	r.toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordRun records a completed agent run and the iterations it consumed.
func (r *Recorder) RecordRun(outcome string, iterations int) {
	r.agentRuns.WithLabelValues(outcome).Inc()
	r.iterations.Observe(float64(iterations))
}

// Middleware instruments Chat and Stream calls on a provider. The stream
// request is counted when the channel is obtained; per-chunk accounting is
// intentionally out of scope.
func Middleware(provider string, rec *Recorder) llm.Middleware {
	return func(next llm.Provider) llm.Provider {
		return llm.WrapProvider(
			func(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
				start := time.Now()
				msg, err := next.Chat(ctx, req)
				rec.RecordRequest(provider, next.ModelName(), err, time.Since(start))
				return msg, err
			},
			func(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				ch, err := next.Stream(ctx, req)
				rec.RecordRequest(provider, next.ModelName(), err, time.Since(start))
				return ch, err
			},
			next.ModelName,
		)
	}
}
