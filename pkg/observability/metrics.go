// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides process-wide Prometheus metrics and
// OpenTelemetry tracing for the activity layer and MCP subsystem, grounded
// on kadirpekel-hector's pkg/observability (metrics.go/tracer.go), trimmed
// to the concerns this engine actually has: no HTTP or session metrics
// (those back hector's REST surface, out of scope per spec §1), but
// agent/LLM/tool/MCP/retrieval metrics all have a home here.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig controls whether metrics are collected at all.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// SetDefaults fills in the namespace when unset.
func (c *MetricsConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "agentcore"
	}
}

// Metrics collects Prometheus counters/histograms for one process's
// activity layer. A nil *Metrics is valid and every Record* method is a
// no-op on it, so callers can wire metrics optionally.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	agentCalls        *prometheus.CounterVec
	agentCallDuration *prometheus.HistogramVec
	agentErrors       *prometheus.CounterVec

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	retrievalSearches *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	retrievalResults  *prometheus.HistogramVec

	mcpCalls        *prometheus.CounterVec
	mcpCallDuration *prometheus.HistogramVec
	mcpErrors       *prometheus.CounterVec
	mcpServersUp    *prometheus.GaugeVec

	orchestratorChildCalls   *prometheus.CounterVec
	orchestratorCircuitState *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance, or returns (nil, nil) when
// disabled — matching hector's "metrics are an optional add-on" contract.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{config: cfg, registry: prometheus.NewRegistry()}
	m.initAgentMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initRetrievalMetrics()
	m.initMCPMetrics()
	m.initOrchestratorMetrics()
	return m, nil
}

func (m *Metrics) initAgentMetrics() {
	m.agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "invocations_total",
		Help: "Total number of agent invocations",
	}, []string{"agent_kind"})
	m.agentCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "invocation_duration_seconds",
		Help: "Agent invocation duration in seconds", Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"agent_kind"})
	m.agentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "errors_total",
		Help: "Total number of agent invocation errors",
	}, []string{"agent_kind", "error_type"})
	m.registry.MustRegister(m.agentCalls, m.agentCallDuration, m.agentErrors)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of LLM completion calls",
	}, []string{"provider"})
	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help: "LLM completion call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})
	m.llmTokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_prompt_total",
		Help: "Total number of prompt tokens consumed",
	}, []string{"provider"})
	m.llmTokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_completion_total",
		Help: "Total number of completion tokens generated",
	}, []string{"provider"})
	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM call errors",
	}, []string{"provider", "error_type"})
	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool_name"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool execution duration in seconds", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"tool_name"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool execution errors",
	}, []string{"tool_name"})
	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initRetrievalMetrics() {
	m.retrievalSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "searches_total",
		Help: "Total number of knowledge-base searches",
	}, []string{"collection"})
	m.retrievalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "search_duration_seconds",
		Help: "Knowledge-base search duration in seconds", Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"collection"})
	m.retrievalResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "result_count",
		Help: "Number of documents returned by a search", Buckets: prometheus.LinearBuckets(0, 2, 10),
	}, []string{"collection"})
	m.registry.MustRegister(m.retrievalSearches, m.retrievalDuration, m.retrievalResults)
}

func (m *Metrics) initMCPMetrics() {
	m.mcpCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "mcp", Name: "calls_total",
		Help: "Total number of MCP tool calls",
	}, []string{"server_id", "tool_name"})
	m.mcpCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "mcp", Name: "call_duration_seconds",
		Help: "MCP tool call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"server_id", "tool_name"})
	m.mcpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "mcp", Name: "errors_total",
		Help: "Total number of MCP tool call errors",
	}, []string{"server_id", "tool_name"})
	m.mcpServersUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.config.Namespace, Subsystem: "mcp", Name: "server_active",
		Help: "1 if the MCP server is active, 0 otherwise",
	}, []string{"server_id"})
	m.registry.MustRegister(m.mcpCalls, m.mcpCallDuration, m.mcpErrors, m.mcpServersUp)
}

func (m *Metrics) initOrchestratorMetrics() {
	m.orchestratorChildCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "orchestrator", Name: "child_calls_total",
		Help: "Total number of child-agent invocations made by orchestrators",
	}, []string{"child_id", "success"})
	m.orchestratorCircuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.config.Namespace, Subsystem: "orchestrator", Name: "circuit_state",
		Help: "Circuit breaker state per child agent (0=closed, 1=half-open, 2=open)",
	}, []string{"child_id"})
	m.registry.MustRegister(m.orchestratorChildCalls, m.orchestratorCircuitState)
}

// RecordAgentCall records one agent invocation's outcome and duration.
func (m *Metrics) RecordAgentCall(agentKind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.agentCalls.WithLabelValues(agentKind).Inc()
	m.agentCallDuration.WithLabelValues(agentKind).Observe(duration.Seconds())
}

// RecordAgentError records an agent invocation failure.
func (m *Metrics) RecordAgentError(agentKind, errorType string) {
	if m == nil {
		return
	}
	m.agentErrors.WithLabelValues(agentKind, errorType).Inc()
}

// RecordLLMCall records one LLM completion call.
func (m *Metrics) RecordLLMCall(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider).Inc()
	m.llmCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLLMTokens records prompt/completion token usage.
func (m *Metrics) RecordLLMTokens(provider string, prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokensInput.WithLabelValues(provider).Add(float64(prompt))
	m.llmTokensOutput.WithLabelValues(provider).Add(float64(completion))
}

// RecordLLMError records an LLM call error.
func (m *Metrics) RecordLLMError(provider, errorType string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
	if !success {
		m.toolErrors.WithLabelValues(toolName).Inc()
	}
}

// RecordRetrieval records one knowledge-base search.
func (m *Metrics) RecordRetrieval(collection string, duration time.Duration, resultCount int) {
	if m == nil {
		return
	}
	m.retrievalSearches.WithLabelValues(collection).Inc()
	m.retrievalDuration.WithLabelValues(collection).Observe(duration.Seconds())
	m.retrievalResults.WithLabelValues(collection).Observe(float64(resultCount))
}

// RecordMCPCall records one MCP tool call.
func (m *Metrics) RecordMCPCall(serverID, toolName string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.mcpCalls.WithLabelValues(serverID, toolName).Inc()
	m.mcpCallDuration.WithLabelValues(serverID, toolName).Observe(duration.Seconds())
	if !success {
		m.mcpErrors.WithLabelValues(serverID, toolName).Inc()
	}
}

// SetMCPServerActive reflects one server's connection state as a gauge.
func (m *Metrics) SetMCPServerActive(serverID string, active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1.0
	}
	m.mcpServersUp.WithLabelValues(serverID).Set(v)
}

// RecordOrchestratorChildCall records one child-agent invocation outcome.
func (m *Metrics) RecordOrchestratorChildCall(childID string, success bool) {
	if m == nil {
		return
	}
	label := "true"
	if !success {
		label = "false"
	}
	m.orchestratorChildCalls.WithLabelValues(childID, label).Inc()
}

// SetOrchestratorCircuitState reflects one child's circuit-breaker state
// as a gauge (0=closed, 1=half-open, 2=open). pkg/orchestrator's
// CircuitState is a string, so the caller supplies the ordinal.
func (m *Metrics) SetOrchestratorCircuitState(childID string, state int) {
	if m == nil {
		return
	}
	m.orchestratorCircuitState.WithLabelValues(childID).Set(float64(state))
}

// Handler returns an HTTP handler exposing the metrics in Prometheus text
// format; callers outside this engine's scope (spec §1) own the server
// that mounts it.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
