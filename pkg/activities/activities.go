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

// Package activities implements the idempotent, retry-safe units the
// control loop invokes (spec §4.9): llm_completion, check_input_safety,
// check_output_safety, retrieve_knowledge, execute_tool,
// get_tool_definitions, execute_agent_as_tool, execute_simple_agent,
// validate_action, detect_loop, check_hallucination, sanitize_input,
// sanitize_tool_result.
//
// Grounded on original_source/src/activities/__init__.py's activity
// catalog (the package's public surface mirrors that module's exports)
// and on odvcencio-buckley's pkg/coordination/reliability.RetryStrategy for
// the exponential-backoff-with-jitter shape, built here on top of
// github.com/cenkalti/backoff/v4 (a genuine hector dependency) rather than
// reproducing that shape by hand.
package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/knowledge"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/observability"
	"github.com/aradaai/agentcore/pkg/safety"
	"github.com/aradaai/agentcore/pkg/tool"
	"github.com/aradaai/agentcore/pkg/validators"
)

var tracer = observability.GetTracer("agentcore/activities")

// Retry policy defaults, spec §4.9.
const (
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 60 * time.Second
	retryMaxAttempts     = 3

	TimeoutKnowledge    = 30 * time.Second
	TimeoutLLM          = 120 * time.Second
	TimeoutTool         = 30 * time.Second
	TimeoutChildAgent   = 300 * time.Second
)

// AgentRunner resolves and runs a child agent by id. Implemented by
// pkg/agent's dispatcher and injected via SetAgentRunner; this indirection
// is what lets the orchestrator-calls-children-calls-orchestrator cycle
// (spec §9) resolve at call time instead of as a Go import cycle.
type AgentRunner interface {
	RunAgent(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error)
}

// Activities bundles every external collaborator the control loop needs,
// each wrapped with the retry/timeout policy appropriate to its kind.
type Activities struct {
	LLM       *llm.Registry
	Tools     *tool.Registry
	MCP       *mcp.Manager
	Knowledge knowledge.Client

	// ValidatorProvider is the small, fast model validator activities call
	// (spec §4.8: "a small fast model, temperature 0").
	ValidatorProvider llm.Provider

	// SanitizeExternalResults, when true, runs sanitize_tool_result on
	// every tool result whose provenance is MCP or otherwise unknown
	// (spec §4.10 cross-cutting hooks). Registry-native tools are never
	// sanitized this way.
	SanitizeExternalResults bool

	// Metrics is optional; a nil value disables all recording (every
	// Record* method on *observability.Metrics is a no-op on a nil
	// receiver), so callers that don't care about Prometheus output can
	// leave it unset.
	Metrics *observability.Metrics

	agentRunner AgentRunner
}

// SetMetrics wires a Prometheus metrics collector into the activity layer.
func (a *Activities) SetMetrics(m *observability.Metrics) {
	a.Metrics = m
}

// New constructs an Activities bundle. SetAgentRunner must be called
// before execute_agent_as_tool or execute_simple_agent are exercised.
func New(llmRegistry *llm.Registry, tools *tool.Registry, mcpMgr *mcp.Manager, kb knowledge.Client, validatorProvider llm.Provider) *Activities {
	return &Activities{
		LLM:                     llmRegistry,
		Tools:                   tools,
		MCP:                     mcpMgr,
		Knowledge:               kb,
		ValidatorProvider:       validatorProvider,
		SanitizeExternalResults: true,
	}
}

// SetAgentRunner wires the callback used to resolve "agent:<id>" tool
// calls and the execute_simple_agent / execute_agent_as_tool activities.
func (a *Activities) SetAgentRunner(r AgentRunner) {
	a.agentRunner = r
}

func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not elapsed wall time
	// WithMaxRetries counts retries after the first attempt.
	return backoff.WithContext(backoff.WithMaxRetries(b, retryMaxAttempts-1), ctx)
}

// withRetry runs fn, retrying per the default policy only when the
// returned error is Retryable (transport/5xx/timeout), per spec §4.9/§7.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var out T
	op := func() error {
		var err error
		out, err = fn()
		if err != nil && !engerrors.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, retryPolicy(ctx))
	if err != nil {
		if pe, ok := err.(*backoff.PermanentError); ok {
			return out, pe.Err
		}
		return out, err
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

// errorTypeLabel turns an error into a low-cardinality metric label: the
// engine error kind when available, else "unknown".
func errorTypeLabel(err error) string {
	if kind, ok := engerrors.AsKind(err); ok {
		return string(kind)
	}
	return "unknown"
}

// LLMCompletion runs one chat-completion call through the named provider,
// retrying transport failures per the activity's retry policy.
func (a *Activities) LLMCompletion(ctx context.Context, providerName string, req llm.Request) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "llm_completion", trace.WithAttributes(attribute.String("llm.provider", providerName)))
	defer span.End()

	ctx, cancel := withTimeout(ctx, TimeoutLLM)
	defer cancel()

	provider, err := a.LLM.Get(providerName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.Metrics.RecordLLMError(providerName, "config_invalid")
		return nil, err // ConfigInvalid, not retryable
	}

	start := time.Now()
	resp, err := withRetry(ctx, func() (*llm.Response, error) {
		return provider.Complete(ctx, req)
	})
	a.Metrics.RecordLLMCall(providerName, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.Metrics.RecordLLMError(providerName, errorTypeLabel(err))
		return resp, err
	}
	a.Metrics.RecordLLMTokens(providerName, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

// CheckInputSafety runs the input-side safety gate. Pure computation; no
// retry needed.
func (a *Activities) CheckInputSafety(req safety.Request) safety.Result {
	return safety.CheckInput(req)
}

// CheckOutputSafety runs the output-side safety gate.
func (a *Activities) CheckOutputSafety(req safety.Request) safety.Result {
	return safety.CheckOutput(req)
}

// RetrieveKnowledge runs one top-k search, retrying transport failures.
func (a *Activities) RetrieveKnowledge(ctx context.Context, collection, query string, topK int, scoreThreshold *float64) ([]knowledge.Source, error) {
	ctx, span := tracer.Start(ctx, "retrieve_knowledge", trace.WithAttributes(attribute.String("knowledge.collection", collection)))
	defer span.End()

	if a.Knowledge == nil {
		err := engerrors.New(engerrors.KindConfigInvalid, "activities: no knowledge client configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, TimeoutKnowledge)
	defer cancel()

	start := time.Now()
	docs, err := withRetry(ctx, func() ([]knowledge.Source, error) {
		return a.Knowledge.Search(ctx, collection, query, topK, scoreThreshold)
	})
	a.Metrics.RecordRetrieval(collection, time.Since(start), len(docs))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return docs, err
}

// GetToolDefinitions builds provider-native schemas for the given tool
// bindings, resolving "mcp:<template>:<tool>" names against the MCP
// manager and skipping disabled bindings.
func (a *Activities) GetToolDefinitions(bindings []config.ToolBinding) ([]tool.Schema, error) {
	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled {
			continue
		}
		resolved, err := a.resolveToolName(b.ToolID)
		if err != nil {
			continue // unresolvable MCP template binding: omit from schemas
		}
		names = append(names, resolved)
	}
	return a.Tools.BuildSchemas(names), nil
}

// resolveToolName rewrites "mcp:<template>:<tool>" to "<server_id>:<tool>"
// per spec §4.2; all other names pass through unchanged.
func (a *Activities) resolveToolName(name string) (string, error) {
	if !strings.HasPrefix(name, "mcp:") {
		return name, nil
	}
	rest := strings.TrimPrefix(name, "mcp:")
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return "", engerrors.New(engerrors.KindToolUnknown, fmt.Sprintf("activities: malformed mcp tool name %q", name))
	}
	template, toolName := parts[0], parts[1]
	if a.MCP == nil {
		return "", engerrors.New(engerrors.KindToolUnknown, "activities: no mcp manager configured")
	}
	serverID, err := a.MCP.ResolveTemplate(template)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", serverID, toolName), nil
}

// ExecuteTool dispatches one tool call by name prefix (spec §4.2):
// "agent:<id>" routes to child-agent execution, "mcp:<template>:<tool>"
// resolves to the connected server's canonical name, everything else goes
// straight to the tool registry. Failures are reported as a failed
// tool.Result, never as a Go error, per spec §7's "workflow body handles
// tool-call failures locally" propagation policy.
func (a *Activities) ExecuteTool(ctx context.Context, call tool.Call, inv *config.Invocation) tool.Result {
	if strings.HasPrefix(call.Name, "agent:") {
		return a.ExecuteAgentAsTool(ctx, strings.TrimPrefix(call.Name, "agent:"), call, inv)
	}

	ctx, span := tracer.Start(ctx, "execute_tool", trace.WithAttributes(attribute.String("tool.name", call.Name)))
	defer span.End()

	resolved, err := a.resolveToolName(call.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.Metrics.RecordToolCall(call.Name, 0, false)
		return tool.Result{Success: false, Error: err.Error()}
	}

	ctx, cancel := withTimeout(ctx, TimeoutTool)
	defer cancel()

	start := time.Now()
	result, err := withRetry(ctx, func() (tool.Result, error) {
		r := a.Tools.Execute(ctx, resolved, call.Arguments)
		if !r.Success {
			// ToolExecutionError is not retried by policy (not Transport/
			// Timeout); surface the failed Result as-is.
			return r, nil
		}
		return r, nil
	})
	a.Metrics.RecordToolCall(call.Name, time.Since(start), err == nil && result.Success)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return tool.Result{Success: false, Error: err.Error()}
	}
	return result
}

// ExecuteAgentAsTool runs a child agent invocation through the injected
// AgentRunner, translating its response into a tool.Result the orchestrator
// (or any tool-kind caller) can feed back to the LLM. Circuit-breaking is
// the orchestrator submodule's responsibility (spec §4.11), not this
// activity's; this method always attempts the call.
func (a *Activities) ExecuteAgentAsTool(ctx context.Context, agentID string, call tool.Call, inv *config.Invocation) tool.Result {
	if a.agentRunner == nil {
		return tool.Result{Success: false, Error: "activities: no agent runner configured"}
	}

	query, _ := call.Arguments["query"].(string)
	childInv := inv.Child(query, call.ID)
	if ctxStr, ok := call.Arguments["context"].(string); ok && ctxStr != "" {
		childInv.Metadata = mergeMetadata(childInv.Metadata, map[string]any{"context": ctxStr})
	}

	ctx, cancel := withTimeout(ctx, TimeoutChildAgent)
	defer cancel()

	resp, err := a.agentRunner.RunAgent(ctx, agentID, childInv)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}
	}
	return tool.Result{Success: true, Output: resp}
}

// ExecuteSimpleAgent runs a child agent invocation directly (no tool-call
// envelope), used by hybrid-mode orchestration's direct routing.
func (a *Activities) ExecuteSimpleAgent(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error) {
	if a.agentRunner == nil {
		return nil, engerrors.New(engerrors.KindConfigInvalid, "activities: no agent runner configured")
	}
	ctx, cancel := withTimeout(ctx, TimeoutChildAgent)
	defer cancel()
	return a.agentRunner.RunAgent(ctx, agentID, inv)
}

// ValidateAction, DetectLoop, CheckHallucination, SanitizeInput and
// SanitizeToolResult thinly wrap pkg/validators with the shared validator
// provider; they are pure LLM calls with no additional retry (the
// validator package already degrades to a conservative default on
// malformed output, per spec §4.8).

func (a *Activities) ValidateAction(ctx context.Context, agentDescription, userInput, agentResponse string, tools []validators.AvailableTool, calls []validators.MadeToolCall) validators.ActionResult {
	return validators.ValidateAction(ctx, a.ValidatorProvider, agentDescription, userInput, agentResponse, tools, calls)
}

func (a *Activities) DetectLoop(ctx context.Context, history []llm.Message, currentResponse string) validators.LoopResult {
	return validators.DetectLoop(ctx, a.ValidatorProvider, history, currentResponse)
}

func (a *Activities) CheckHallucination(ctx context.Context, agentResponse, retrievedContext, userQuery string, toolResults []validators.ToolResultSummary) validators.HallucinationResult {
	return validators.CheckHallucination(ctx, a.ValidatorProvider, agentResponse, retrievedContext, userQuery, toolResults)
}

func (a *Activities) SanitizeInput(ctx context.Context, rawInput string) validators.SanitizeResult {
	return validators.SanitizeInput(ctx, a.ValidatorProvider, rawInput)
}

func (a *Activities) SanitizeToolResult(ctx context.Context, toolName, rawOutput string) string {
	return validators.SanitizeToolResult(ctx, a.ValidatorProvider, toolName, rawOutput)
}

// IsExternalToolProvenance reports whether a tool name identifies an
// MCP-backed or otherwise non-registry-native tool, for the
// sanitize_tool_result cross-cutting hook (spec §4.10).
func IsExternalToolProvenance(name string) bool {
	return strings.Contains(name, ":") || strings.HasPrefix(name, "mcp:")
}

func mergeMetadata(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
