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

// Package orchestrator implements the orchestrator-kind agent's three
// modes (llm-driven, workflow, hybrid), child-agent fan-out bounded by a
// concurrency semaphore, per-child circuit breaking, and the five
// aggregation strategies (spec §4.11).
//
// Grounded on original_source/src/agents/types/orchestrator_agent.py (by
// far the largest original file) for the CircuitBreaker/fan-out/aggregation
// semantics, and on hector's pkg/agent/workflowagent/parallel.go for the
// bounded-semaphore fan-out shape — golang.org/x/sync's semaphore and
// errgroup packages (real dependencies of both hector and
// odvcencio-buckley) implement the bound instead of a hand-rolled
// worker pool.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/tool"
)

// ChildInvoker runs one child-agent invocation and returns its response.
// Implemented by whoever owns agent resolution (pkg/agent's dispatcher);
// the orchestrator only ever holds a reference to this callback, which is
// how spec §9's "cyclic references...resolved at call time" is satisfied
// without an import cycle between pkg/orchestrator and pkg/agent.
type ChildInvoker func(ctx context.Context, agentID string, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error)

// ToolExecutor runs one non-agent tool call.
type ToolExecutor func(ctx context.Context, call tool.Call, inv *config.Invocation) tool.Result

// Orchestrator drives one orchestrator-kind agent's child coordination.
// One instance is owned per agent configuration (its circuit breaker state
// must not leak across tenants, spec §5).
type Orchestrator struct {
	cfg       *config.OrchestratorBinding
	llmProvider llm.Provider
	childAgents map[string]bool // allowed child ids, for quick membership tests

	invoker      ChildInvoker
	toolExecutor ToolExecutor
	otherTools   []tool.Schema

	breaker *CircuitBreaker
	sink    stream.Sink

	// sameAgentCount and lastCalledAgent track consecutive identical
	// agent:<id> calls for max_same_agent_calls suppression.
	mu              sync.Mutex
	sameAgentCount  map[string]int
	lastCalledAgent string
}

// New constructs an Orchestrator bound to one orchestrator binding.
func New(cfg *config.OrchestratorBinding, provider llm.Provider, invoker ChildInvoker, toolExecutor ToolExecutor, otherTools []tool.Schema, sink stream.Sink) *Orchestrator {
	allowed := make(map[string]bool, len(cfg.ChildAgents))
	for _, id := range cfg.ChildAgents {
		allowed[id] = true
	}
	if sink == nil {
		sink = noopSink{}
	}
	return &Orchestrator{
		cfg:            cfg,
		llmProvider:    provider,
		childAgents:    allowed,
		invoker:        invoker,
		toolExecutor:   toolExecutor,
		otherTools:     otherTools,
		breaker:        NewCircuitBreaker(),
		sink:           sink,
		sameAgentCount: make(map[string]int),
	}
}

type noopSink struct{}

func (noopSink) Emit(stream.Event) {}

// agentToolSchema builds the "agent:<id>" tool schema the orchestrator LLM
// sees for one child, per spec §4.11's {query (required), context} shape.
func agentToolSchema(agentID string) tool.Schema {
	return tool.Schema{
		Name:        tool.Sanitize("agent:" + agentID),
		Description: fmt.Sprintf("Delegate to child agent %q", agentID),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string", "description": "The request to send the child agent"},
				"context": map[string]any{"type": "string", "description": "Additional context for the child agent"},
			},
			"required": []string{"query"},
		},
	}
}

// availableAgentSchemas returns schemas for every child agent not
// currently suppressed by the max_same_agent_calls window (spec §4.11
// "Loop suppression").
func (o *Orchestrator) availableAgentSchemas() []tool.Schema {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]tool.Schema, 0, len(o.cfg.ChildAgents))
	limit := o.cfg.MaxSameAgentCalls
	if limit <= 0 {
		limit = 3
	}
	for _, id := range o.cfg.ChildAgents {
		if o.sameAgentCount[id] >= limit {
			continue
		}
		out = append(out, agentToolSchema(id))
	}
	return out
}

// RunLLMDriven drives the llm-driven mode's tool-call loop: the
// orchestrator LLM sees agent:<id> tool schemas plus any other enabled
// tools, agent-tool calls in one turn run in parallel bounded by
// max_parallel, other tools run sequentially, and results are appended in
// original request order (spec §4.11, §5).
func (o *Orchestrator) RunLLMDriven(ctx context.Context, messages []llm.Message, inv *config.Invocation) (content string, finishReason llm.FinishReason, iterations int, childConfidences []float64, childFailures int, err error) {
	maxIter := o.cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 15
	}

	for iterations = 0; iterations < maxIter; iterations++ {
		schemas := append(append([]tool.Schema{}, o.availableAgentSchemas()...), o.otherTools...)

		resp, cerr := o.llmProvider.Complete(ctx, llm.Request{
			Messages:   messages,
			Tools:      schemas,
			ToolChoice: llm.ToolChoiceAuto,
		})
		if cerr != nil {
			return "", "", iterations, childConfidences, childFailures, cerr
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, resp.FinishReason, iterations + 1, childConfidences, childFailures, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		results, confs, fails := o.executeTurn(ctx, resp.ToolCalls, inv)
		childConfidences = append(childConfidences, confs...)
		childFailures += fails
		for _, r := range results {
			messages = append(messages, r)
		}
	}

	return "", llm.FinishReason("max_iterations"), maxIter + 1, childConfidences, childFailures, engerrors.New(engerrors.KindMaxIterations, "orchestrator: max iterations reached")
}

// executeTurn runs one turn's tool calls: agent-tool calls in parallel
// (bounded by max_parallel), other tools sequentially, results appended as
// tool messages in original call order.
func (o *Orchestrator) executeTurn(ctx context.Context, calls []tool.Call, inv *config.Invocation) ([]llm.Message, []float64, int) {
	outcomes := make([]turnOutcome, len(calls))

	maxParallel := o.cfg.MaxConcurrency
	if maxParallel <= 0 {
		maxParallel = 5
	}
	sem := semaphore.NewWeighted(int64(maxParallel))
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		i, call := i, call
		name := tool.Unsanitize(call.Name)
		if strings.HasPrefix(name, "agent:") {
			agentID := strings.TrimPrefix(name, "agent:")
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return nil //nolint:nilerr // context cancellation; outcome left zero-valued
				}
				defer sem.Release(1)
				outcomes[i] = o.invokeChild(gctx, agentID, call, inv)
				return nil
			})
			continue
		}

		// non-agent tools run sequentially: invoke inline, no goroutine.
		o.sink.Emit(stream.ToolStart(name, call.ID, stream.PreviewArgs(call.Arguments)))
		result := o.toolExecutor(ctx, tool.Call{ID: call.ID, Name: name, Arguments: call.Arguments}, inv)
		o.sink.Emit(stream.ToolEnd(name, result.Success, fmt.Sprint(result.Output)))
		outcomes[i] = turnOutcome{msg: toToolMessage(call.ID, result), failed: !result.Success}
	}

	_ = g.Wait()

	msgs := make([]llm.Message, 0, len(calls))
	var confidences []float64
	failures := 0
	for _, oc := range outcomes {
		msgs = append(msgs, oc.msg)
		if oc.confidence != nil {
			confidences = append(confidences, *oc.confidence)
		}
		if oc.failed {
			failures++
		}
	}
	return msgs, confidences, failures
}

// turnOutcome is one tool-call's result within a single executeTurn batch.
type turnOutcome struct {
	msg        llm.Message
	confidence *float64
	failed     bool
}

func (o *Orchestrator) invokeChild(ctx context.Context, agentID string, call tool.Call, inv *config.Invocation) turnOutcome {
	o.recordCall(agentID)

	if o.breaker.IsOpen(agentID) {
		msg := fmt.Sprintf("Agent %s is temporarily unavailable (circuit open after repeated failures)", agentID)
		o.sink.Emit(stream.ToolStart("agent:"+agentID, call.ID, ""))
		o.sink.Emit(stream.ToolEnd("agent:"+agentID, false, msg))
		return turnOutcome{msg: toToolMessage(call.ID, tool.Result{Success: false, Error: msg}), failed: true}
	}

	query, _ := call.Arguments["query"].(string)
	childCtx, _ := call.Arguments["context"].(string)

	o.sink.Emit(stream.ToolStart("agent:"+agentID, call.ID, query))
	resp, err := o.invoker(ctx, agentID, query, childCtx, inv)
	if err != nil {
		o.breaker.RecordFailure(agentID)
		o.sink.Emit(stream.ToolEnd("agent:"+agentID, false, err.Error()))
		return turnOutcome{msg: toToolMessage(call.ID, tool.Result{Success: false, Error: err.Error()}), failed: true}
	}

	o.breaker.RecordSuccess(agentID)
	o.sink.Emit(stream.ToolEnd("agent:"+agentID, true, resp.Content))
	conf := resp.Confidence
	return turnOutcome{msg: toToolMessage(call.ID, tool.Result{Success: true, Output: resp.Content}), confidence: &conf}
}

// recordCall tracks consecutive identical agent calls for the
// max_same_agent_calls suppression window; a call to a different agent
// resets the window. Non-agent tool calls do not pass through here and
// leave the window unchanged.
func (o *Orchestrator) recordCall(agentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastCalledAgent != agentID {
		o.sameAgentCount = make(map[string]int)
		o.lastCalledAgent = agentID
	}
	o.sameAgentCount[agentID]++
}

func toToolMessage(callID string, r tool.Result) llm.Message {
	content := fmt.Sprint(r.Output)
	if !r.Success {
		content = "Error: " + r.Error
	}
	return llm.Message{Role: "tool", Content: content, ToolCallID: callID}
}
