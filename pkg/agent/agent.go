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

// Package agent is the agent-type dispatcher and control loop (spec
// §4.10): a deterministic tagged-union `switch` over config.Kind that
// decides, per invocation, which of {safety gate, retrieval, LLM step,
// tool step, delegation step, validator step} runs and in what order, then
// drives it to completion through the workflow host.
//
// Grounded on original_source/src/agents/types/*.py (one source file per
// kind, here collapsed into one switch per spec §9's re-architecture note)
// and on hector's pkg/agent/workflowagent for loop-iteration-cap and
// message-threading idiom, adapted onto this engine's
// workflow.Context/ExecuteActivity determinism discipline rather than
// hector's iter.Seq2 event model.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aradaai/agentcore/pkg/activities"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/repository"
	"github.com/aradaai/agentcore/pkg/safety"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/validators"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// MaxToolIterations is the tool/full lane's iteration cap (spec §4.10,
// §8 "Iteration cap").
const MaxToolIterations = 10

// Dispatcher owns agent-kind dispatch for one process: it resolves a
// configuration snapshot, picks the lane for its Kind, and drives that
// lane through the workflow host under the cross-cutting safety/sanitize
// hooks (spec §4.10). It implements activities.AgentRunner so the
// orchestrator-calls-children-calls-orchestrator cycle (spec §9) resolves
// through this single injected callback instead of an import cycle.
type Dispatcher struct {
	Repo repository.AgentRepository
	Acts *activities.Activities
	Host *workflow.Host

	// RunValidators gates the optional post-response loop-detector and
	// hallucination-checker hooks (spec §4.10). Off by default: both are
	// extra LLM calls, and the cross-cutting hooks spec marks them
	// "optionally after final content".
	RunValidators bool

	// MaxNestingDepth caps orchestrator recursion process-wide when a
	// config's own orchestrator binding does not set one (spec §4.11).
	MaxNestingDepth int
}

// NewDispatcher constructs a Dispatcher and wires it as the activities
// bundle's AgentRunner.
func NewDispatcher(repo repository.AgentRepository, acts *activities.Activities) *Dispatcher {
	d := &Dispatcher{Repo: repo, Acts: acts, Host: workflow.NewHost(), MaxNestingDepth: 3}
	acts.SetAgentRunner(d)
	return d
}

// RunAgent implements activities.AgentRunner: it is the entry point both
// the orchestrator submodule's "agent:<id>" tool calls and hybrid-mode
// direct routing use to resolve a child agent by id.
func (d *Dispatcher) RunAgent(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error) {
	return d.Invoke(ctx, agentID, inv, nil)
}

// Invoke drives one end-to-end invocation of agentID against inv, emitting
// real tool/mcp events to sink as they happen (sink may be nil for a
// non-streaming caller, e.g. a child-agent call).
func (d *Dispatcher) Invoke(ctx context.Context, agentID string, inv *config.Invocation, sink stream.Sink) (*config.AgentResponse, error) {
	if sink == nil {
		sink = noopSink{}
	}

	cfg, err := d.Repo.Get(ctx, agentID)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.KindConfigInvalid, fmt.Sprintf("agent: no configuration for %q", agentID), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, engerrors.Wrap(engerrors.KindConfigInvalid, "agent: invalid configuration", err)
	}
	cfg.SetDefaults()

	if err := d.checkNesting(cfg, inv); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Safety.TimeoutSeconds) * time.Second
	result := d.Host.Run(ctx, timeout, func(c *workflow.Context) (any, error) {
		return d.runInvocation(c, cfg, inv, sink)
	})

	resp, _ := result.Value.(*config.AgentResponse)
	if result.TimedOut {
		if resp == nil {
			resp = &config.AgentResponse{Content: "Request timed out before a response could be produced."}
		}
		resp.Confidence = minFloat(resp.Confidence, 0.3)
		resp.Metadata = mergeMeta(resp.Metadata, map[string]any{"timeout": true})
		return resp, engerrors.New(engerrors.KindTimeout, "agent: invocation exceeded soft timeout")
	}
	if result.Err != nil {
		return resp, result.Err
	}
	return resp, nil
}

// checkNesting enforces spec §4.11's max_nesting_depth and
// allow_self_reference guards before any lane runs.
func (d *Dispatcher) checkNesting(cfg *config.Config, inv *config.Invocation) error {
	if cfg.Orchestrator == nil {
		return nil
	}
	limit := cfg.Orchestrator.MaxNestingDepth
	if limit <= 0 {
		limit = d.MaxNestingDepth
	}
	if inv.NestingDepth > limit {
		return engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("agent: max nesting depth %d exceeded", limit))
	}
	if !cfg.Orchestrator.AllowSelfReference {
		for _, child := range cfg.Orchestrator.ChildAgents {
			if child == cfg.ID {
				return engerrors.New(engerrors.KindConfigInvalid, "agent: orchestrator references itself but allow_self_reference is false")
			}
		}
	}
	return nil
}

type noopSink struct{}

func (noopSink) Emit(stream.Event) {}

// runInvocation is the deterministic workflow body: input safety gate,
// input sanitization, the per-kind lane, optional validator hooks, and the
// output safety gate, in the cross-cutting order spec §4.10 describes.
// The simple lane is exempt from the LLM-backed hooks (input
// sanitization, output safety confidence-0.85 path aside — the simple
// lane still gets the safety gate, just not the LLM-backed sanitizer,
// since it never calls an LLM itself).
func (d *Dispatcher) runInvocation(c *workflow.Context, cfg *config.Config, inv *config.Invocation, sink stream.Sink) (*config.AgentResponse, error) {
	userInput := inv.UserInput

	inRes, err := workflow.ExecuteActivity(c, "check_input_safety", userInput, func(ctx context.Context) (safety.Result, error) {
		return d.Acts.CheckInputSafety(safetyReq(userInput, cfg.Safety)), nil
	})
	if err != nil {
		return nil, err
	}
	if !inRes.IsSafe {
		return refusalResponse(inRes.Confidence), engerrors.New(engerrors.KindInputUnsafe, "agent: input failed safety check")
	}

	// sanitize_input runs before the first LLM step; a rewrite applies to
	// a local invocation copy so the caller's original Invocation is left
	// untouched (spec §3 ownership: only the workflow's own activities
	// mutate per-invocation state, and only their own copy of it).
	effectiveInv := inv
	if cfg.Kind != config.KindSimple {
		sanRes, err := workflow.ExecuteActivity(c, "sanitize_input", userInput, func(ctx context.Context) (validators.SanitizeResult, error) {
			return d.Acts.SanitizeInput(ctx, userInput), nil
		})
		if err != nil {
			return nil, err
		}
		if sanRes.RewrittenInput != nil && *sanRes.RewrittenInput != "" {
			clone := *inv
			clone.UserInput = *sanRes.RewrittenInput
			effectiveInv = &clone
		}
	}

	lane, err := d.runLane(c, cfg, effectiveInv, sink)
	if err != nil {
		return nil, err
	}

	if d.RunValidators && lane.resp.Content != "" {
		lane = d.applyValidatorHooks(c, cfg, inv, lane)
	}

	finalContent := lane.resp.Content
	outRes, err := workflow.ExecuteActivity(c, "check_output_safety", finalContent, func(ctx context.Context) (safety.Result, error) {
		return d.Acts.CheckOutputSafety(safetyReq(finalContent, cfg.Safety)), nil
	})
	if err != nil {
		return nil, err
	}
	if !outRes.IsSafe {
		lane.resp.Content = "I'm not able to share that response due to content safety restrictions."
		lane.resp.Confidence *= 0.5
		lane.resp.Metadata = mergeMeta(lane.resp.Metadata, map[string]any{"output_safety_violation": true})
		return lane.resp, nil
	}

	return lane.resp, nil
}

func safetyReq(content string, b config.SafetyBinding) safety.Request {
	return safety.Request{
		Content:        content,
		Level:          b.Level,
		BlockedTopics:  b.BlockedTopics,
		BlockedRegexes: b.BlockedRegexes,
	}
}

func refusalResponse(confidence float64) *config.AgentResponse {
	return &config.AgentResponse{
		Content:    "I can't help with that request.",
		Confidence: confidence * 0.5,
		Metadata:   map[string]any{"input_safety_violation": true},
	}
}

func minFloat(a, b float64) float64 {
	if a == 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}

func mergeMeta(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
