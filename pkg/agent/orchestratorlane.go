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

package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aradaai/agentcore/pkg/confidence"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/orchestrator"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/tool"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// orchestratorOutcome is what one (possibly multi-call) orchestrator-mode
// pass reports back to runOrchestrator.
type orchestratorOutcome struct {
	content          string
	finishReason     string
	iterations       int
	childConfidences []float64
	childFailures    int
}

// runOrchestrator implements the `orchestrator` kind (spec §4.11): builds
// the child-invoker and tool-executor callbacks pkg/orchestrator needs,
// constructs an Orchestrator bound to this invocation, and dispatches on
// mode. pkg/orchestrator's internal LLM/child calls happen outside this
// engine's per-activity retry wrapping (it drives its own fan-out and
// circuit breaker), so the whole mode call is run as a single composite
// activity — the same "opaque unit" treatment execute_agent_as_tool gives
// one entire child-workflow invocation — rather than threaded through
// ExecuteActivity call by call.
func (d *Dispatcher) runOrchestrator(c *workflow.Context, cfg *config.Config, inv *config.Invocation, sink stream.Sink) (laneResult, error) {
	provider, err := d.Acts.LLM.Get(cfg.LLM.Provider)
	if err != nil {
		return laneResult{}, engerrors.Wrap(engerrors.KindConfigInvalid, "agent: orchestrator has no usable llm provider", err)
	}

	otherTools, err := workflow.ExecuteActivity(c, "get_tool_definitions", cfg.Tools, func(ctx context.Context) ([]tool.Schema, error) {
		return d.Acts.GetToolDefinitions(cfg.Tools)
	})
	if err != nil {
		return laneResult{}, err
	}

	invoker := d.childInvoker(inv)
	toolExecutor := func(ctx context.Context, call tool.Call, inv *config.Invocation) tool.Result {
		return d.Acts.ExecuteTool(ctx, call, inv)
	}

	orc := orchestrator.New(cfg.Orchestrator, provider, invoker, toolExecutor, otherTools, sink)

	systemPrompt := buildSystemPrompt(cfg.Persona, "")
	messages := buildMessages(systemPrompt, inv.ConversationHistory, inv.UserInput)

	var out orchestratorOutcome
	switch cfg.Orchestrator.Mode {
	case config.OrchestratorModeHybrid:
		out, err = d.runHybridMode(c, orc, inv, messages)
	case config.OrchestratorModeWorkflow:
		out, err = d.runWorkflowMode(c, cfg, orc, inv)
	default: // OrchestratorModeLLMDriven
		out, err = d.runLLMDrivenMode(c, orc, messages, inv)
	}
	if err != nil {
		return laneResult{}, err
	}

	conf := confidence.Compute(confidence.Signals{
		ResponseText:         out.content,
		IterationsUsed:       out.iterations,
		ChildConfidences:     out.childConfidences,
		ChildFailures:        out.childFailures,
		MaxIterationsReached: out.finishReason == "max_iterations",
	})

	return laneResult{resp: &config.AgentResponse{
		Content:    out.content,
		Confidence: conf,
		Metadata:   map[string]any{"orchestrator_mode": string(cfg.Orchestrator.Mode), "iterations": out.iterations},
	}}, nil
}

func (d *Dispatcher) childInvoker(parentInv *config.Invocation) orchestrator.ChildInvoker {
	return func(ctx context.Context, agentID string, query, childContext string, _ *config.Invocation) (*config.AgentResponse, error) {
		childInv := parentInv.Child(query, uuid.NewString())
		if childContext != "" {
			childInv.Metadata = mergeMeta(childInv.Metadata, map[string]any{"context": childContext})
		}
		return d.RunAgent(ctx, agentID, childInv)
	}
}

func (d *Dispatcher) runLLMDrivenMode(c *workflow.Context, orc *orchestrator.Orchestrator, messages []llm.Message, inv *config.Invocation) (orchestratorOutcome, error) {
	return workflow.ExecuteActivity(c, "orchestrator_run_llm_driven", inv.UserInput, func(ctx context.Context) (orchestratorOutcome, error) {
		content, finishReason, iterations, childConfidences, childFailures, err := orc.RunLLMDriven(ctx, messages, inv)
		out := orchestratorOutcome{
			content:          content,
			finishReason:     string(finishReason),
			iterations:       iterations,
			childConfidences: childConfidences,
			childFailures:    childFailures,
		}
		if kind, ok := engerrors.AsKind(err); ok && kind == engerrors.KindMaxIterations {
			return out, nil // degraded-but-final, not a workflow-level failure (spec §7)
		}
		return out, err
	})
}

func (d *Dispatcher) runHybridMode(c *workflow.Context, orc *orchestrator.Orchestrator, inv *config.Invocation, messages []llm.Message) (orchestratorOutcome, error) {
	hybridOut, err := workflow.ExecuteActivity(c, "orchestrator_run_hybrid", inv.UserInput, func(ctx context.Context) (hybridResult, error) {
		content, fallback, err := orc.RunHybrid(ctx, inv.UserInput, inv)
		return hybridResult{content: content, fallbackToLLM: fallback}, err
	})
	if err != nil {
		return orchestratorOutcome{}, err
	}
	if !hybridOut.fallbackToLLM {
		return orchestratorOutcome{content: hybridOut.content, finishReason: "stop", iterations: 1}, nil
	}
	return d.runLLMDrivenMode(c, orc, messages, inv)
}

type hybridResult struct {
	content       string
	fallbackToLLM bool
}

func (d *Dispatcher) runWorkflowMode(c *workflow.Context, cfg *config.Config, orc *orchestrator.Orchestrator, inv *config.Invocation) (orchestratorOutcome, error) {
	invoker := d.childInvoker(inv)
	graphContext := stringifyMetadata(inv.Metadata)

	content, err := workflow.ExecuteActivity(c, "orchestrator_run_graph", inv.UserInput, func(ctx context.Context) (string, error) {
		runner := orchestrator.NewGraphRunner(cfg.Orchestrator.Graph, invoker, inv)
		return runner.Run(ctx, inv.UserInput, graphContext)
	})
	if err != nil {
		return orchestratorOutcome{}, err
	}
	return orchestratorOutcome{content: content, finishReason: "stop", iterations: 1}, nil
}

func stringifyMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = fmt.Sprint(v)
	}
	return out
}
