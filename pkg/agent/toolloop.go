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

	"github.com/aradaai/agentcore/pkg/activities"
	"github.com/aradaai/agentcore/pkg/confidence"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/knowledge"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/tool"
	"github.com/aradaai/agentcore/pkg/validators"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// runToolLoop implements the `tool` and `full` kinds (spec §4.10): `full`
// additionally retrieves once before the loop starts, injecting the
// retrieved context block into the system prompt the same way the rag lane
// does; both then run an LLM/tool iteration loop capped at
// MaxToolIterations. Tool calls within one turn execute sequentially, in
// the order the model requested them — the orchestrator submodule is the
// only lane that fans child-agent calls out in parallel (spec §4.11); a
// generic tool/full agent has no circuit breaker or concurrency budget of
// its own to bound that with.
func (d *Dispatcher) runToolLoop(c *workflow.Context, cfg *config.Config, inv *config.Invocation, sink stream.Sink) (laneResult, error) {
	var contextBlock string
	var sources []knowledge.Source

	if cfg.Kind == config.KindFull && cfg.Knowledge != nil {
		sink.Emit(stream.Retrieving(cfg.Knowledge.Collection, inv.UserInput))
		var threshold *float64
		if cfg.Knowledge.SimilarityThreshold > 0 {
			t := cfg.Knowledge.SimilarityThreshold
			threshold = &t
		}
		var err error
		sources, err = workflow.ExecuteActivity(c, "retrieve_knowledge", inv.UserInput, func(ctx context.Context) ([]knowledge.Source, error) {
			return d.Acts.RetrieveKnowledge(ctx, cfg.Knowledge.Collection, inv.UserInput, cfg.Knowledge.TopK, threshold)
		})
		if err != nil {
			return laneResult{}, err
		}
		sink.Emit(stream.Retrieved(len(sources), len(sources)))
		contextBlock = buildContextBlock(sources)
	}

	schemas, err := workflow.ExecuteActivity(c, "get_tool_definitions", cfg.Tools, func(ctx context.Context) ([]tool.Schema, error) {
		return d.Acts.GetToolDefinitions(cfg.Tools)
	})
	if err != nil {
		return laneResult{}, err
	}

	systemPrompt := buildSystemPrompt(cfg.Persona, contextBlock)
	messages := buildMessages(systemPrompt, inv.ConversationHistory, inv.UserInput)

	var toolTotal, toolSuccess, toolFailure int
	var toolRecords []config.ToolCallRecord
	var toolSummaries []validators.ToolResultSummary
	maxIterationsReached := false

	var resp *llm.Response
	iteration := 0
	for ; iteration < MaxToolIterations; iteration++ {
		resp, err = d.complete(c, cfg, messages, schemas, llm.ToolChoiceAuto)
		if err != nil {
			return laneResult{}, err
		}
		if len(resp.ToolCalls) == 0 {
			break
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		for _, call := range resp.ToolCalls {
			toolTotal++
			sink.Emit(stream.ToolStart(call.Name, call.ID, stream.PreviewArgs(call.Arguments)))

			result, err := workflow.ExecuteActivity(c, "execute_tool", call, func(ctx context.Context) (tool.Result, error) {
				return d.Acts.ExecuteTool(ctx, call, inv), nil
			})
			if err != nil {
				return laneResult{}, err
			}

			output := fmt.Sprint(result.Output)
			if result.Success && d.Acts.SanitizeExternalResults && activities.IsExternalToolProvenance(call.Name) {
				output, err = workflow.ExecuteActivity(c, "sanitize_tool_result", call.Name, func(ctx context.Context) (string, error) {
					return d.Acts.SanitizeToolResult(ctx, call.Name, output), nil
				})
				if err != nil {
					return laneResult{}, err
				}
			}

			if result.Success {
				toolSuccess++
			} else {
				toolFailure++
				output = "Error: " + result.Error
			}
			sink.Emit(stream.ToolEnd(call.Name, result.Success, output))

			toolRecords = append(toolRecords, config.ToolCallRecord{ID: call.ID, Name: call.Name, Success: result.Success})
			toolSummaries = append(toolSummaries, validators.ToolResultSummary{Tool: call.Name, Output: result.Output})
			messages = append(messages, llm.Message{Role: "tool", Content: output, ToolCallID: call.ID})
		}
	}
	if iteration >= MaxToolIterations {
		maxIterationsReached = true
	}

	content := resp.Content
	if maxIterationsReached && len(resp.ToolCalls) != 0 {
		content = "I wasn't able to finish this within the allotted number of steps. Here is what I found so far: " + content
	}

	conf := confidence.Compute(confidence.Signals{
		HasLLM:               true,
		FinishReason:         string(resp.FinishReason),
		ResponseLength:       len(content),
		ResponseText:         content,
		HasTools:             toolTotal > 0,
		ToolTotal:            toolTotal,
		ToolSuccess:          toolSuccess,
		ToolFailure:          toolFailure,
		HasRetrieval:         cfg.Kind == config.KindFull && cfg.Knowledge != nil,
		DocCount:             len(sources),
		AvgRelevance:         avgScore(sources),
		MinRelevance:         minScore(sources),
		HasRelevanceData:     len(sources) > 0,
		IterationsUsed:       iteration,
		MaxIterationsReached: maxIterationsReached,
	})

	return laneResult{
		resp: &config.AgentResponse{
			Content:    content,
			Confidence: conf,
			Sources:    toConfigSources(sources),
			ToolCalls:  toolRecords,
			Metadata:   map[string]any{"finish_reason": string(resp.FinishReason), "iterations": iteration},
		},
		retrievedContext: contextBlock,
		toolResults:      toolSummaries,
	}, nil
}
