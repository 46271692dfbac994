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

	"github.com/aradaai/agentcore/pkg/confidence"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// runLLMKind implements the `llm` kind (spec §4.10): persona-only prompt,
// one completion call, no retrieval, no tools.
func (d *Dispatcher) runLLMKind(c *workflow.Context, cfg *config.Config, inv *config.Invocation) (laneResult, error) {
	systemPrompt := buildSystemPrompt(cfg.Persona, "")
	messages := buildMessages(systemPrompt, inv.ConversationHistory, inv.UserInput)

	resp, err := d.complete(c, cfg, messages, nil, llm.ToolChoiceNone)
	if err != nil {
		return laneResult{}, err
	}

	conf := confidence.Compute(confidence.Signals{
		HasLLM:         true,
		FinishReason:   string(resp.FinishReason),
		ResponseLength: len(resp.Content),
		ResponseText:   resp.Content,
	})

	return laneResult{resp: &config.AgentResponse{
		Content:    resp.Content,
		Confidence: conf,
		Metadata:   map[string]any{"finish_reason": string(resp.FinishReason)},
	}}, nil
}

// complete wraps a single llm_completion activity call. The llm, rag, tool,
// full and router lanes all go through this one helper so the determinism
// discipline (spec §5: external effects only through ExecuteActivity) is
// enforced in one place; the orchestrator lane instead makes its LLM calls
// inside pkg/orchestrator, wrapped as one composite activity per mode call.
func (d *Dispatcher) complete(c *workflow.Context, cfg *config.Config, messages []llm.Message, tools []tool.Schema, choice llm.ToolChoice) (*llm.Response, error) {
	req := llm.Request{Messages: messages, Tools: tools, ToolChoice: choice}
	return workflow.ExecuteActivity(c, "llm_completion", req, func(ctx context.Context) (*llm.Response, error) {
		return d.Acts.LLMCompletion(ctx, cfg.LLM.Provider, req)
	})
}
