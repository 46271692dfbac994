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
	"github.com/aradaai/agentcore/pkg/knowledge"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// runRAG implements the `rag` kind (spec §4.10): retrieve, inject retrieved
// context into the system prompt, one completion call, no tools.
func (d *Dispatcher) runRAG(c *workflow.Context, cfg *config.Config, inv *config.Invocation, sink stream.Sink) (laneResult, error) {
	sink.Emit(stream.Retrieving(cfg.Knowledge.Collection, inv.UserInput))

	var threshold *float64
	if cfg.Knowledge.SimilarityThreshold > 0 {
		t := cfg.Knowledge.SimilarityThreshold
		threshold = &t
	}

	sources, err := workflow.ExecuteActivity(c, "retrieve_knowledge", inv.UserInput, func(ctx context.Context) ([]knowledge.Source, error) {
		return d.Acts.RetrieveKnowledge(ctx, cfg.Knowledge.Collection, inv.UserInput, cfg.Knowledge.TopK, threshold)
	})
	if err != nil {
		return laneResult{}, err
	}
	sink.Emit(stream.Retrieved(len(sources), len(sources)))

	contextBlock := buildContextBlock(sources)
	systemPrompt := buildSystemPrompt(cfg.Persona, contextBlock)
	messages := buildMessages(systemPrompt, inv.ConversationHistory, inv.UserInput)

	resp, err := d.complete(c, cfg, messages, nil, llm.ToolChoiceNone)
	if err != nil {
		return laneResult{}, err
	}

	conf := confidence.Compute(confidence.Signals{
		HasLLM:           true,
		FinishReason:     string(resp.FinishReason),
		ResponseLength:   len(resp.Content),
		ResponseText:     resp.Content,
		HasRetrieval:     true,
		DocCount:         len(sources),
		AvgRelevance:     avgScore(sources),
		MinRelevance:     minScore(sources),
		HasRelevanceData: len(sources) > 0,
	})

	return laneResult{
		resp: &config.AgentResponse{
			Content:    resp.Content,
			Confidence: conf,
			Sources:    toConfigSources(sources),
			Metadata:   map[string]any{"finish_reason": string(resp.FinishReason), "doc_count": len(sources)},
		},
		retrievedContext: contextBlock,
	}, nil
}

func toConfigSources(sources []knowledge.Source) []config.Source {
	out := make([]config.Source, len(sources))
	for i, s := range sources {
		out[i] = config.Source{Content: s.Content, Score: s.Score, Metadata: s.Metadata}
	}
	return out
}

func avgScore(sources []knowledge.Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sources {
		sum += s.Score
	}
	return sum / float64(len(sources))
}

func minScore(sources []knowledge.Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	m := sources[0].Score
	for _, s := range sources[1:] {
		if s.Score < m {
			m = s.Score
		}
	}
	return m
}
