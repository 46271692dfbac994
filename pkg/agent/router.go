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
	"fmt"
	"sort"
	"strings"

	"github.com/aradaai/agentcore/pkg/confidence"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// runRouter implements the `router` kind (spec §4.10): classify the input
// against the routing table's categories with one completion call, then
// report the resolved target_agent. This lane never invokes the target
// itself — resolving and re-entering the control loop for target_agent is
// the caller's responsibility (spec §4.6's reroute_target field exists
// precisely so a router's output can be re-dispatched by whoever owns the
// conversation without nesting a second workflow inside this one).
func (d *Dispatcher) runRouter(c *workflow.Context, cfg *config.Config, inv *config.Invocation) (laneResult, error) {
	categories := sortedCategories(cfg.Routing)
	if len(categories) == 0 {
		return laneResult{}, fmt.Errorf("agent: router kind requires at least one routing category")
	}

	systemPrompt := buildSystemPrompt(cfg.Persona, classificationInstructions(categories))
	messages := buildMessages(systemPrompt, inv.ConversationHistory, inv.UserInput)

	resp, err := d.complete(c, cfg, messages, nil, llm.ToolChoiceNone)
	if err != nil {
		return laneResult{}, err
	}

	lower := strings.ToLower(resp.Content)
	category, target, matched := "", "", false
	for _, cat := range categories {
		if strings.Contains(lower, strings.ToLower(cat)) {
			category, target, matched = cat, cfg.Routing[cat], true
			break
		}
	}
	if !matched {
		if def, ok := cfg.Routing["default"]; ok {
			category, target, matched = "default", def, true
		}
	}

	conf := confidence.Compute(confidence.Signals{
		HasLLM:         true,
		FinishReason:   string(resp.FinishReason),
		ResponseLength: len(resp.Content),
		ResponseText:   resp.Content,
	})
	if !matched {
		conf *= 0.3
	}

	return laneResult{resp: &config.AgentResponse{
		Content:       resp.Content,
		Confidence:    conf,
		RerouteTarget: target,
		Metadata:      map[string]any{"classification": category, "target_agent": target},
	}}, nil
}

// sortedCategories returns the routing table's non-default category names
// in sorted order, keeping category enumeration (and, with it, which
// category matches first when the model's answer mentions more than one)
// deterministic under replay (spec §8).
func sortedCategories(table config.RoutingTable) []string {
	out := make([]string, 0, len(table))
	for cat := range table {
		if cat == "default" {
			continue
		}
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func classificationInstructions(categories []string) string {
	var b strings.Builder
	b.WriteString("Classify the user's request into exactly one of the following categories, and name it explicitly in your answer:\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "- %s\n", cat)
	}
	return b.String()
}
