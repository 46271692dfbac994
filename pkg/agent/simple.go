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

	"github.com/aradaai/agentcore/pkg/config"
)

// runSimple implements the `simple` kind (spec §4.10): pattern match
// against compiled few-shot example inputs first, then a keyword scan of
// instructions.rules, then a goal-derived default. Pure computation, no
// LLM call and no activity — it is already deterministic by construction.
func (d *Dispatcher) runSimple(cfg *config.Config, inv *config.Invocation) (laneResult, error) {
	input := strings.ToLower(strings.TrimSpace(inv.UserInput))

	if resp, ok := matchPattern(cfg, input); ok {
		return laneResult{resp: resp}, nil
	}
	if resp, ok := matchKeywordRule(cfg.Persona.Rules, input); ok {
		return laneResult{resp: resp}, nil
	}

	return laneResult{resp: &config.AgentResponse{
		Content:    fmt.Sprintf("I can help you with: %s", cfg.Persona.Goal),
		Confidence: 0.5,
		Metadata:   map[string]any{"match_type": "default"},
	}}, nil
}

func matchPattern(cfg *config.Config, input string) (*config.AgentResponse, bool) {
	patterns := cfg.CompiledPatterns()
	examples := cfg.Persona.FewShotExamples
	for i, re := range patterns {
		if i >= len(examples) {
			break
		}
		if re.MatchString(input) {
			return &config.AgentResponse{
				Content:    examples[i].Output,
				Confidence: 1.0,
				Metadata:   map[string]any{"match_type": "pattern"},
			}, true
		}
	}
	return nil, false
}

// matchKeywordRule scans instructions.rules ("keyword: response" pairs)
// case-insensitively. Rules is a map, so definition order isn't available;
// keys are scanned in sorted order to keep the lane deterministic under
// replay (spec §8), a resolved Open Question recorded in DESIGN.md.
func matchKeywordRule(rules map[string]string, input string) (*config.AgentResponse, bool) {
	keywords := make([]string, 0, len(rules))
	for k := range rules {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(input, strings.ToLower(keyword)) {
			return &config.AgentResponse{
				Content:    rules[keyword],
				Confidence: 0.8,
				Metadata:   map[string]any{"match_type": "keyword"},
			}, true
		}
	}
	return nil, false
}
