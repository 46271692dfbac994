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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/llm"
)

// ChildResult is one child agent invocation's outcome, in request order.
type ChildResult struct {
	AgentID string
	Success bool
	Content string
	Error   string
	Confidence float64
}

// Aggregate combines childResults under strategy (spec §4.11). best needs
// an LLM call; the other four are pure.
func Aggregate(ctx context.Context, strategy config.AggregationStrategy, results []ChildResult, adjudicator llm.Provider) (string, error) {
	switch strategy {
	case config.AggregationFirst:
		return aggregateFirst(results), nil
	case config.AggregationVote:
		return aggregateVote(results), nil
	case config.AggregationMerge:
		return aggregateMerge(results, "last"), nil
	case config.AggregationBest:
		return aggregateBest(ctx, results, adjudicator)
	case config.AggregationAll, "":
		return aggregateAll(results), nil
	default:
		return aggregateAll(results), nil
	}
}

func aggregateFirst(results []ChildResult) string {
	for _, r := range results {
		if r.Success {
			return r.Content
		}
	}
	var errs []string
	for _, r := range results {
		if r.Error != "" {
			errs = append(errs, fmt.Sprintf("[%s] %s", r.AgentID, r.Error))
		}
	}
	return strings.Join(errs, "; ")
}

// aggregateAll formats every result (successful or not) in request order,
// preserving child-invocation order per spec §5.
func aggregateAll(results []ChildResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		content := r.Content
		if !r.Success {
			content = "Error: " + r.Error
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", r.AgentID, content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// aggregateVote tallies normalized (lower/trimmed) content and returns the
// highest-vote original content; order-independent, ties broken by first
// occurrence in input order for determinism.
func aggregateVote(results []ChildResult) string {
	type bucket struct {
		original string
		count    int
		first    int
	}
	buckets := make(map[string]*bucket)
	for i, r := range results {
		if !r.Success {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(r.Content))
		if b, ok := buckets[key]; ok {
			b.count++
		} else {
			buckets[key] = &bucket{original: r.Content, count: 1, first: i}
		}
	}
	if len(buckets) == 0 {
		return ""
	}
	all := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].first < all[j].first
	})
	return all[0].original
}

// aggregateMerge parses each successful content as a JSON object and
// merges key-by-key under policy {last, first, list}; default "last".
func aggregateMerge(results []ChildResult, policy string) string {
	merged := make(map[string]any)
	lists := make(map[string][]any)

	for _, r := range results {
		if !r.Success {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(r.Content), &obj); err != nil {
			continue
		}
		for k, v := range obj {
			switch policy {
			case "first":
				if _, exists := merged[k]; !exists {
					merged[k] = v
				}
			case "list":
				lists[k] = append(lists[k], v)
			default: // "last"
				merged[k] = v
			}
		}
	}
	if policy == "list" {
		for k, v := range lists {
			merged[k] = v
		}
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return "{}"
	}
	return string(out)
}

const adjudicatorPrompt = `You are synthesizing the best answer from several agents' independent responses to the same request. Pick the single best response, or synthesize an improved one drawing from all of them. Respond with only the final answer text, no commentary or labels.`

// aggregateBest has a small LLM pick/synthesize the best response from the
// labeled candidate set.
func aggregateBest(ctx context.Context, results []ChildResult, adjudicator llm.Provider) (string, error) {
	var successful []ChildResult
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		return aggregateFirst(results), nil
	}
	if len(successful) == 1 {
		return successful[0].Content, nil
	}
	if adjudicator == nil {
		return aggregateFirst(results), nil
	}

	var labeled []string
	for _, r := range successful {
		labeled = append(labeled, fmt.Sprintf("## %s\n%s", r.AgentID, r.Content))
	}

	resp, err := adjudicator.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: adjudicatorPrompt},
			{Role: "user", Content: strings.Join(labeled, "\n\n")},
		},
	})
	if err != nil {
		return aggregateFirst(results), nil
	}
	return resp.Content, nil
}
