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
	"regexp"
	"sort"
	"strings"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
)

// MatchRoutingRules evaluates routing_rules in priority order (disabled
// rules skipped) and returns the first match's target agent, spec §4.11's
// hybrid-mode routing step.
func MatchRoutingRules(rules []config.RoutingRule, input string) (string, bool) {
	ordered := make([]config.RoutingRule, 0, len(rules))
	for _, r := range rules {
		if !r.Disabled {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	for _, r := range ordered {
		if matchCondition(r.Condition, r.Pattern, input) {
			return r.TargetAgent, true
		}
	}
	return "", false
}

func matchCondition(cond config.RoutingCondition, pattern, input string) bool {
	switch cond {
	case config.RoutingContains:
		return strings.Contains(input, pattern)
	case config.RoutingStartsWith:
		return strings.HasPrefix(input, pattern)
	case config.RoutingEndsWith:
		return strings.HasSuffix(input, pattern)
	case config.RoutingExact:
		return input == pattern
	case config.RoutingRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(input)
	default:
		return false
	}
}

// RunHybrid implements spec §4.11's hybrid mode: match routing_rules first
// (priority order, disabled skipped); on a match, invoke that child
// directly. On no match, the second return value reports whether the
// caller should fall back to RunLLMDriven (fallback_to_llm); otherwise
// default_agent is invoked directly, or the call fails.
func (o *Orchestrator) RunHybrid(ctx context.Context, userInput string, inv *config.Invocation) (content string, fallbackToLLM bool, err error) {
	if target, ok := MatchRoutingRules(o.cfg.RoutingRules, userInput); ok {
		resp, err := o.invoker(ctx, target, userInput, "", inv)
		if err != nil {
			return "", false, err
		}
		return resp.Content, false, nil
	}

	if o.cfg.FallbackToLLM {
		return "", true, nil
	}

	if o.cfg.DefaultAgent != "" {
		resp, err := o.invoker(ctx, o.cfg.DefaultAgent, userInput, "", inv)
		if err != nil {
			return "", false, err
		}
		return resp.Content, false, nil
	}

	return "", false, engerrors.New(engerrors.KindConfigInvalid, "orchestrator: hybrid mode found no matching rule and no fallback/default agent configured")
}
