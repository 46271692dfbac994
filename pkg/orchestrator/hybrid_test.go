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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
)

func TestMatchRoutingRules_PriorityOrderSkipsDisabled(t *testing.T) {
	rules := []config.RoutingRule{
		{Priority: 1, Condition: config.RoutingContains, Pattern: "refund", TargetAgent: "billing"},
		{Priority: 10, Disabled: true, Condition: config.RoutingContains, Pattern: "refund", TargetAgent: "wrong"},
		{Priority: 5, Condition: config.RoutingContains, Pattern: "refund", TargetAgent: "support"},
	}
	target, ok := MatchRoutingRules(rules, "I need a refund please")
	require.True(t, ok)
	assert.Equal(t, "support", target)
}

func TestMatchRoutingRules_NoMatch(t *testing.T) {
	rules := []config.RoutingRule{
		{Priority: 1, Condition: config.RoutingExact, Pattern: "hello", TargetAgent: "greeter"},
	}
	_, ok := MatchRoutingRules(rules, "goodbye")
	assert.False(t, ok)
}

func newTestOrchestrator(cfg *config.OrchestratorBinding, invoker ChildInvoker) *Orchestrator {
	return New(cfg, nil, invoker, nil, nil, nil)
}

func TestRunHybrid_MatchedRuleInvokesTarget(t *testing.T) {
	cfg := &config.OrchestratorBinding{
		RoutingRules: []config.RoutingRule{
			{Priority: 1, Condition: config.RoutingContains, Pattern: "refund", TargetAgent: "billing"},
		},
	}
	var invokedAgent string
	o := newTestOrchestrator(cfg, func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		invokedAgent = agentID
		return &config.AgentResponse{Content: "handled"}, nil
	})

	content, fallback, err := o.RunHybrid(context.Background(), "I need a refund", &config.Invocation{})
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, "handled", content)
	assert.Equal(t, "billing", invokedAgent)
}

func TestRunHybrid_NoMatchFallsBackToLLM(t *testing.T) {
	cfg := &config.OrchestratorBinding{FallbackToLLM: true}
	o := newTestOrchestrator(cfg, func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		t.Fatal("invoker should not be called when falling back to LLM")
		return nil, nil
	})

	content, fallback, err := o.RunHybrid(context.Background(), "something unmatched", &config.Invocation{})
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Empty(t, content)
}

func TestRunHybrid_NoMatchUsesDefaultAgent(t *testing.T) {
	cfg := &config.OrchestratorBinding{DefaultAgent: "generalist"}
	var invokedAgent string
	o := newTestOrchestrator(cfg, func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		invokedAgent = agentID
		return &config.AgentResponse{Content: "default handled"}, nil
	})

	content, fallback, err := o.RunHybrid(context.Background(), "anything", &config.Invocation{})
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, "default handled", content)
	assert.Equal(t, "generalist", invokedAgent)
}

func TestRunHybrid_NoMatchNoFallbackNoDefault_Errors(t *testing.T) {
	cfg := &config.OrchestratorBinding{}
	o := newTestOrchestrator(cfg, nil)

	_, _, err := o.RunHybrid(context.Background(), "anything", &config.Invocation{})
	assert.Error(t, err)
}
