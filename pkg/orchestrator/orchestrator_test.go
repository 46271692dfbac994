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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

// scriptedProvider returns one canned Response per call, advancing through
// the script; the final entry repeats once exhausted.
type scriptedProvider struct {
	calls   int32
	scripts []llm.Response
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	i := atomic.AddInt32(&p.calls, 1) - 1
	if int(i) >= len(p.scripts) {
		i = int32(len(p.scripts) - 1)
	}
	resp := p.scripts[i]
	return &resp, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	panic("not used")
}

func (p *scriptedProvider) Name() string { return "scripted" }

func TestRunLLMDriven_NoToolCalls_ReturnsImmediately(t *testing.T) {
	provider := &scriptedProvider{scripts: []llm.Response{
		{Content: "final answer", FinishReason: llm.FinishStop},
	}}
	cfg := &config.OrchestratorBinding{ChildAgents: []string{"helper"}}
	o := New(cfg, provider, nil, nil, nil, nil)

	content, finish, iterations, confs, fails, err := o.RunLLMDriven(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, &config.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "final answer", content)
	assert.Equal(t, llm.FinishStop, finish)
	assert.Equal(t, 1, iterations)
	assert.Empty(t, confs)
	assert.Zero(t, fails)
}

func TestRunLLMDriven_DelegatesToChildAgent(t *testing.T) {
	provider := &scriptedProvider{scripts: []llm.Response{
		{
			FinishReason: llm.FinishToolCalls,
			ToolCalls: []tool.Call{
				{ID: "call1", Name: tool.Sanitize("agent:helper"), Arguments: map[string]any{"query": "do the thing"}},
			},
		},
		{Content: "synthesized from child", FinishReason: llm.FinishStop},
	}}
	cfg := &config.OrchestratorBinding{ChildAgents: []string{"helper"}}

	invoked := false
	invoker := func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		invoked = true
		assert.Equal(t, "helper", agentID)
		assert.Equal(t, "do the thing", query)
		return &config.AgentResponse{Content: "child result", Confidence: 0.9}, nil
	}
	o := New(cfg, provider, invoker, nil, nil, nil)

	content, _, iterations, confs, fails, err := o.RunLLMDriven(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, &config.Invocation{})
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Equal(t, "synthesized from child", content)
	assert.Equal(t, 2, iterations)
	assert.Equal(t, []float64{0.9}, confs)
	assert.Zero(t, fails)
}

func TestRunLLMDriven_MaxIterationsReturnsError(t *testing.T) {
	provider := &scriptedProvider{scripts: []llm.Response{
		{
			FinishReason: llm.FinishToolCalls,
			ToolCalls: []tool.Call{
				{ID: "call1", Name: tool.Sanitize("agent:helper"), Arguments: map[string]any{"query": "loop"}},
			},
		},
	}}
	cfg := &config.OrchestratorBinding{ChildAgents: []string{"helper"}, MaxIterations: 2, MaxSameAgentCalls: 100}
	invoker := func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		return &config.AgentResponse{Content: "again"}, nil
	}
	o := New(cfg, provider, invoker, nil, nil, nil)

	_, _, _, _, _, err := o.RunLLMDriven(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, &config.Invocation{})
	assert.Error(t, err)
}

func TestInvokeChild_CircuitOpenShortCircuits(t *testing.T) {
	cfg := &config.OrchestratorBinding{ChildAgents: []string{"flaky"}}
	calls := 0
	invoker := func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		calls++
		return nil, assert.AnError
	}
	o := New(cfg, nil, invoker, nil, nil, nil)

	call := tool.Call{ID: "c1", Name: tool.Sanitize("agent:flaky"), Arguments: map[string]any{"query": "x"}}
	for i := 0; i < 3; i++ {
		oc := o.invokeChild(context.Background(), "flaky", call, &config.Invocation{})
		assert.True(t, oc.failed)
	}
	assert.Equal(t, 3, calls)

	oc := o.invokeChild(context.Background(), "flaky", call, &config.Invocation{})
	assert.True(t, oc.failed)
	assert.Equal(t, 3, calls, "circuit should be open, short-circuiting the 4th call")
}
