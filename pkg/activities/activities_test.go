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

package activities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

type flakyProvider struct {
	failuresLeft int
	response     *llm.Response
}

func (p *flakyProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.failuresLeft > 0 {
		p.failuresLeft--
		return nil, engerrors.New(engerrors.KindTransportError, "transient")
	}
	return p.response, nil
}

func (p *flakyProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	panic("not used")
}

func (p *flakyProvider) Name() string { return "flaky" }

func TestLLMCompletion_RetriesTransportErrors(t *testing.T) {
	reg := llm.NewRegistry()
	provider := &flakyProvider{failuresLeft: 2, response: &llm.Response{Content: "ok"}}
	reg.Register("main", provider)

	acts := New(reg, tool.NewRegistry(), nil, nil, nil)
	resp, err := acts.LLMCompletion(context.Background(), "main", llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestLLMCompletion_DoesNotRetryConfigError(t *testing.T) {
	reg := llm.NewRegistry()
	acts := New(reg, tool.NewRegistry(), nil, nil, nil)

	_, err := acts.LLMCompletion(context.Background(), "missing", llm.Request{})
	assert.Error(t, err)
}

func TestExecuteTool_AgentPrefix_RoutesToAgentRunner(t *testing.T) {
	acts := New(llm.NewRegistry(), tool.NewRegistry(), nil, nil, nil)
	acts.SetAgentRunner(runnerFunc(func(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error) {
		assert.Equal(t, "helper", agentID)
		return &config.AgentResponse{Content: "child says hi"}, nil
	}))

	result := acts.ExecuteTool(context.Background(), tool.Call{
		ID:        "c1",
		Name:      "agent:helper",
		Arguments: map[string]any{"query": "hello"},
	}, &config.Invocation{})

	assert.True(t, result.Success)
}

func TestExecuteTool_NoAgentRunnerConfigured_Fails(t *testing.T) {
	acts := New(llm.NewRegistry(), tool.NewRegistry(), nil, nil, nil)
	result := acts.ExecuteTool(context.Background(), tool.Call{Name: "agent:helper", Arguments: map[string]any{"query": "x"}}, &config.Invocation{})
	assert.False(t, result.Success)
}

func TestExecuteTool_RegistryTool(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.Descriptor{Name: "echo"}, func(ctx context.Context, args map[string]any) tool.Result {
		return tool.Result{Success: true, Output: args["msg"]}
	}))
	acts := New(llm.NewRegistry(), reg, nil, nil, nil)

	result := acts.ExecuteTool(context.Background(), tool.Call{Name: "echo", Arguments: map[string]any{"msg": "hi"}}, &config.Invocation{})
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Output)
}

func TestIsExternalToolProvenance(t *testing.T) {
	assert.True(t, IsExternalToolProvenance("google-calendar:list_events"))
	assert.True(t, IsExternalToolProvenance("mcp:slack:send_message"))
	assert.False(t, IsExternalToolProvenance("echo"))
}

func TestResolveToolName_MalformedMCPName(t *testing.T) {
	acts := New(llm.NewRegistry(), tool.NewRegistry(), nil, nil, nil)
	_, err := acts.resolveToolName("mcp:onlyoneparts")
	assert.Error(t, err)
}

type runnerFunc func(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error)

func (f runnerFunc) RunAgent(ctx context.Context, agentID string, inv *config.Invocation) (*config.AgentResponse, error) {
	return f(ctx, agentID, inv)
}
