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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
)

func echoInvoker(t *testing.T) ChildInvoker {
	return func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		return &config.AgentResponse{Content: fmt.Sprintf("%s:%s", agentID, query)}, nil
	}
}

func TestGraphRunner_LinearChain(t *testing.T) {
	graph := &config.WorkflowGraph{
		EntryStep: "step1",
		Steps: []config.WorkflowStep{
			{ID: "step1", Type: config.StepAgent, AgentID: "summarizer", Input: "${user_input}", Next: "step2"},
			{ID: "step2", Type: config.StepAgent, AgentID: "critic", Input: "review: ${steps.step1.output}"},
		},
	}
	runner := NewGraphRunner(graph, echoInvoker(t), &config.Invocation{})
	out, err := runner.Run(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "critic:review: summarizer:hello", out)
}

func TestGraphRunner_Conditional(t *testing.T) {
	graph := &config.WorkflowGraph{
		EntryStep: "branch",
		Steps: []config.WorkflowStep{
			{
				ID:        "branch",
				Type:      config.StepConditional,
				Condition: "${context.urgent}",
				Branches: []config.WorkflowStep{
					{ID: "hot", Type: config.StepAgent, AgentID: "oncall", Input: "${user_input}"},
					{ID: "cold", Type: config.StepAgent, AgentID: "backlog", Input: "${user_input}"},
				},
			},
		},
	}
	runner := NewGraphRunner(graph, echoInvoker(t), &config.Invocation{})

	out, err := runner.Run(context.Background(), "ticket", map[string]string{"urgent": "true"})
	require.NoError(t, err)
	assert.Equal(t, "oncall:ticket", out)

	runner2 := NewGraphRunner(graph, echoInvoker(t), &config.Invocation{})
	out, err = runner2.Run(context.Background(), "ticket", map[string]string{"urgent": "false"})
	require.NoError(t, err)
	assert.Equal(t, "backlog:ticket", out)
}

func TestGraphRunner_Parallel_AggregatesAll(t *testing.T) {
	graph := &config.WorkflowGraph{
		EntryStep: "fanout",
		Steps: []config.WorkflowStep{
			{
				ID:          "fanout",
				Type:        config.StepParallel,
				Aggregation: config.AggregationAll,
				Branches: []config.WorkflowStep{
					{ID: "a", Type: config.StepAgent, AgentID: "left", Input: "${user_input}"},
					{ID: "b", Type: config.StepAgent, AgentID: "right", Input: "${user_input}"},
				},
			},
		},
	}
	runner := NewGraphRunner(graph, echoInvoker(t), &config.Invocation{})
	out, err := runner.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "left:q")
	assert.Contains(t, out, "right:q")
}

func TestGraphRunner_Loop_ExitsOnCondition(t *testing.T) {
	calls := 0
	invoker := func(ctx context.Context, agentID, query, childContext string, inv *config.Invocation) (*config.AgentResponse, error) {
		calls++
		content := "false"
		if calls >= 3 {
			content = "true"
		}
		return &config.AgentResponse{Content: content}, nil
	}
	graph := &config.WorkflowGraph{
		EntryStep: "retry",
		Steps: []config.WorkflowStep{
			{
				ID:       "retry",
				Type:     config.StepLoop,
				MaxIter:  10,
				ExitWhen: "${steps.body.output}",
				Branches: []config.WorkflowStep{
					{ID: "body", Type: config.StepAgent, AgentID: "worker", Input: "${user_input}"},
				},
			},
		},
	}
	runner := NewGraphRunner(graph, invoker, &config.Invocation{})
	out, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "true", out)
	assert.Equal(t, 3, calls)
}

func TestGraphRunner_UnknownStep_Errors(t *testing.T) {
	graph := &config.WorkflowGraph{EntryStep: "missing"}
	runner := NewGraphRunner(graph, echoInvoker(t), &config.Invocation{})
	_, err := runner.Run(context.Background(), "x", nil)
	assert.Error(t, err)
}
