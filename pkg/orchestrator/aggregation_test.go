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

func TestAggregateFirst_ReturnsFirstSuccess(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: false, Error: "timeout"},
		{AgentID: "b", Success: true, Content: "answer"},
		{AgentID: "c", Success: true, Content: "ignored"},
	}
	out, err := Aggregate(context.Background(), config.AggregationFirst, results, nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestAggregateFirst_AllFailed_JoinsErrors(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: false, Error: "timeout"},
		{AgentID: "b", Success: false, Error: "unavailable"},
	}
	out, err := Aggregate(context.Background(), config.AggregationFirst, results, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "timeout")
	assert.Contains(t, out, "unavailable")
}

func TestAggregateAll_PreservesOrder(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: true, Content: "first"},
		{AgentID: "b", Success: true, Content: "second"},
	}
	out, err := Aggregate(context.Background(), config.AggregationAll, results, nil)
	require.NoError(t, err)
	assert.True(t, indexOf(out, "first") < indexOf(out, "second"))
}

func TestAggregateVote_MajorityWins(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: true, Content: "Paris"},
		{AgentID: "b", Success: true, Content: "paris"},
		{AgentID: "c", Success: true, Content: "London"},
	}
	out, err := Aggregate(context.Background(), config.AggregationVote, results, nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris", out) // first occurrence of the winning normalized bucket
}

func TestAggregateMerge_LastWins(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: true, Content: `{"x":1,"y":2}`},
		{AgentID: "b", Success: true, Content: `{"x":9}`},
	}
	out, err := Aggregate(context.Background(), config.AggregationMerge, results, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `"x":9`)
	assert.Contains(t, out, `"y":2`)
}

func TestAggregateBest_SingleSuccessSkipsAdjudicator(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: true, Content: "only answer"},
	}
	out, err := Aggregate(context.Background(), config.AggregationBest, results, nil)
	require.NoError(t, err)
	assert.Equal(t, "only answer", out)
}

func TestAggregateBest_NoAdjudicatorFallsBackToFirst(t *testing.T) {
	results := []ChildResult{
		{AgentID: "a", Success: true, Content: "one"},
		{AgentID: "b", Success: true, Content: "two"},
	}
	out, err := Aggregate(context.Background(), config.AggregationBest, results, nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
