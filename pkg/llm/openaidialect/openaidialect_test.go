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

package openaidialect

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Model: "gpt-4o"})
	assert.Error(t, err)

	_, err = New(Config{APIKey: "sk-test"})
	assert.Error(t, err)

	p, err := New(Config{APIKey: "sk-test", Model: "gpt-4o"})
	assert.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.Name())
}

func TestFromOpenAIToolCalls_MalformedArgumentsYieldEmptyMap(t *testing.T) {
	calls := fromOpenAIToolCalls([]openai.ToolCall{
		{ID: "call_1", Function: openai.FunctionCall{Name: "srv__search", Arguments: "{not json"}},
	})
	assert.Len(t, calls, 1)
	assert.Equal(t, "srv:search", calls[0].Name)
	assert.Equal(t, map[string]any{}, calls[0].Arguments)
}

func TestToOpenAIToolCalls_RoundTripsArguments(t *testing.T) {
	calls := toOpenAIToolCalls([]tool.Call{
		{ID: "call_1", Name: "srv:search", Arguments: map[string]any{"q": "hi"}},
	})
	assert.Len(t, calls, 1)
	assert.Equal(t, "srv__search", calls[0].Function.Name)
	assert.JSONEq(t, `{"q":"hi"}`, calls[0].Function.Arguments)
}

func TestToOpenAIToolChoice(t *testing.T) {
	assert.Equal(t, "auto", toOpenAIToolChoice(llm.ToolChoiceAuto))
	assert.Equal(t, "required", toOpenAIToolChoice(llm.ToolChoiceRequired))
	assert.Equal(t, "none", toOpenAIToolChoice(llm.ToolChoiceNone))

	named := toOpenAIToolChoice(llm.ToolChoiceName("srv__search"))
	tc, ok := named.(openai.ToolChoice)
	assert.True(t, ok)
	assert.Equal(t, "srv__search", tc.Function.Name)
}

func TestMapFinishReason(t *testing.T) {
	assert.Equal(t, llm.FinishStop, mapFinishReason(openai.FinishReasonStop))
	assert.Equal(t, llm.FinishLength, mapFinishReason(openai.FinishReasonLength))
	assert.Equal(t, llm.FinishToolCalls, mapFinishReason(openai.FinishReasonToolCalls))
	assert.Equal(t, llm.FinishContentFilter, mapFinishReason(openai.FinishReasonContentFilter))
}
