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

package anthropicdialect

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"

	"github.com/aradaai/agentcore/pkg/llm"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Model: "claude-3-5-sonnet-latest"})
	assert.Error(t, err)

	_, err = New(Config{APIKey: "sk-ant-test"})
	assert.Error(t, err)

	p, err := New(Config{APIKey: "sk-ant-test", Model: "claude-3-5-sonnet-latest"})
	assert.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-latest", p.Name())
}

func TestToMessageParams_SystemIsSideChannelNotAMessage(t *testing.T) {
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
	}
	params := toMessageParams("claude-3-5-sonnet-latest", req)

	assert.Len(t, params.System, 1)
	assert.Equal(t, "be terse", params.System[0].Text)
	assert.Len(t, params.Messages, 1)
}

func TestToMessageParams_ToolResultBecomesUserMessage(t *testing.T) {
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: "what's the weather"},
			{Role: "assistant", Content: ""},
			{Role: "tool", ToolCallID: "call_1", Content: "72F"},
		},
	}
	params := toMessageParams("claude-3-5-sonnet-latest", req)
	assert.Len(t, params.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[2].Role)
}

func TestToAnthropicToolChoice_RequiredMapsToAny(t *testing.T) {
	choice := toAnthropicToolChoice(llm.ToolChoiceRequired)
	assert.NotNil(t, choice.OfAny)
}

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, llm.FinishStop, mapStopReason("end_turn"))
	assert.Equal(t, llm.FinishLength, mapStopReason("max_tokens"))
	assert.Equal(t, llm.FinishToolCalls, mapStopReason("tool_use"))
}
