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

// Package llm is the LLM gateway: a uniform complete/stream surface over
// multiple providers (spec §4.1). Provider adapters normalize the OpenAI
// and Anthropic dialects; the gateway itself never speaks either wire
// format directly.
//
// Grounded on hector's pkg/model.LLM interface shape
// (Name/Provider/GenerateContent), simplified away from its a2a-go/
// iter.Seq2 alignment since that binds to the ADK-Go ecosystem this engine
// does not use.
package llm

import (
	"context"

	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/tool"
)

// ToolChoice selects how the model should use the supplied tools.
type ToolChoice struct {
	Mode string // "auto" | "required" | "none" | "name"
	Name string // set when Mode == "name"
}

var (
	ToolChoiceAuto     = ToolChoice{Mode: "auto"}
	ToolChoiceRequired = ToolChoice{Mode: "required"}
	ToolChoiceNone     = ToolChoice{Mode: "none"}
)

// ToolChoiceName forces a specific tool by (sanitized) name.
func ToolChoiceName(name string) ToolChoice {
	return ToolChoice{Mode: "name", Name: name}
}

// Request is one chat-completion call.
type Request struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
	Stop        []string
	Tools       []tool.Schema
	ToolChoice  ToolChoice
}

// Message is a gateway-level chat message, already normalized away from
// any provider dialect.
type Message struct {
	Role       string // "system" | "user" | "assistant" | "tool"
	Content    string
	ToolCallID string
	ToolCalls  []tool.Call
}

// Usage is token accounting for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason mirrors spec §4.1/§4.7's fixed vocabulary.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// Response is one chat-completion result.
type Response struct {
	Content      string
	Model        string
	Usage        Usage
	FinishReason FinishReason
	ToolCalls    []tool.Call
}

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	ContentDelta string
	Done         bool
	Final        *Response // populated on the terminal chunk
}

// Provider is the gateway's uniform surface over one LLM backend.
type Provider interface {
	// Complete performs one non-streaming chat-completion call.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream performs a streaming chat-completion call, sending chunks on
	// the returned channel. The error return covers only starting the
	// stream. However the stream ends, a final chunk with Done set and
	// Final holding the content received so far is sent and the channel is
	// closed; an error after the stream has started is not reported.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Name identifies the concrete model (e.g. "gpt-4o", "claude-3-5-sonnet").
	Name() string
}

// NewConfigError wraps a provider construction failure as ConfigInvalid,
// per spec §4.1 ("missing credentials => config-invalid").
func NewConfigError(message string, err error) error {
	return engerrors.Wrap(engerrors.KindConfigInvalid, message, err)
}

// NewTransportError wraps a network/5xx failure as TransportError, retried
// by the activity layer.
func NewTransportError(message string, err error) error {
	return engerrors.Wrap(engerrors.KindTransportError, message, err)
}
