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

// Package openaidialect adapts the OpenAI-style dialect (spec §4.1): system
// is a regular message, tool results are separate "tool" messages addressed
// by tool_call_id, tool calls appear as a list on the assistant message,
// and arguments are transported as JSON strings.
package openaidialect

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

// Provider adapts a model served over the OpenAI chat-completion API.
type Provider struct {
	client *openai.Client
	model  string
}

// Config constructs an OpenAI-dialect provider.
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	Model   string
}

// New constructs a Provider, or a ConfigInvalid error if credentials are
// missing (spec §4.1).
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.NewConfigError("openai: api key is required", nil)
	}
	if cfg.Model == "" {
		return nil, llm.NewConfigError("openai: model is required", nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (p *Provider) Name() string { return p.model }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	ccReq := toChatRequest(p.model, req, false)

	resp, err := p.client.CreateChatCompletion(ctx, ccReq)
	if err != nil {
		return nil, llm.NewTransportError("openai: chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewTransportError("openai: empty choices in response", nil)
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: mapFinishReason(choice.FinishReason),
		ToolCalls:    fromOpenAIToolCalls(choice.Message.ToolCalls),
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	ccReq := toChatRequest(p.model, req, true)

	stream, err := p.client.CreateChatCompletionStream(ctx, ccReq)
	if err != nil {
		return nil, llm.NewTransportError("openai: stream creation failed", err)
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		var full string
		var finish llm.FinishReason = llm.FinishStop
		for {
			chunk, err := stream.Recv()
			if err != nil {
				out <- llm.StreamChunk{
					Done: true,
					Final: &llm.Response{
						Content:      full,
						Model:        p.model,
						FinishReason: finish,
					},
				}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				full += delta
				out <- llm.StreamChunk{ContentDelta: delta}
			}
			if chunk.Choices[0].FinishReason != "" {
				finish = mapFinishReason(chunk.Choices[0].FinishReason)
			}
		}
	}()

	return out, nil
}

func toChatRequest(model string, req llm.Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	ccReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Stop:     req.Stop,
	}
	if req.Temperature != nil {
		ccReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		ccReq.MaxTokens = *req.MaxTokens
	}
	if len(req.Tools) > 0 {
		ccReq.Tools = toOpenAITools(req.Tools)
		ccReq.ToolChoice = toOpenAIToolChoice(req.ToolChoice)
	}
	return ccReq
}

func toOpenAIMessage(m llm.Message) openai.ChatCompletionMessage {
	out := openai.ChatCompletionMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = toOpenAIToolCalls(m.ToolCalls)
	}
	return out
}

func toOpenAITools(schemas []tool.Schema) []openai.Tool {
	out := make([]openai.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}

// toOpenAIToolChoice maps the gateway's provider-neutral ToolChoice onto
// OpenAI's dialect: auto -> "auto", required -> "required", none ->
// "none", name -> a forced-function choice object.
func toOpenAIToolChoice(tc llm.ToolChoice) any {
	switch tc.Mode {
	case "required":
		return "required"
	case "none":
		return "none"
	case "name":
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tc.Name},
		}
	default:
		return "auto"
	}
}

func toOpenAIToolCalls(calls []tool.Call) []openai.ToolCall {
	out := make([]openai.ToolCall, 0, len(calls))
	for _, c := range calls {
		argsJSON, err := json.Marshal(c.Arguments)
		if err != nil {
			argsJSON = []byte("{}")
		}
		out = append(out, openai.ToolCall{
			ID:   c.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tool.Sanitize(c.Name),
				Arguments: string(argsJSON),
			},
		})
	}
	return out
}

// fromOpenAIToolCalls parses tool-call arguments defensively: malformed
// JSON yields empty args rather than failing the turn (spec §4.1,
// SchemaParseError in §7).
func fromOpenAIToolCalls(calls []openai.ToolCall) []tool.Call {
	out := make([]tool.Call, 0, len(calls))
	for _, c := range calls {
		var args map[string]any
		if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		out = append(out, tool.Call{
			ID:        c.ID,
			Name:      tool.Unsanitize(c.Function.Name),
			Arguments: args,
		})
	}
	return out
}

func mapFinishReason(r openai.FinishReason) llm.FinishReason {
	switch r {
	case openai.FinishReasonStop:
		return llm.FinishStop
	case openai.FinishReasonLength:
		return llm.FinishLength
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return llm.FinishToolCalls
	case openai.FinishReasonContentFilter:
		return llm.FinishContentFilter
	default:
		return llm.FinishStop
	}
}
