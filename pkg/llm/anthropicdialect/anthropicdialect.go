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

// Package anthropicdialect adapts the Anthropic-style dialect (spec §4.1):
// system is a side channel rather than a message, tool calls are tool_use
// content blocks on the assistant message, and tool results are
// tool_result blocks nested inside a user message rather than separate
// "tool" role messages.
package anthropicdialect

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

// Provider adapts a model served over the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
	model  anthropic.Model
}

// Config constructs an Anthropic-dialect provider.
type Config struct {
	APIKey string
	Model  string
}

// New constructs a Provider, or a ConfigInvalid error if credentials are
// missing (spec §4.1).
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.NewConfigError("anthropic: api key is required", nil)
	}
	if cfg.Model == "" {
		return nil, llm.NewConfigError("anthropic: model is required", nil)
	}

	return &Provider{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  anthropic.Model(cfg.Model),
	}, nil
}

func (p *Provider) Name() string { return string(p.model) }

const defaultMaxTokens = 4096

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params := toMessageParams(p.model, req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.NewTransportError("anthropic: messages.new failed", err)
	}

	content, toolCalls := fromAnthropicContent(resp.Content)
	return &llm.Response{
		Content:      content,
		Model:        string(resp.Model),
		FinishReason: mapStopReason(string(resp.StopReason)),
		ToolCalls:    toolCalls,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	params := toMessageParams(p.model, req)

	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)

		var full string
		var finish llm.FinishReason = llm.FinishStop
		acc := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				continue
			}

			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if textDelta, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && textDelta.Text != "" {
					full += textDelta.Text
					out <- llm.StreamChunk{ContentDelta: textDelta.Text}
				}
			}
		}

		if acc.StopReason != "" {
			finish = mapStopReason(string(acc.StopReason))
		}
		_, toolCalls := fromAnthropicContent(acc.Content)

		final := &llm.Response{
			Content:      full,
			Model:        string(p.model),
			FinishReason: finish,
			ToolCalls:    toolCalls,
		}
		if err := stream.Err(); err != nil {
			out <- llm.StreamChunk{Done: true, Final: final}
			return
		}
		out <- llm.StreamChunk{Done: true, Final: final}
	}()

	return out, nil
}

func toMessageParams(model anthropic.Model, req llm.Request) anthropic.MessageNewParams {
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	var system string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		messages = append(messages, toAnthropicMessage(m))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	params.Messages = messages

	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
		params.ToolChoice = toAnthropicToolChoice(req.ToolChoice)
	}

	return params
}

// toAnthropicMessage translates a gateway message into Anthropic's block
// model. A "tool" role message becomes a tool_result block wrapped in a
// user message, since Anthropic has no standalone tool-role message type.
func toAnthropicMessage(m llm.Message) anthropic.MessageParam {
	if m.Role == "tool" {
		return anthropic.NewUserMessage(
			anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
		)
	}

	blocks := []anthropic.ContentBlockParamUnion{}
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tool.Sanitize(tc.Name)))
	}

	if m.Role == "assistant" {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}

func toAnthropicTools(schemas []tool.Schema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		props, _ := s.Parameters["properties"].(map[string]any)
		var required []string
		if r, ok := s.Parameters["required"].([]string); ok {
			required = r
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}
	return out
}

// toAnthropicToolChoice maps the gateway's provider-neutral choice onto
// Anthropic's dialect: OpenAI's "required" has no direct Anthropic analog,
// so it maps to "any" (resolved Open Question, see design notes).
func toAnthropicToolChoice(tc llm.ToolChoice) anthropic.ToolChoiceUnionParam {
	switch tc.Mode {
	case "required":
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	case "none":
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	case "name":
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: tc.Name}}
	default:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}
}

// fromAnthropicContent splits a response's content blocks into the plain
// text portion and any tool_use blocks, defensively tolerating malformed
// tool-input JSON by yielding empty arguments rather than failing the turn.
func fromAnthropicContent(blocks []anthropic.ContentBlockUnion) (string, []tool.Call) {
	var text string
	var calls []tool.Call

	for _, b := range blocks {
		switch block := b.AsAny().(type) {
		case anthropic.TextBlock:
			text += block.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(block.Input, &args); err != nil {
				args = map[string]any{}
			}
			calls = append(calls, tool.Call{
				ID:        block.ID,
				Name:      tool.Unsanitize(block.Name),
				Arguments: args,
			})
		}
	}
	return text, calls
}

func mapStopReason(r string) llm.FinishReason {
	switch r {
	case "end_turn", "stop_sequence":
		return llm.FinishStop
	case "max_tokens":
		return llm.FinishLength
	case "tool_use":
		return llm.FinishToolCalls
	default:
		return llm.FinishStop
	}
}
