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

// Package stream is the streaming projection layer (spec §4.12, §6): it
// turns one workflow invocation's discrete steps into a totally ordered
// event stream of the fixed {thinking, retrieving, retrieved, tool_start,
// tool_end, mcp_start, mcp_end, skill_start, skill_end, generating, chunk,
// complete, error, message_saved} event vocabulary.
//
// No example repo in the pack embeds this exact synthetic-preview-event
// design, so the projector is plain Go channels grounded directly on spec
// §4.12/§6 rather than on any one teacher file (hector's closest analogue
// is its SSE/A2A event plumbing, used only for the event-type-enum and
// ordering discipline).
package stream

import "time"

// Type is one of the fixed event-type vocabulary.
type Type string

const (
	EventThinking     Type = "thinking"
	EventRetrieving   Type = "retrieving"
	EventRetrieved    Type = "retrieved"
	EventToolStart    Type = "tool_start"
	EventToolEnd      Type = "tool_end"
	EventMCPStart     Type = "mcp_start"
	EventMCPEnd       Type = "mcp_end"
	EventSkillStart   Type = "skill_start"
	EventSkillEnd     Type = "skill_end"
	EventGenerating   Type = "generating"
	EventChunk        Type = "chunk"
	EventComplete     Type = "complete"
	EventError        Type = "error"
	EventMessageSaved Type = "message_saved"
)

// Event is one item of the ordered stream, carrying a small JSON-shaped
// payload per spec §6's table.
type Event struct {
	Type    Type
	Payload map[string]any
}

func ev(t Type, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{Type: t, Payload: payload}
}

func Thinking(step string) Event {
	p := map[string]any{}
	if step != "" {
		p["step"] = step
	}
	return ev(EventThinking, p)
}

func Retrieving(kbName, queryPreview string) Event {
	return ev(EventRetrieving, map[string]any{
		"knowledge_base_name": kbName,
		"query_preview":       truncate(queryPreview, 100),
	})
}

func Retrieved(docCount, chunksUsed int) Event {
	return ev(EventRetrieved, map[string]any{
		"document_count": docCount,
		"chunks_used":    chunksUsed,
	})
}

func ToolStart(toolName, toolID, argsPreview string) Event {
	p := map[string]any{"tool_name": toolName}
	if toolID != "" {
		p["tool_id"] = toolID
	}
	if argsPreview != "" {
		p["args_preview"] = truncate(argsPreview, 200)
	}
	return ev(EventToolStart, p)
}

func ToolEnd(toolName string, success bool, resultPreview string) Event {
	p := map[string]any{"tool_name": toolName, "success": success}
	if resultPreview != "" {
		p["result_preview"] = truncate(resultPreview, 200)
	}
	return ev(EventToolEnd, p)
}

func MCPStart(serverName, toolName string) Event {
	return ev(EventMCPStart, map[string]any{"server_name": serverName, "tool_name": toolName})
}

func MCPEnd(serverName, toolName string, success bool) Event {
	return ev(EventMCPEnd, map[string]any{"server_name": serverName, "tool_name": toolName, "success": success})
}

func SkillStart(skillName, skillID string) Event {
	return ev(EventSkillStart, map[string]any{"skill_name": skillName, "skill_id": skillID})
}

func SkillEnd(skillName, skillID string) Event {
	return ev(EventSkillEnd, map[string]any{"skill_name": skillName, "skill_id": skillID})
}

func Generating() Event { return ev(EventGenerating, nil) }

func Chunk(content string, tokenCount int) Event {
	p := map[string]any{"content": content}
	if tokenCount > 0 {
		p["token_count"] = tokenCount
	}
	return ev(EventChunk, p)
}

func Complete(messageID, executionID string, totalTokens int) Event {
	p := map[string]any{"message_id": messageID}
	if executionID != "" {
		p["execution_id"] = executionID
	}
	if totalTokens > 0 {
		p["total_tokens"] = totalTokens
	}
	return ev(EventComplete, p)
}

func Error(message, errType string, recoverable bool) Event {
	p := map[string]any{"error": message, "recoverable": recoverable}
	if errType != "" {
		p["error_type"] = errType
	}
	return ev(EventError, p)
}

func MessageSaved(role, messageID string) Event {
	p := map[string]any{"role": role}
	if messageID != "" {
		p["message_id"] = messageID
	}
	return ev(EventMessageSaved, p)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Sink receives real events as the control loop executes; the projector
// is the only consumer in this design. Implementations must not block
// indefinitely (caller disconnects are advisory, spec §5).
type Sink interface {
	Emit(Event)
}

// ChanSink is a Sink backed by a buffered channel, used by Projector's
// real-event feed.
type ChanSink struct {
	ch chan Event
}

func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan Event, buffer)}
}

func (s *ChanSink) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
		// Caller is not draining fast enough; drop rather than block the
		// workflow (spec §5: "workflow continues to completion so its
		// durable state is not wasted").
	}
}

func (s *ChanSink) Close() { close(s.ch) }

// ToolPreview describes one bound tool for the projector's pre-LLM
// narrative preview.
type ToolPreview struct {
	Name   string
	IsMCP  bool
	Server string // set when IsMCP
}

// Plan is the static, pre-execution shape of one invocation, used to
// synthesize the pre-LLM narrative before any real events arrive.
type Plan struct {
	HasKnowledge    bool
	KnowledgeName   string
	QueryPreview    string
	PreviewTools    []ToolPreview // up to two, per spec §4.12
	ChunkSize       int           // default 50
	ChunkDelay      time.Duration // default small
}

func (p Plan) chunkSize() int {
	if p.ChunkSize <= 0 {
		return 50
	}
	return p.ChunkSize
}

func (p Plan) chunkDelay() time.Duration {
	if p.ChunkDelay <= 0 {
		return 15 * time.Millisecond
	}
	return p.ChunkDelay
}
