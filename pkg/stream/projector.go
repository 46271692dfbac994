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

package stream

import (
	"context"
	"strings"
	"time"
)

// ExecResult is what Projector.Run needs from the underlying invocation once it
// completes: the final content plus the ids/usage the terminal `complete`
// event carries.
type ExecResult struct {
	Content     string
	MessageID   string
	ExecutionID string
	TotalTokens int
}

// Execute runs the actual invocation. emit is a Sink the invocation may use
// to report real tool_start/tool_end/mcp_start/mcp_end events as they
// happen; Execute must return once the invocation reaches a terminal
// state, even if the caller of Run has stopped draining the output
// channel (spec §5: "workflow continues to completion").
type Execute func(ctx context.Context, emit Sink) (ExecResult, error)

// Projector turns one invocation into the ordered client event stream
// (spec §4.12). It synthesizes a pre-LLM narrative ahead of the real
// execution and reconciles real tool/mcp events against the synthesized
// previews as they supersede them.
type Projector struct {
	plan Plan
}

func NewProjector(plan Plan) *Projector {
	return &Projector{plan: plan}
}

// Run starts the invocation (via exec) and returns a channel of ordered
// events terminating in exactly one of {complete, error} (spec §8). A
// message_saved(role="user") event opens the stream, mirroring the
// original's executor saving the incoming turn before any narrative
// begins; no message_saved is emitted after the terminal event. If ctx is
// cancelled the channel is closed early (caller disconnect is advisory;
// exec keeps running to completion in its own goroutine per spec §5).
func (p *Projector) Run(ctx context.Context, exec Execute) <-chan Event {
	out := make(chan Event, 32)
	real := NewChanSink(32)

	go func() {
		defer close(out)

		send := func(e Event) bool {
			select {
			case out <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(MessageSaved("user", "")) {
			return
		}

		if !send(Thinking("")) {
			return
		}

		if p.plan.HasKnowledge {
			if !send(Retrieving(p.plan.KnowledgeName, p.plan.QueryPreview)) {
				return
			}
		}

		previewed := make(map[string]bool, len(p.plan.PreviewTools))
		preview := p.plan.PreviewTools
		if len(preview) > 2 {
			preview = preview[:2]
		}
		for _, t := range preview {
			previewed[t.Name] = true
			var e Event
			if t.IsMCP {
				e = MCPStart(t.Server, t.Name)
			} else {
				e = ToolStart(t.Name, "", "")
			}
			if !send(e) {
				return
			}
		}

		resultCh := make(chan execOutcome, 1)
		go func() {
			res, err := exec(context.WithoutCancel(ctx), real)
			resultCh <- execOutcome{res: res, err: err}
			real.Close()
		}()

		realCh := real.ch
		var outcome execOutcome
		gotOutcome := false
		for !gotOutcome || realCh != nil {
			select {
			case e, ok := <-realCh:
				if !ok {
					realCh = nil
					continue
				}
				if suppressPreviewDuplicate(e, previewed) {
					continue
				}
				if !send(e) {
					return
				}
			case o := <-resultCh:
				outcome = o
				gotOutcome = true
			case <-ctx.Done():
				return
			}
		}

		if outcome.err != nil {
			send(Error(outcome.err.Error(), "", false))
			return
		}

		if !send(Generating()) {
			return
		}

		chunks := chunkContent(outcome.res.Content, p.plan.chunkSize())
		delay := p.plan.chunkDelay()
		for i, chunk := range chunks {
			if !send(Chunk(chunk, 0)) {
				return
			}
			if i < len(chunks)-1 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
			}
		}

		send(Complete(outcome.res.MessageID, outcome.res.ExecutionID, outcome.res.TotalTokens))
	}()

	return out
}

type execOutcome struct {
	res ExecResult
	err error
}

// suppressPreviewDuplicate implements the first-writer-wins preview/real
// reconciliation policy: a real tool_start/mcp_start for a name already
// shown as a preview is not re-emitted (the preview already announced it);
// every other real event (including that tool's tool_end/mcp_end) is
// forwarded normally.
func suppressPreviewDuplicate(e Event, previewed map[string]bool) bool {
	if e.Type != EventToolStart && e.Type != EventMCPStart {
		return false
	}
	name, _ := e.Payload["tool_name"].(string)
	return previewed[name]
}

func chunkContent(content string, size int) []string {
	if content == "" {
		return nil
	}
	var chunks []string
	runes := []rune(content)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// PreviewArgs renders a compact args preview for a tool_start event.
func PreviewArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	var parts []string
	for k, v := range args {
		parts = append(parts, k)
		_ = v
	}
	return strings.Join(parts, ",")
}
