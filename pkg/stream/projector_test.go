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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-deadline:
			t.Fatal("timed out draining projector output")
			return events
		}
	}
}

func TestProjector_SimpleSuccess_EmitsFullSequence(t *testing.T) {
	plan := Plan{}
	p := NewProjector(plan)

	exec := func(ctx context.Context, emit Sink) (ExecResult, error) {
		return ExecResult{Content: "hello world", MessageID: "m1", ExecutionID: "e1", TotalTokens: 3}, nil
	}

	events := drain(t, p.Run(context.Background(), exec), time.Second)
	require.NotEmpty(t, events)
	assert.Equal(t, EventMessageSaved, events[0].Type)
	assert.Equal(t, EventThinking, events[1].Type)
	assert.Equal(t, EventGenerating, events[len(events)-3].Type)
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestProjector_KnowledgeBound_EmitsRetrieving(t *testing.T) {
	plan := Plan{HasKnowledge: true, KnowledgeName: "docs", QueryPreview: "what is x"}
	p := NewProjector(plan)

	exec := func(ctx context.Context, emit Sink) (ExecResult, error) {
		return ExecResult{Content: "answer"}, nil
	}

	events := drain(t, p.Run(context.Background(), exec), time.Second)
	found := false
	for _, e := range events {
		if e.Type == EventRetrieving {
			found = true
			assert.Equal(t, "docs", e.Payload["knowledge_base_name"])
		}
	}
	assert.True(t, found)
}

func TestProjector_ErrorFromExec_EmitsErrorEvent(t *testing.T) {
	p := NewProjector(Plan{})
	exec := func(ctx context.Context, emit Sink) (ExecResult, error) {
		return ExecResult{}, assertError{"boom"}
	}

	events := drain(t, p.Run(context.Background(), exec), time.Second)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "boom", last.Payload["error"])
}

func TestProjector_RealToolEvent_SuppressesDuplicatePreview(t *testing.T) {
	plan := Plan{PreviewTools: []ToolPreview{{Name: "search"}}}
	p := NewProjector(plan)

	exec := func(ctx context.Context, emit Sink) (ExecResult, error) {
		emit.Emit(ToolStart("search", "call1", "query here"))
		emit.Emit(ToolEnd("search", true, "found it"))
		return ExecResult{Content: "done"}, nil
	}

	events := drain(t, p.Run(context.Background(), exec), time.Second)
	toolStarts := 0
	toolEnds := 0
	for _, e := range events {
		if e.Type == EventToolStart {
			toolStarts++
		}
		if e.Type == EventToolEnd {
			toolEnds++
		}
	}
	assert.Equal(t, 1, toolStarts, "preview + real tool_start for the same name should collapse to one event")
	assert.Equal(t, 1, toolEnds)
}

func TestProjector_ContextCancelled_ClosesChannel(t *testing.T) {
	p := NewProjector(Plan{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := func(ctx context.Context, emit Sink) (ExecResult, error) {
		time.Sleep(50 * time.Millisecond)
		return ExecResult{Content: "late"}, nil
	}

	ch := p.Run(ctx, exec)
	for range ch {
		// drain until closed; cancellation should close it quickly without hanging the test.
	}
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
