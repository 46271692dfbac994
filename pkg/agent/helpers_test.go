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

package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/activities"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/knowledge"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/tool"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// scriptedProvider returns one canned Response per Complete call, advancing
// through the script; the final entry repeats once exhausted. Mirrors
// pkg/orchestrator's own test double (orchestrator_test.go), declared
// separately since test doubles are not exported between packages.
type scriptedProvider struct {
	name    string
	calls   int32
	scripts []llm.Response
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	i := atomic.AddInt32(&p.calls, 1) - 1
	if int(i) >= len(p.scripts) {
		i = int32(len(p.scripts) - 1)
	}
	resp := p.scripts[i]
	return &resp, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	panic("not used")
}

func (p *scriptedProvider) Name() string {
	if p.name == "" {
		return "scripted"
	}
	return p.name
}

// fakeKnowledgeClient returns a fixed set of sources for any query.
type fakeKnowledgeClient struct {
	sources []knowledge.Source
	err     error
}

func (f *fakeKnowledgeClient) Search(ctx context.Context, collection, query string, topK int, scoreThreshold *float64) ([]knowledge.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.sources
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

// memRepo is an in-memory repository.AgentRepository for orchestrator
// child-agent resolution in tests.
type memRepo struct {
	configs map[string]*config.Config
}

func newMemRepo(cfgs ...*config.Config) *memRepo {
	r := &memRepo{configs: make(map[string]*config.Config)}
	for _, c := range cfgs {
		r.configs[c.ID] = c
	}
	return r
}

func (r *memRepo) Get(ctx context.Context, id string) (*config.Config, error) {
	c, ok := r.configs[id]
	if !ok {
		return nil, fmt.Errorf("memrepo: no agent %q", id)
	}
	return c, nil
}

func (r *memRepo) List(ctx context.Context) ([]*config.Config, error) {
	out := make([]*config.Config, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out, nil
}

func (r *memRepo) Upsert(ctx context.Context, c *config.Config) error {
	r.configs[c.ID] = c
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	delete(r.configs, id)
	return nil
}

// newTestActivities builds a real Activities bundle around a scripted
// provider and an optional knowledge client, registered under "test".
func newTestActivities(provider llm.Provider, kb knowledge.Client) *activities.Activities {
	registry := llm.NewRegistry()
	if provider != nil {
		registry.Register("test", provider)
	}
	toolRegistry := tool.NewRegistry()
	mcpMgr := mcp.NewManager(toolRegistry)
	return activities.New(registry, toolRegistry, mcpMgr, kb, provider)
}

// withContext runs f against a live workflow.Context, the only way a test
// outside pkg/workflow can obtain one (workflow.Context's fields are
// unexported by design, per spec §8's determinism discipline).
func withContext(t *testing.T, f func(c *workflow.Context)) {
	t.Helper()
	host := workflow.NewHost()
	res := host.Run(context.Background(), 5*time.Second, func(c *workflow.Context) (any, error) {
		f(c)
		return nil, nil
	})
	require.False(t, res.TimedOut, "test body exceeded the soft timeout")
}

func testLLMBinding() *config.LLMBinding {
	return &config.LLMBinding{Provider: "test", Model: "test-model"}
}
