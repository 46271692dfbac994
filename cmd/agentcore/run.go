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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/aradaai/agentcore/pkg/activities"
	"github.com/aradaai/agentcore/pkg/agent"
	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/knowledge/chromemclient"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/llm/anthropicdialect"
	"github.com/aradaai/agentcore/pkg/llm/openaidialect"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/observability"
	"github.com/aradaai/agentcore/pkg/repository/filerepo"
	"github.com/aradaai/agentcore/pkg/tool"
)

// RunCmd drives one end-to-end invocation against a registered agent,
// wiring the full stack (providers, tool registry, MCP manager, knowledge
// client, activities, dispatcher) the way a standalone deployment would.
type RunCmd struct {
	Agent     string `arg:"" help:"Agent id."`
	Input     string `arg:"" help:"User input."`
	SessionID string `help:"Session id for conversation continuity." default:"cli-session"`
}

func (c *RunCmd) Run(cli *CLI) error {
	repo, err := filerepo.NewAgentRepository(cli.Store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:     os.Getenv("AGENTCORE_TRACING") == "1",
		ServiceName: "agentcore",
	}); err != nil {
		return fmt.Errorf("agentcore: init tracer: %w", err)
	}
	metrics, err := observability.NewMetrics(&observability.MetricsConfig{
		Enabled: os.Getenv("AGENTCORE_METRICS") == "1",
	})
	if err != nil {
		return fmt.Errorf("agentcore: init metrics: %w", err)
	}

	llmRegistry := llm.NewRegistry()
	registerProviders(llmRegistry)

	toolRegistry := tool.NewRegistry()
	mcpManager := mcp.NewManager(toolRegistry)
	mcpManager.SetMetrics(metrics)

	kb, err := knowledgeClient()
	if err != nil {
		return err
	}

	validatorProvider, err := llmRegistry.Get("openai")
	if err != nil {
		validatorProvider, err = llmRegistry.Get("anthropic")
	}
	if err != nil {
		return fmt.Errorf("agentcore: no validator-capable provider configured: %w", err)
	}

	acts := activities.New(llmRegistry, toolRegistry, mcpManager, kb, validatorProvider)
	acts.SetMetrics(metrics)
	dispatcher := agent.NewDispatcher(repo, acts)

	inv := &config.Invocation{
		UserInput: c.Input,
		SessionID: c.SessionID,
		RequestID: uuid.NewString(),
	}

	resp, err := dispatcher.Invoke(ctx, c.Agent, inv, nil)
	if err != nil && resp == nil {
		return err
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

// registerProviders wires an openai and/or anthropic provider from
// environment credentials; either or both may be absent in a given
// deployment, matching hector's own env-driven zero-config bootstrap.
func registerProviders(registry *llm.Registry) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		model := os.Getenv("AGENTCORE_OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o"
		}
		if p, err := openaidialect.New(openaidialect.Config{APIKey: key, Model: model, BaseURL: os.Getenv("OPENAI_BASE_URL")}); err == nil {
			registry.Register("openai", p)
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		model := os.Getenv("AGENTCORE_ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		if p, err := anthropicdialect.New(anthropicdialect.Config{APIKey: key, Model: model}); err == nil {
			registry.Register("anthropic", p)
		}
	}
}

func knowledgeClient() (*chromemclient.Client, error) {
	path := os.Getenv("AGENTCORE_VECTOR_STORE")
	return chromemclient.New(chromemclient.Config{
		PersistPath:     path,
		EmbeddingAPIKey: os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:  "text-embedding-3-small",
	})
}
