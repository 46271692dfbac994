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
	"fmt"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/stream"
	"github.com/aradaai/agentcore/pkg/validators"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// laneResult is one per-kind lane's outcome, plus the extra signal context
// the cross-cutting validator hooks (spec §4.10) need but that doesn't
// belong on the public config.AgentResponse.
type laneResult struct {
	resp *config.AgentResponse

	// retrievedContext is the rag/full lane's "## RETRIEVED CONTEXT" block,
	// used by check_hallucination as ground truth.
	retrievedContext string

	// toolResults are the tool calls made during the lane, for
	// check_hallucination's grounding check.
	toolResults []validators.ToolResultSummary
}

// runLane is the per-agent-kind dispatcher: a tagged-union switch over
// config.Kind (spec §9's re-architecture note), not an inheritance chain.
func (d *Dispatcher) runLane(c *workflow.Context, cfg *config.Config, inv *config.Invocation, sink stream.Sink) (laneResult, error) {
	switch cfg.Kind {
	case config.KindSimple:
		return d.runSimple(cfg, inv)
	case config.KindLLM:
		return d.runLLMKind(c, cfg, inv)
	case config.KindRAG:
		return d.runRAG(c, cfg, inv, sink)
	case config.KindTool, config.KindFull:
		return d.runToolLoop(c, cfg, inv, sink)
	case config.KindRouter:
		return d.runRouter(c, cfg, inv)
	case config.KindOrchestrator:
		return d.runOrchestrator(c, cfg, inv, sink)
	default:
		return laneResult{}, engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("agent: unknown kind %q", cfg.Kind))
	}
}
