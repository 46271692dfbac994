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

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/validators"
	"github.com/aradaai/agentcore/pkg/workflow"
)

// applyValidatorHooks runs the optional post-response loop detector and
// hallucination checker (spec §4.10: "optionally after final content") and
// reshapes the lane's response when either flags a problem. Both default
// conservatively on failure, so a validator error never blocks the turn —
// it is simply skipped.
func (d *Dispatcher) applyValidatorHooks(c *workflow.Context, cfg *config.Config, inv *config.Invocation, lane laneResult) laneResult {
	history := make([]llm.Message, 0, len(inv.ConversationHistory))
	for _, m := range inv.ConversationHistory {
		history = append(history, toLLMMessage(m))
	}

	loopRes, err := workflow.ExecuteActivity(c, "detect_loop", lane.resp.Content, func(ctx context.Context) (validators.LoopResult, error) {
		return d.Acts.DetectLoop(ctx, history, lane.resp.Content), nil
	})
	if err == nil && loopRes.IsLoop && loopRes.AlreadyAnsweredWith != nil {
		lane.resp.Content = *loopRes.AlreadyAnsweredWith
		lane.resp.Confidence *= 0.9
		lane.resp.Metadata = mergeMeta(lane.resp.Metadata, map[string]any{"loop_detected": true})
	}

	hallRes, err := workflow.ExecuteActivity(c, "check_hallucination", lane.resp.Content, func(ctx context.Context) (validators.HallucinationResult, error) {
		return d.Acts.CheckHallucination(ctx, lane.resp.Content, lane.retrievedContext, inv.UserInput, lane.toolResults), nil
	})
	if err == nil && !hallRes.IsGrounded {
		if hallRes.SuggestedFix != nil && *hallRes.SuggestedFix != "" {
			lane.resp.Content = *hallRes.SuggestedFix
		}
		lane.resp.Confidence *= hallRes.Confidence
		lane.resp.Metadata = mergeMeta(lane.resp.Metadata, map[string]any{
			"hallucination_flagged": true,
			"ungrounded_claims":      hallRes.UngroundedClaims,
		})
	}

	return lane
}
