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

package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_NoSignals_DefaultsToHalf(t *testing.T) {
	// No category produces a score, so the 0.5 "no signals" fallback applies.
	score := Compute(Signals{})
	assert.InDelta(t, 0.5, score, 0.001)
}

func TestCompute_ClampedToUnitInterval(t *testing.T) {
	score := Compute(Signals{HasLLM: true, FinishReason: "stop", ResponseLength: 1000})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

// TestCompute_OrchestratorChildBlend uses spec §8 scenario 3's child
// confidences [0.9, 0.8] and response base 0.85, plus an LLM category with
// finish_reason=stop.
func TestCompute_OrchestratorChildBlend(t *testing.T) {
	score := Compute(Signals{
		HasLLM:           true,
		FinishReason:     "stop",
		ResponseLength:   100,
		ResponseText:     "merged",
		ChildConfidences: []float64{0.9, 0.8},
	})
	// Response category alone is 0.4*0.85 + 0.4*0.85 + 0.2*0.8 = 0.84; the
	// LLM category is 0.9*1.05 = 0.945 (stop, >50 chars). Weighted 0.3/0.2:
	// (0.3*0.945 + 0.2*0.84) / 0.5 = 0.903.
	assert.InDelta(t, 0.903, score, 0.001)
}

func TestCompute_MaxIterationsPenalty(t *testing.T) {
	withPenalty := Compute(Signals{HasTools: true, ToolTotal: 1, ToolSuccess: 1, MaxIterationsReached: true})
	withoutPenalty := Compute(Signals{HasTools: true, ToolTotal: 1, ToolSuccess: 1})
	assert.InDelta(t, withoutPenalty*0.7, withPenalty, 0.001)
}

func TestCompute_RefusalPenalty(t *testing.T) {
	score := Compute(Signals{ResponseText: "I cannot help with that request."})
	assert.Less(t, score, 0.5)
}

func TestToolsScore_FailurePenalty(t *testing.T) {
	assert.InDelta(t, 0.8*(0.5+0.5*float64(2)/5), toolsScore(5, 2, 3), 0.001)
}

func TestRetrievalScore_HighRelevanceBoost(t *testing.T) {
	s := Signals{HasRelevanceData: true, AvgRelevance: 0.9, DocCount: 3, MinRelevance: 0.8}
	expected := (0.5 + 0.4*0.9) * 1.1
	assert.InDelta(t, expected, retrievalScore(s), 0.001)
}

func TestContainsAny_CaseInsensitive(t *testing.T) {
	assert.True(t, ContainsAny("I'M NOT SURE about this", UncertaintyPhrases))
	assert.False(t, ContainsAny("this is certain", UncertaintyPhrases))
}
