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

// Package confidence synthesizes a single [0,1] quality score from the
// per-step signals the control loop collects, following
// original_source/src/agents/confidence.py and spec §4.7 literally.
package confidence

import "strings"

// UncertaintyPhrases is the fixed, case-insensitive phrase list (glossary).
var UncertaintyPhrases = []string{
	"i'm not sure", "i'm not certain", "might be", "could be", "possibly",
	"perhaps", "i think", "it seems", "appears to be", "may not be accurate",
	"i don't have enough information",
}

// RefusalPhrases is the fixed, case-insensitive phrase list (glossary).
var RefusalPhrases = []string{
	"i can't", "i cannot", "i'm unable", "i am unable", "i don't have access",
	"beyond my capabilities", "outside my scope",
}

// ContainsAny reports whether text contains any phrase, case-insensitively.
func ContainsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

const (
	weightLLM       = 0.30
	weightTools     = 0.25
	weightRetrieval = 0.25
	weightResponse  = 0.20
)

// Signals mirrors config.ConfidenceSignals' fields this package needs,
// declared locally so this package has no dependency on pkg/config (pure
// scoring logic, reusable and independently testable).
type Signals struct {
	HasLLM         bool
	FinishReason   string
	ResponseLength int

	HasTools    bool
	ToolTotal   int
	ToolSuccess int
	ToolFailure int

	HasRetrieval     bool
	DocCount         int
	AvgRelevance     float64
	MinRelevance     float64
	HasRelevanceData bool

	ResponseText         string
	IterationsUsed       int
	ChildConfidences     []float64
	ChildFailures        int
	MaxIterationsReached bool
	Refusal              bool
}

// Compute returns the final clamped [0,1] confidence for one invocation.
func Compute(s Signals) float64 {
	var sum, weightTotal float64

	if s.HasLLM {
		sum += weightLLM * llmScore(s.FinishReason, s.ResponseLength)
		weightTotal += weightLLM
	}
	if s.HasTools {
		sum += weightTools * toolsScore(s.ToolTotal, s.ToolSuccess, s.ToolFailure)
		weightTotal += weightTools
	}
	if s.HasRetrieval {
		sum += weightRetrieval * retrievalScore(s)
		weightTotal += weightRetrieval
	}
	// Response category contributes whenever any response-side signal is
	// present; with no signals at all, the 0.5 fallback below applies.
	if s.ResponseText != "" || s.IterationsUsed > 0 || len(s.ChildConfidences) > 0 || s.ChildFailures > 0 || s.Refusal {
		sum += weightResponse * responseScore(s)
		weightTotal += weightResponse
	}

	var score float64
	if weightTotal == 0 {
		score = 0.5
	} else {
		score = sum / weightTotal
	}

	if s.MaxIterationsReached {
		score *= 0.7
	}
	refusal := s.Refusal || ContainsAny(s.ResponseText, RefusalPhrases)
	if refusal {
		score *= 0.5
	}

	return clamp01(score)
}

func llmScore(finishReason string, responseLen int) float64 {
	base := 0.85
	switch finishReason {
	case "stop":
		base = 0.9
	case "length":
		base = 0.6
	case "tool_calls":
		base = 0.85
	case "content_filter":
		base = 0.3
	}
	if responseLen <= 20 {
		base *= 0.8
	} else if responseLen > 50 {
		base *= 1.05
	}
	return base
}

func toolsScore(total, success, failure int) float64 {
	if total == 0 {
		return 0.5
	}
	rate := float64(success) / float64(total)
	score := 0.5 + 0.5*rate
	if failure > 2 {
		score *= 0.8
	}
	return score
}

func retrievalScore(s Signals) float64 {
	var score float64
	if s.HasRelevanceData {
		score = 0.5 + 0.4*s.AvgRelevance
	} else {
		score = 0.6
	}
	if s.DocCount >= 3 && s.MinRelevance > 0.7 {
		score *= 1.1
	}
	if s.HasRelevanceData && s.MinRelevance < 0.3 {
		score *= 0.85
	}
	return score
}

func responseScore(s Signals) float64 {
	base := 0.85
	if ContainsAny(s.ResponseText, UncertaintyPhrases) {
		base *= 0.85
	}
	if s.IterationsUsed > 8 {
		base *= 0.8
	} else if s.IterationsUsed > 5 {
		base *= 0.9
	}

	if len(s.ChildConfidences) > 0 {
		avg := average(s.ChildConfidences)
		min := minOf(s.ChildConfidences)
		base = 0.4*base + 0.4*avg + 0.2*min

		total := len(s.ChildConfidences) + s.ChildFailures
		var failureRatio float64
		if total > 0 {
			failureRatio = float64(s.ChildFailures) / float64(total)
		}
		base *= 1 - 0.5*failureRatio
	}

	return base
}

func average(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
