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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
)

// TestRunSimple_PatternHit_IsSubstringMatch pins spec.md's literal scenario
// 1: example {input:"hello"} against invocation "Hello!" must hit the
// pattern branch even though the normalized input ("hello!") is not equal
// to the example ("hello") — the original's simple_agent.py builds its
// regex unanchored and matches with re.search, i.e. substring search, not
// full-string equality.
func TestRunSimple_PatternHit_IsSubstringMatch(t *testing.T) {
	cfg := &config.Config{
		ID:   "greeter",
		Kind: config.KindSimple,
		Persona: config.Persona{
			Goal:            "greet users",
			FewShotExamples: []config.FewShotExample{{Input: "hello", Output: "hi there"}},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	d := &Dispatcher{}
	lane, err := d.runSimple(cfg, &config.Invocation{UserInput: "Hello!"})
	require.NoError(t, err)

	assert.Equal(t, "hi there", lane.resp.Content)
	assert.Equal(t, 1.0, lane.resp.Confidence)
	assert.Equal(t, "pattern", lane.resp.Metadata["match_type"])
}

func TestRunSimple_NoMatch_FallsBackToKeywordThenDefault(t *testing.T) {
	cfg := &config.Config{
		ID:   "greeter",
		Kind: config.KindSimple,
		Persona: config.Persona{
			Goal:            "help with billing",
			FewShotExamples: []config.FewShotExample{{Input: "hello", Output: "hi there"}},
			Rules:           map[string]string{"refund": "I can process refunds."},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	d := &Dispatcher{}

	lane, err := d.runSimple(cfg, &config.Invocation{UserInput: "I need a refund please"})
	require.NoError(t, err)
	assert.Equal(t, "I can process refunds.", lane.resp.Content)
	assert.Equal(t, 0.8, lane.resp.Confidence)
	assert.Equal(t, "keyword", lane.resp.Metadata["match_type"])

	lane, err = d.runSimple(cfg, &config.Invocation{UserInput: "what time is it"})
	require.NoError(t, err)
	assert.Equal(t, "I can help you with: help with billing", lane.resp.Content)
	assert.Equal(t, 0.5, lane.resp.Confidence)
	assert.Equal(t, "default", lane.resp.Metadata["match_type"])
}
