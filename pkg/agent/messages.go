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
	"strings"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/knowledge"
	"github.com/aradaai/agentcore/pkg/llm"
	"github.com/aradaai/agentcore/pkg/tool"
)

// buildSystemPrompt renders a persona into the system message every
// llm/rag/tool/full/router/orchestrator lane opens with, optionally
// followed by an extra block (the rag lane's "## RETRIEVED CONTEXT").
func buildSystemPrompt(p config.Persona, extra string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s", p.Role)
	if p.Expertise != "" {
		fmt.Fprintf(&b, ", an expert in %s", p.Expertise)
	}
	b.WriteString(".\n")

	if p.Goal != "" {
		fmt.Fprintf(&b, "\nGoal: %s\n", p.Goal)
	}

	if len(p.Instructions) > 0 {
		b.WriteString("\nInstructions:\n")
		for _, ins := range p.Instructions {
			fmt.Fprintf(&b, "- %s\n", ins)
		}
	}

	for _, ex := range p.FewShotExamples {
		fmt.Fprintf(&b, "\nExample:\nUser: %s\nAssistant: %s\n", ex.Input, ex.Output)
	}

	if extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
	}

	return strings.TrimSpace(b.String())
}

// buildContextBlock renders retrieved knowledge sources into the
// "## RETRIEVED CONTEXT" block the rag/full lanes inject into the system
// prompt (spec §4.10).
func buildContextBlock(sources []knowledge.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## RETRIEVED CONTEXT\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, s.Content)
	}
	return b.String()
}

// buildMessages assembles the gateway-level message list: system, then
// conversation history, then the current user turn (spec §4.10: "build
// messages [system, ...history, user] from persona").
func buildMessages(systemPrompt string, history []config.Message, userInput string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: string(config.RoleSystem), Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, toLLMMessage(m))
	}
	msgs = append(msgs, llm.Message{Role: string(config.RoleUser), Content: userInput})
	return msgs
}

func toLLMMessage(m config.Message) llm.Message {
	out := llm.Message{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, tool.Call{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	return out
}
