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

// Package config defines the agent configuration data model: the immutable
// per-invocation snapshot the control loop reads, and the bindings that
// determine which lane (simple/llm/rag/tool/full/router/orchestrator) an
// agent runs.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind is the agent type, selecting which lane the control loop runs.
type Kind string

const (
	KindSimple       Kind = "simple"
	KindLLM          Kind = "llm"
	KindRAG          Kind = "rag"
	KindTool         Kind = "tool"
	KindFull         Kind = "full"
	KindRouter       Kind = "router"
	KindOrchestrator Kind = "orchestrator"
)

// Persona holds the agent's role, goal, and instruction set.
type Persona struct {
	Role             string            `yaml:"role"`
	Expertise        string            `yaml:"expertise,omitempty"`
	Goal             string            `yaml:"goal"`
	Instructions     []string          `yaml:"instructions,omitempty"`
	Rules            map[string]string `yaml:"rules,omitempty"` // "keyword: response" pairs for simple kind
	FewShotExamples  []FewShotExample  `yaml:"examples,omitempty"`
}

// FewShotExample is one example input/output pair. For the `simple` kind,
// Input is compiled into a pattern (after lower-casing/trimming and mapping
// `*` to `.*`); for other kinds it is rendered into the persona prompt.
type FewShotExample struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// LLMBinding configures the model call.
type LLMBinding struct {
	Provider         string   `yaml:"provider"` // "openai" | "anthropic"
	Model            string   `yaml:"model"`
	Temperature      *float64 `yaml:"temperature,omitempty"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty"`
}

func (b *LLMBinding) Validate() error {
	if b == nil {
		return fmt.Errorf("llm binding is required")
	}
	if b.Provider == "" {
		return fmt.Errorf("llm binding: provider is required")
	}
	if b.Model == "" {
		return fmt.Errorf("llm binding: model is required")
	}
	return nil
}

// KnowledgeBinding configures retrieval.
type KnowledgeBinding struct {
	Collection         string  `yaml:"collection"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	TopK               int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

func (b *KnowledgeBinding) SetDefaults() {
	if b.TopK <= 0 {
		b.TopK = 5
	}
}

func (b *KnowledgeBinding) Validate() error {
	if b == nil {
		return fmt.Errorf("knowledge binding is required")
	}
	if b.Collection == "" {
		return fmt.Errorf("knowledge binding: collection is required")
	}
	return nil
}

// ToolBinding enables one registry tool for an agent.
type ToolBinding struct {
	ToolID             string        `yaml:"tool_id"`
	Enabled            bool          `yaml:"enabled"`
	RequiresConfirmation bool        `yaml:"requires_confirmation,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	Retries            int           `yaml:"retries,omitempty"`
}

// RoutingTable maps category name -> target agent id. The "default" key
// (if present) is the fallback when no category matches.
type RoutingTable map[string]string

// AggregationStrategy is one of the orchestrator's child-result combinators.
type AggregationStrategy string

const (
	AggregationFirst AggregationStrategy = "first"
	AggregationAll   AggregationStrategy = "all"
	AggregationVote  AggregationStrategy = "vote"
	AggregationMerge AggregationStrategy = "merge"
	AggregationBest  AggregationStrategy = "best"
)

// OrchestratorMode selects how the orchestrator decides which children to
// invoke.
type OrchestratorMode string

const (
	OrchestratorModeLLMDriven OrchestratorMode = "llm-driven"
	OrchestratorModeWorkflow  OrchestratorMode = "workflow"
	OrchestratorModeHybrid    OrchestratorMode = "hybrid"
)

// RoutingCondition is how a hybrid-mode routing rule matches input.
type RoutingCondition string

const (
	RoutingContains   RoutingCondition = "contains"
	RoutingStartsWith RoutingCondition = "starts_with"
	RoutingEndsWith   RoutingCondition = "ends_with"
	RoutingRegex      RoutingCondition = "regex"
	RoutingExact      RoutingCondition = "exact"
)

// RoutingRule is one hybrid-mode rule, evaluated in priority order.
type RoutingRule struct {
	Priority    int              `yaml:"priority"`
	Disabled    bool             `yaml:"disabled,omitempty"`
	Condition   RoutingCondition `yaml:"condition"`
	Pattern     string           `yaml:"pattern"`
	TargetAgent string           `yaml:"target_agent"`
}

// WorkflowGraph is the externally supplied graph driving the orchestrator's
// "workflow" mode.
type WorkflowGraph struct {
	EntryStep string         `yaml:"entry_step"`
	Steps     []WorkflowStep `yaml:"steps"`
}

// WorkflowStepType distinguishes the four step shapes the workflow mode
// supports.
type WorkflowStepType string

const (
	StepAgent       WorkflowStepType = "agent"
	StepParallel    WorkflowStepType = "parallel"
	StepConditional WorkflowStepType = "conditional"
	StepLoop        WorkflowStepType = "loop"
)

// WorkflowStep is one node of a WorkflowGraph.
type WorkflowStep struct {
	ID          string               `yaml:"id"`
	Type        WorkflowStepType     `yaml:"type"`
	AgentID     string               `yaml:"agent_id,omitempty"`
	Input       string               `yaml:"input,omitempty"` // template over ${user_input},${steps.<id>.output},${context.<k>}
	Branches    []WorkflowStep       `yaml:"branches,omitempty"`
	Aggregation AggregationStrategy  `yaml:"aggregation,omitempty"`
	Condition   string               `yaml:"condition,omitempty"`
	MaxIter     int                  `yaml:"max_iterations,omitempty"`
	ExitWhen    string               `yaml:"exit_condition,omitempty"`
	Next        string               `yaml:"next,omitempty"`
}

// OrchestratorBinding configures orchestrator-kind agents.
type OrchestratorBinding struct {
	Mode                OrchestratorMode    `yaml:"mode"`
	ChildAgents         []string            `yaml:"child_agents"`
	DefaultAggregation  AggregationStrategy `yaml:"default_aggregation,omitempty"`
	MaxConcurrency      int                 `yaml:"max_concurrency,omitempty"` // max_parallel
	MaxNestingDepth     int                 `yaml:"max_nesting_depth,omitempty"`
	AllowSelfReference  bool                `yaml:"allow_self_reference,omitempty"`
	RoutingRules        []RoutingRule       `yaml:"routing_rules,omitempty"`
	FallbackToLLM       bool                `yaml:"fallback_to_llm,omitempty"`
	DefaultAgent        string              `yaml:"default_agent,omitempty"`
	MaxSameAgentCalls   int                 `yaml:"max_same_agent_calls,omitempty"`
	MaxIterations       int                 `yaml:"max_iterations,omitempty"`
	Graph               *WorkflowGraph      `yaml:"graph,omitempty"`
}

func (b *OrchestratorBinding) SetDefaults() {
	if b.MaxConcurrency <= 0 {
		b.MaxConcurrency = 5
	}
	if b.MaxNestingDepth <= 0 {
		b.MaxNestingDepth = 3
	}
	if b.MaxSameAgentCalls <= 0 {
		b.MaxSameAgentCalls = 3
	}
	if b.MaxIterations <= 0 {
		b.MaxIterations = 15
	}
	if b.DefaultAggregation == "" {
		b.DefaultAggregation = AggregationAll
	}
}

func (b *OrchestratorBinding) Validate() error {
	if b == nil {
		return fmt.Errorf("orchestrator binding is required")
	}
	switch b.Mode {
	case OrchestratorModeLLMDriven, OrchestratorModeHybrid:
		if len(b.ChildAgents) == 0 {
			return fmt.Errorf("orchestrator binding: at least one child agent is required")
		}
	case OrchestratorModeWorkflow:
		if b.Graph == nil || b.Graph.EntryStep == "" {
			return fmt.Errorf("orchestrator binding: workflow mode requires a graph with entry_step")
		}
	default:
		return fmt.Errorf("orchestrator binding: unknown mode %q", b.Mode)
	}
	return nil
}

// SafetyLevel is the strictness tier the safety filter applies.
type SafetyLevel string

const (
	SafetyLow     SafetyLevel = "low"
	SafetyMedium  SafetyLevel = "medium"
	SafetyHigh    SafetyLevel = "high"
	SafetyMaximum SafetyLevel = "maximum"
)

// SafetyBinding configures the pre/post safety gate.
type SafetyBinding struct {
	Level            SafetyLevel `yaml:"level"`
	BlockedTopics    []string    `yaml:"blocked_topics,omitempty"`
	BlockedRegexes   []string    `yaml:"blocked_patterns,omitempty"`
	TimeoutSeconds   int         `yaml:"timeout_seconds,omitempty"`
	CostCeilingUSD   float64     `yaml:"cost_ceiling_usd,omitempty"`
}

func (b *SafetyBinding) SetDefaults() {
	if b.Level == "" {
		b.Level = SafetyMedium
	}
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = 300
	}
}

// GovernanceBinding configures audit/rate-limit/confirmation policy.
type GovernanceBinding struct {
	AuditEnabled            bool     `yaml:"audit_enabled,omitempty"`
	RateLimitPerMinute      int      `yaml:"rate_limit_per_minute,omitempty"`
	ConfirmationRequiredFor []string `yaml:"confirmation_required_for,omitempty"`
}

// Config is the immutable per-invocation agent configuration snapshot.
type Config struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Kind    Kind   `yaml:"kind"`

	Persona Persona `yaml:"persona"`

	LLM          *LLMBinding          `yaml:"llm,omitempty"`
	Knowledge    *KnowledgeBinding    `yaml:"knowledge,omitempty"`
	Tools        []ToolBinding        `yaml:"tools,omitempty"`
	Routing      RoutingTable         `yaml:"routing,omitempty"`
	Orchestrator *OrchestratorBinding `yaml:"orchestrator,omitempty"`

	Safety     SafetyBinding      `yaml:"safety"`
	Governance GovernanceBinding  `yaml:"governance,omitempty"`

	// compiledPatterns caches the `simple` kind's compiled example
	// patterns so they are built once at config-load time rather than
	// once per invocation, per original_source/src/activities/simple_agent_activity.py.
	compiledPatterns []*regexp.Regexp
}

// SetDefaults fills in defaults across all bindings.
func (c *Config) SetDefaults() {
	c.Safety.SetDefaults()
	if c.Knowledge != nil {
		c.Knowledge.SetDefaults()
	}
	if c.Orchestrator != nil {
		c.Orchestrator.SetDefaults()
	}
	if c.Kind == KindSimple && c.compiledPatterns == nil {
		c.compilePatterns()
	}
}

// compilePatterns builds one unanchored regex per few-shot example input,
// from the lower-cased, trimmed input with `*` mapped to `.*`; the regex
// itself is case-sensitive, so callers match it against lower-cased input
// (as the simple lane does). Unanchored so a match is a
// substring search (regexp.MatchString's semantics, same as the original's
// re.search), not a full-string equality.
func (c *Config) compilePatterns() {
	c.compiledPatterns = make([]*regexp.Regexp, 0, len(c.Persona.FewShotExamples))
	for _, ex := range c.Persona.FewShotExamples {
		norm := strings.ToLower(strings.TrimSpace(ex.Input))
		escaped := regexp.QuoteMeta(norm)
		pattern := strings.ReplaceAll(escaped, `\*`, `.*`)
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		c.compiledPatterns = append(c.compiledPatterns, re)
	}
}

// CompiledPatterns returns the cached compiled example patterns in example
// order (first-hit-wins order for the simple lane).
func (c *Config) CompiledPatterns() []*regexp.Regexp {
	if c.compiledPatterns == nil && c.Kind == KindSimple {
		c.compilePatterns()
	}
	return c.compiledPatterns
}

// Validate enforces spec §3's per-kind mandatory bindings. An unsatisfied
// invariant is a config-invalid failure.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("config: id is required")
	}
	switch c.Kind {
	case KindSimple:
		// no mandatory bindings
	case KindLLM:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
	case KindRAG:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
		if err := c.Knowledge.Validate(); err != nil {
			return err
		}
	case KindTool:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
		if !hasEnabledTool(c.Tools) {
			return fmt.Errorf("config: tool kind requires at least one enabled tool binding")
		}
	case KindFull:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
		if err := c.Knowledge.Validate(); err != nil {
			return err
		}
		if !hasEnabledTool(c.Tools) {
			return fmt.Errorf("config: full kind requires at least one enabled tool binding")
		}
	case KindRouter:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
		if len(c.Routing) == 0 {
			return fmt.Errorf("config: router kind requires a routing table")
		}
	case KindOrchestrator:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
		if err := c.Orchestrator.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: unknown kind %q", c.Kind)
	}
	return nil
}

func hasEnabledTool(tools []ToolBinding) bool {
	for _, t := range tools {
		if t.Enabled {
			return true
		}
	}
	return false
}
