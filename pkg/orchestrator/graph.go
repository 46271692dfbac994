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

package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
)

// GraphRunner executes an externally supplied workflow graph (spec
// §4.11's "workflow" mode): each step is agent | parallel | conditional |
// loop, taking its input from a template string over ${user_input},
// ${steps.<id>.output}, ${context.<k>}.
type GraphRunner struct {
	graph   *config.WorkflowGraph
	invoker ChildInvoker
	inv     *config.Invocation

	mu    sync.Mutex
	steps map[string]string // step id -> output, for ${steps.<id>.output} interpolation
}

func NewGraphRunner(graph *config.WorkflowGraph, invoker ChildInvoker, inv *config.Invocation) *GraphRunner {
	return &GraphRunner{
		graph:   graph,
		invoker: invoker,
		inv:     inv,
		steps:   make(map[string]string),
	}
}

// Run executes the graph starting at EntryStep, following each step's Next,
// and returns the output of the last step in that chain.
func (g *GraphRunner) Run(ctx context.Context, userInput string, graphContext map[string]string) (string, error) {
	byID := make(map[string]config.WorkflowStep, len(g.graph.Steps))
	for _, s := range g.graph.Steps {
		byID[s.ID] = s
	}

	stepID := g.graph.EntryStep
	for stepID != "" {
		step, ok := byID[stepID]
		if !ok {
			return "", engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("orchestrator: workflow graph references unknown step %q", stepID))
		}
		output, err := g.runStep(ctx, step, userInput, graphContext)
		if err != nil {
			return "", err
		}
		g.mu.Lock()
		g.steps[step.ID] = output
		g.mu.Unlock()

		if step.Next == "" {
			return output, nil
		}
		stepID = step.Next
	}
	return "", engerrors.New(engerrors.KindConfigInvalid, "orchestrator: workflow graph has no entry step")
}

func (g *GraphRunner) runStep(ctx context.Context, step config.WorkflowStep, userInput string, graphContext map[string]string) (string, error) {
	switch step.Type {
	case config.StepAgent:
		input := g.interpolate(step.Input, userInput, graphContext)
		resp, err := g.invoker(ctx, step.AgentID, input, "", g.inv)
		if err != nil {
			return "", err
		}
		return resp.Content, nil

	case config.StepParallel:
		return g.runParallel(ctx, step, userInput, graphContext)

	case config.StepConditional:
		return g.runConditional(ctx, step, userInput, graphContext)

	case config.StepLoop:
		return g.runLoop(ctx, step, userInput, graphContext)

	default:
		return "", engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("orchestrator: unknown workflow step type %q", step.Type))
	}
}

func (g *GraphRunner) runParallel(ctx context.Context, step config.WorkflowStep, userInput string, graphContext map[string]string) (string, error) {
	results := make([]ChildResult, len(step.Branches))
	grp, gctx := errgroup.WithContext(ctx)
	for i, branch := range step.Branches {
		i, branch := i, branch
		grp.Go(func() error {
			out, err := g.runStep(gctx, branch, userInput, graphContext)
			if err != nil {
				results[i] = ChildResult{AgentID: branch.AgentID, Success: false, Error: err.Error()}
				return nil
			}
			results[i] = ChildResult{AgentID: branch.AgentID, Success: true, Content: out}
			return nil
		})
	}
	_ = grp.Wait()

	strategy := step.Aggregation
	if strategy == "" {
		strategy = config.AggregationAll
	}
	return Aggregate(ctx, strategy, results, nil)
}

func (g *GraphRunner) runConditional(ctx context.Context, step config.WorkflowStep, userInput string, graphContext map[string]string) (string, error) {
	expr := g.interpolate(step.Condition, userInput, graphContext)
	if len(step.Branches) < 2 {
		return "", engerrors.New(engerrors.KindConfigInvalid, "orchestrator: conditional step requires two branches (then, else)")
	}
	branch := step.Branches[1]
	if evalConditionTruthy(expr) {
		branch = step.Branches[0]
	}
	return g.runStep(ctx, branch, userInput, graphContext)
}

func (g *GraphRunner) runLoop(ctx context.Context, step config.WorkflowStep, userInput string, graphContext map[string]string) (string, error) {
	if len(step.Branches) == 0 {
		return "", engerrors.New(engerrors.KindConfigInvalid, "orchestrator: loop step requires a body branch")
	}
	body := step.Branches[0]
	maxIter := step.MaxIter
	if maxIter <= 0 {
		maxIter = 10
	}

	var output string
	for i := 0; i < maxIter; i++ {
		out, err := g.runStep(ctx, body, userInput, graphContext)
		if err != nil {
			return "", err
		}
		output = out
		g.mu.Lock()
		g.steps[body.ID] = out
		g.mu.Unlock()

		if step.ExitWhen != "" && evalConditionTruthy(g.interpolate(step.ExitWhen, userInput, graphContext)) {
			break
		}
	}
	return output, nil
}

var templateVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate resolves ${user_input}, ${steps.<id>.output}, and
// ${context.<k>} references in a template string.
func (g *GraphRunner) interpolate(template, userInput string, graphContext map[string]string) string {
	if template == "" {
		return userInput
	}
	g.mu.Lock()
	steps := make(map[string]string, len(g.steps))
	for k, v := range g.steps {
		steps[k] = v
	}
	g.mu.Unlock()

	return templateVar.ReplaceAllStringFunc(template, func(m string) string {
		key := templateVar.FindStringSubmatch(m)[1]
		switch {
		case key == "user_input":
			return userInput
		case strings.HasPrefix(key, "steps.") && strings.HasSuffix(key, ".output"):
			id := strings.TrimSuffix(strings.TrimPrefix(key, "steps."), ".output")
			return steps[id]
		case strings.HasPrefix(key, "context."):
			return graphContext[strings.TrimPrefix(key, "context.")]
		default:
			return m
		}
	})
}

// evalConditionTruthy treats a resolved condition string as truthy unless
// it is empty, "false", or "0" (case-insensitive) — the graph's condition
// language is a plain string expression per spec §4.11, not a full
// expression evaluator.
func evalConditionTruthy(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && s != "false" && s != "0"
}
