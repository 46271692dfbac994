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

package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// entry pairs a Descriptor with its Executor.
type entry struct {
	desc Descriptor
	exec Executor
}

// Registry is the process-global, readers-heavy map of tool name ->
// {descriptor, executor}, per spec §5's shared-resource policy. MCP
// adapters are added/removed by the MCP manager; other entries are owned
// by whoever registered them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces a tool under its canonical name.
func (r *Registry) Register(desc Descriptor, exec Executor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool: name is required")
	}
	if exec == nil {
		return fmt.Errorf("tool: executor is required for %q", desc.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[desc.Name] = entry{desc: desc, exec: exec}
	return nil
}

// Unregister removes a tool by canonical name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Lookup returns the descriptor for name, if registered.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.desc, ok
}

// Enumerate returns all registered descriptors, stably ordered by name.
func (r *Registry) Enumerate() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named tool's executor against args. The caller supplies
// the canonical (unsanitized) name.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("tool %q is not registered", name)}
	}
	return e.exec(ctx, args)
}

// Schema is the provider-native (OpenAI function-call shaped) schema for
// one tool, built from its Descriptor.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// BuildSchemas produces provider-native schemas for the given subset of
// registered tools (by canonical name), using the sanitized name as the
// gateway-facing identifier. Unknown names are skipped.
func (r *Registry) BuildSchemas(names []string) []Schema {
	out := make([]Schema, 0, len(names))
	for _, name := range names {
		desc, ok := r.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, BuildSchema(desc))
	}
	return out
}

// BuildSchema builds one provider-native schema from a Descriptor,
// guaranteeing the soundness invariants from spec §8: type:object,
// properties for every parameter, every required name present in
// properties, every array-typed property carrying items.
func BuildSchema(desc Descriptor) Schema {
	properties := make(map[string]any, len(desc.Params))
	required := make([]string, 0, len(desc.Params))

	for _, p := range desc.Params {
		prop := map[string]any{
			"type":        paramType(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Type == "array" {
			items := p.Items
			if items == nil {
				prop["items"] = map[string]any{"type": "string"}
			} else {
				prop["items"] = map[string]any{"type": paramType(items.Type)}
			}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return Schema{
		Name:        Sanitize(desc.Name),
		Description: desc.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func paramType(t string) string {
	if t == "" {
		return "string"
	}
	return t
}
