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

// Package tool defines tool descriptors, the process-global registry, and
// provider-native schema generation. Trimmed from hector's layered
// Tool/CallableTool/StreamingTool hierarchy (pkg/tool/tool.go) down to the
// single synchronous shape the spec names: {name, description, params} ->
// ToolResult.
package tool

import (
	"context"
	"regexp"
	"strings"
)

// ParamSchema describes one tool parameter.
type ParamSchema struct {
	Name        string
	Type        string // "string" | "number" | "boolean" | "array" | "object"
	Description string
	Required    bool
	Default     any
	Enum        []string
	Items       *ParamSchema // item schema when Type == "array"
}

// Descriptor is a tool's static definition, as held by the registry.
type Descriptor struct {
	// Name is the canonical name, which may contain ':' (e.g. MCP tools
	// "<server_id>:<tool_name>"). The gateway-facing schema always uses
	// the sanitized form.
	Name        string
	Description string
	Params      []ParamSchema
}

// Call is a single tool invocation requested by an LLM turn.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the outcome of executing a Call.
type Result struct {
	Success bool
	Output  any
	Error   string
}

// Executor runs a tool given parsed arguments.
type Executor func(ctx context.Context, args map[string]any) Result

// nameRE is the canonical (sanitized) tool-name shape required by most LLM
// providers' function-calling schemas.
var nameRE = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Sanitize maps a canonical registry name to the gateway-safe form by
// replacing every ':' with "__". Round-trips with Unsanitize for any name
// that does not itself contain "__" as a substitute for a colon collision
// (tool ids are expected not to contain "__" literally).
func Sanitize(name string) string {
	return strings.ReplaceAll(name, ":", "__")
}

// Unsanitize reverses Sanitize, turning "__" back into ":".
func Unsanitize(name string) string {
	return strings.ReplaceAll(name, "__", ":")
}

// ValidSanitizedName reports whether name matches the gateway-required
// shape ^[A-Za-z0-9_-]+$.
func ValidSanitizedName(name string) bool {
	return nameRE.MatchString(name)
}
