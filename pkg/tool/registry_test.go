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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRoundTrip(t *testing.T) {
	names := []string{"srv_abc:list_events", "plain_tool", "a-b-c", "google-calendar:create_event"}
	for _, n := range names {
		s := Sanitize(n)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, s)
		assert.Equal(t, n, Unsanitize(s))
	}
}

func TestBuildSchema_Soundness(t *testing.T) {
	desc := Descriptor{
		Name:        "srv:search",
		Description: "search things",
		Params: []ParamSchema{
			{Name: "query", Type: "string", Required: true},
			{Name: "tags", Type: "array"},
		},
	}
	schema := BuildSchema(desc)
	assert.Equal(t, "srv__search", schema.Name)
	assert.Equal(t, "object", schema.Parameters["type"])
	props := schema.Parameters["properties"].(map[string]any)
	require.Contains(t, props, "query")
	require.Contains(t, props, "tags")
	tagsProp := props["tags"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, tagsProp["items"])
	required := schema.Parameters["required"].([]string)
	assert.Contains(t, required, "query")
	for _, r := range required {
		assert.Contains(t, props, r)
	}
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "nope", nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestRegistry_RegisterLookupExecute(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Descriptor{Name: "echo", Description: "echoes"}, func(ctx context.Context, args map[string]any) Result {
		return Result{Success: true, Output: args["text"]}
	})
	require.NoError(t, err)

	_, ok := r.Lookup("echo")
	assert.True(t, ok)

	res := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Output)

	r.Unregister("echo")
	_, ok = r.Lookup("echo")
	assert.False(t, ok)
}
