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

package mcp

import (
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSE_FirstCompleteEventWins(t *testing.T) {
	body := "event: message\n" +
		"data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"ok\":true}}\n" +
		"\n"
	resp, err := parseSSE(strings.NewReader(body))
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "ok")
}

func TestParseSSE_TrailingEventWithoutBlankLine(t *testing.T) {
	body := "data: {\"jsonrpc\":\"2.0\",\"id\":2,\"error\":{\"code\":-1,\"message\":\"boom\"}}"
	resp, err := parseSSE(strings.NewReader(body))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", resp.Error.Message)
}

func TestSchemaToParams_MapsIntegerAndDefaultsArrayItems(t *testing.T) {
	schema := mcpgo.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"count": map[string]any{"type": "integer"},
			"tags":  map[string]any{"type": "array"},
			"name":  map[string]any{"type": "string"},
		},
		Required: []string{"name"},
	}
	params := schemaToParams(schema)

	byName := map[string]int{}
	for i, p := range params {
		byName[p.Name] = i
	}

	assert.Equal(t, "number", params[byName["count"]].Type)
	assert.Equal(t, "array", params[byName["tags"]].Type)
	require.NotNil(t, params[byName["tags"]].Items)
	assert.Equal(t, "string", params[byName["tags"]].Items.Type)
	assert.True(t, params[byName["name"]].Required)
}

func TestManager_ResolveTemplate_RequiresExactlyOneActiveMatch(t *testing.T) {
	m := NewManager(nil)
	_, err := m.ResolveTemplate("google-calendar")
	assert.Error(t, err)
}

func TestCatalog_HeadersFor_OnlyKnownCredentials(t *testing.T) {
	tmpl, ok := GetTemplate("google-calendar")
	require.True(t, ok)

	headers := HeadersFor(tmpl, map[string]string{
		"GOOGLE_REFRESH_TOKEN": "rt-123",
		"UNRELATED":            "ignored",
	})
	assert.Equal(t, "rt-123", headers["X-Google-Refresh-Token"])
	assert.Len(t, headers, 1)
}
