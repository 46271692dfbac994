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

package filerepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/repository"
)

func TestAgentRepository_UpsertGetList(t *testing.T) {
	repo, err := NewAgentRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cfg := &config.Config{ID: "helper", Kind: config.KindSimple, Persona: config.Persona{Role: "r", Goal: "g"}}
	require.NoError(t, repo.Upsert(ctx, cfg))

	got, err := repo.Get(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, "helper", got.ID)
	assert.Equal(t, config.KindSimple, got.Kind)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAgentRepository_Get_NotFound(t *testing.T) {
	repo, err := NewAgentRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestAgentRepository_Delete(t *testing.T) {
	repo, err := NewAgentRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cfg := &config.Config{ID: "helper", Kind: config.KindSimple, Persona: config.Persona{Role: "r", Goal: "g"}}
	require.NoError(t, repo.Upsert(ctx, cfg))
	require.NoError(t, repo.Delete(ctx, "helper"))

	_, err = repo.Get(ctx, "helper")
	assert.Error(t, err)
}

func TestMCPServerRepository_CreateGetUpdateStatus(t *testing.T) {
	repo, err := NewMCPServerRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	rec := repository.ServerRecord{ID: "srv_abc", Name: "slack", Template: "slack", URL: "https://example.com"}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Get(ctx, "srv_abc")
	require.NoError(t, err)
	assert.Equal(t, "slack", got.Name)

	require.NoError(t, repo.UpdateStatus(ctx, "srv_abc", mcp.StateActive, ""))
	got, err = repo.Get(ctx, "srv_abc")
	require.NoError(t, err)
	assert.Equal(t, mcp.StateActive, got.State)
}

func TestConversationRepository_AppendAndHistory(t *testing.T) {
	repo, err := NewConversationRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.AppendMessage(ctx, "sess1", config.Message{Role: config.RoleUser, Content: "hi"}))
	require.NoError(t, repo.AppendMessage(ctx, "sess1", config.Message{Role: config.RoleAssistant, Content: "hello"}))

	history, err := repo.History(ctx, "sess1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "hello", history[1].Content)
}

func TestConversationRepository_History_UnknownSessionReturnsEmpty(t *testing.T) {
	repo, err := NewConversationRepository(t.TempDir())
	require.NoError(t, err)

	history, err := repo.History(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}
