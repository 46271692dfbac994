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

package sqlrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/repository"
)

func TestAgentRepository_UpsertGetListDelete(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewAgentRepository(db)
	cfg := &config.Config{ID: "helper", Kind: config.KindSimple, Persona: config.Persona{Role: "r", Goal: "g"}}
	require.NoError(t, repo.Upsert(ctx, cfg))

	got, err := repo.Get(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, "helper", got.ID)

	cfg.Persona.Goal = "updated"
	require.NoError(t, repo.Upsert(ctx, cfg))
	got, err = repo.Get(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Persona.Goal)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, "helper"))
	_, err = repo.Get(ctx, "helper")
	assert.Error(t, err)
}

func TestMCPServerRepository_CreateGetUpdateListDelete(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewMCPServerRepository(db)
	id := NewServerID()
	rec := repository.ServerRecord{ID: id, Name: "slack", Template: "slack", URL: "https://example.com", Headers: map[string]string{"Authorization": "ref:secret1"}}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "slack", got.Name)
	assert.Equal(t, "ref:secret1", got.Headers["Authorization"])

	require.NoError(t, repo.UpdateStatus(ctx, id, mcp.StateActive, ""))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mcp.StateActive, got.State)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.Error(t, err)
}

func TestMCPServerRepository_UpdateStatus_UnknownErrors(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewMCPServerRepository(db)
	err = repo.UpdateStatus(ctx, "srv_missing", mcp.StateActive, "")
	assert.Error(t, err)
}

func TestConversationRepository_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewConversationRepository(db)
	require.NoError(t, repo.AppendMessage(ctx, "sess1", config.Message{Role: config.RoleUser, Content: "hi"}))
	require.NoError(t, repo.AppendMessage(ctx, "sess1", config.Message{Role: config.RoleAssistant, Content: "hello"}))

	history, err := repo.History(ctx, "sess1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "hello", history[1].Content)
}
