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

// Package repository defines the persistence interfaces the engine
// consumes as external collaborators (spec §6): agent configurations,
// conversation history, and MCP server instances. The engine never
// reimplements a store's internals — only these narrow interfaces, plus
// two concrete implementations for standalone/CLI use
// (filerepo, sqlrepo).
package repository

import (
	"context"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/mcp"
)

// AgentRepository owns agent configuration CRUD. The control loop only
// ever reads an immutable snapshot per invocation (spec §3's ownership
// rule); this interface is the one place that snapshot is produced.
type AgentRepository interface {
	Get(ctx context.Context, id string) (*config.Config, error)
	List(ctx context.Context) ([]*config.Config, error)
	Upsert(ctx context.Context, cfg *config.Config) error
	Delete(ctx context.Context, id string) error
}

// ConversationRepository owns per-session message history.
type ConversationRepository interface {
	AppendMessage(ctx context.Context, sessionID string, msg config.Message) error
	History(ctx context.Context, sessionID string) ([]config.Message, error)
}

// MCPServerRepository owns MCP server instance records (credentials are
// out of scope here — spec §6 treats secret storage as an external
// collaborator; this interface only carries a secret reference string).
type MCPServerRepository interface {
	Create(ctx context.Context, inst ServerRecord) error
	Get(ctx context.Context, id string) (*ServerRecord, error)
	List(ctx context.Context) ([]ServerRecord, error)
	UpdateStatus(ctx context.Context, id string, state mcp.State, errMessage string) error
	Delete(ctx context.Context, id string) error
}

// ServerRecord is the persisted shape of one MCP server instance (spec §3
// "MCP server instance"). SecretRef points at wherever credentials are
// actually stored (vault, secrets manager) — never the credentials
// themselves.
type ServerRecord struct {
	ID           string
	Name         string
	Template     string
	URL          string
	Headers      map[string]string
	SecretRef    string
	OAuthRef     string
	State        mcp.State
	ErrorMessage string
}
