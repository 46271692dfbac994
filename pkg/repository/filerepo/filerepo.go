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

// Package filerepo implements the repository interfaces over a plain
// directory tree of YAML files, for CLI bootstrap and local development
// where a database is more than the task needs. Agent configs live under
// <root>/agents/<id>.yaml, MCP server records under <root>/mcp/<id>.yaml,
// and conversation history under <root>/conversations/<session_id>.yaml.
package filerepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/mcp"
	"github.com/aradaai/agentcore/pkg/repository"
)

// AgentRepository stores one YAML file per agent config under root/agents.
type AgentRepository struct {
	root string
	mu   sync.RWMutex
}

// NewAgentRepository roots an agent config store at dir (created if
// missing).
func NewAgentRepository(dir string) (*AgentRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filerepo: create agents dir: %w", err)
	}
	return &AgentRepository{root: dir}, nil
}

func (r *AgentRepository) path(id string) string {
	return filepath.Join(r.root, id+".yaml")
}

func (r *AgentRepository) Get(ctx context.Context, id string) (*config.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engerrors.New(engerrors.KindConfigInvalid, fmt.Sprintf("agent %q not found", id))
		}
		return nil, fmt.Errorf("filerepo: read agent %q: %w", id, err)
	}

	cfg := &config.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("filerepo: decode agent %q: %w", id, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]*config.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("filerepo: list agents: %w", err)
	}

	var out []*config.Config
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("filerepo: read %q: %w", e.Name(), err)
		}
		cfg := &config.Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("filerepo: decode %q: %w", e.Name(), err)
		}
		cfg.SetDefaults()
		out = append(out, cfg)
	}
	return out, nil
}

func (r *AgentRepository) Upsert(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("filerepo: encode agent %q: %w", cfg.ID, err)
	}
	return os.WriteFile(r.path(cfg.ID), data, 0o644)
}

func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filerepo: delete agent %q: %w", id, err)
	}
	return nil
}

var _ repository.AgentRepository = (*AgentRepository)(nil)

// MCPServerRepository stores one YAML file per MCP server record under
// root/mcp.
type MCPServerRepository struct {
	root string
	mu   sync.RWMutex
}

func NewMCPServerRepository(dir string) (*MCPServerRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filerepo: create mcp dir: %w", err)
	}
	return &MCPServerRepository{root: dir}, nil
}

func (r *MCPServerRepository) path(id string) string {
	return filepath.Join(r.root, id+".yaml")
}

func (r *MCPServerRepository) Create(ctx context.Context, rec repository.ServerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("filerepo: encode mcp server %q: %w", rec.ID, err)
	}
	return os.WriteFile(r.path(rec.ID), data, 0o644)
}

func (r *MCPServerRepository) Get(ctx context.Context, id string) (*repository.ServerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engerrors.New(engerrors.KindToolUnknown, fmt.Sprintf("mcp server %q not found", id))
		}
		return nil, fmt.Errorf("filerepo: read mcp server %q: %w", id, err)
	}

	rec := &repository.ServerRecord{}
	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("filerepo: decode mcp server %q: %w", id, err)
	}
	return rec, nil
}

func (r *MCPServerRepository) List(ctx context.Context) ([]repository.ServerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("filerepo: list mcp servers: %w", err)
	}

	var out []repository.ServerRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("filerepo: read %q: %w", e.Name(), err)
		}
		var rec repository.ServerRecord
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("filerepo: decode %q: %w", e.Name(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MCPServerRepository) UpdateStatus(ctx context.Context, id string, state mcp.State, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return engerrors.New(engerrors.KindToolUnknown, fmt.Sprintf("mcp server %q not found", id))
		}
		return fmt.Errorf("filerepo: read mcp server %q: %w", id, err)
	}
	var rec repository.ServerRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("filerepo: decode mcp server %q: %w", id, err)
	}
	rec.State = state
	rec.ErrorMessage = errMessage

	out, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("filerepo: encode mcp server %q: %w", id, err)
	}
	return os.WriteFile(r.path(id), out, 0o644)
}

func (r *MCPServerRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filerepo: delete mcp server %q: %w", id, err)
	}
	return nil
}

var _ repository.MCPServerRepository = (*MCPServerRepository)(nil)

// ConversationRepository appends each session's messages to one YAML file
// under root/conversations.
type ConversationRepository struct {
	root string
	mu   sync.RWMutex
}

func NewConversationRepository(dir string) (*ConversationRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filerepo: create conversations dir: %w", err)
	}
	return &ConversationRepository{root: dir}, nil
}

func (r *ConversationRepository) path(sessionID string) string {
	return filepath.Join(r.root, sessionID+".yaml")
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, sessionID string, msg config.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.readLocked(sessionID)
	if err != nil {
		return err
	}
	history = append(history, msg)

	data, err := yaml.Marshal(history)
	if err != nil {
		return fmt.Errorf("filerepo: encode conversation %q: %w", sessionID, err)
	}
	return os.WriteFile(r.path(sessionID), data, 0o644)
}

func (r *ConversationRepository) History(ctx context.Context, sessionID string) ([]config.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readLocked(sessionID)
}

func (r *ConversationRepository) readLocked(sessionID string) ([]config.Message, error) {
	data, err := os.ReadFile(r.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filerepo: read conversation %q: %w", sessionID, err)
	}
	var history []config.Message
	if err := yaml.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("filerepo: decode conversation %q: %w", sessionID, err)
	}
	return history, nil
}

var _ repository.ConversationRepository = (*ConversationRepository)(nil)
