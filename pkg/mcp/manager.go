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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/observability"
	"github.com/aradaai/agentcore/pkg/tool"
)

// ServerConfig describes one MCP server instance to connect to.
type ServerConfig struct {
	ID       string
	Name     string
	Template string
	URL      string
	Headers  map[string]string
}

// ServerStatus is the manager's public view of one server's health.
type ServerStatus struct {
	ID           string
	Name         string
	Template     string
	State        State
	ErrorMessage string
	ToolCount    int
	LastUsedAt   time.Time
}

type serverEntry struct {
	config ServerConfig
	client *Client
	tools  []string // sanitized registry names owned by this server
}

// Manager owns the process-wide pool of MCP clients and wires their tools
// into a tool registry under "<server_id>:<tool_name>" names (spec §4.4).
// It is the sole writer of MCP-owned registry entries.
type Manager struct {
	registry *tool.Registry
	metrics  *observability.Metrics

	mu      sync.RWMutex
	servers map[string]*serverEntry
}

// NewManager constructs a manager bound to the given tool registry.
func NewManager(registry *tool.Registry) *Manager {
	return &Manager{
		registry: registry,
		servers:  make(map[string]*serverEntry),
	}
}

// SetMetrics wires a Prometheus metrics collector; nil disables recording.
func (m *Manager) SetMetrics(metrics *observability.Metrics) {
	m.metrics = metrics
}

// AddServer connects to a server, discovers its tools, and (unless
// registerTools is false) registers them with the tool registry. On
// failure the server is tracked with status error rather than dropped,
// so HealthCheck and a later reconnect sweep can observe it.
func (m *Manager) AddServer(ctx context.Context, cfg ServerConfig, registerTools bool) error {
	client := NewClient(cfg.ID, cfg.URL, cfg.Headers)

	tools, err := client.Connect(ctx)
	if err != nil {
		m.mu.Lock()
		m.servers[cfg.ID] = &serverEntry{config: cfg, client: client}
		m.mu.Unlock()
		m.metrics.SetMCPServerActive(cfg.ID, false)
		slog.Warn("mcp: add_server failed", "server", cfg.ID, "url", cfg.URL, "error", err)
		return err
	}

	var owned []string
	if registerTools {
		for _, t := range tools {
			registryName := fmt.Sprintf("%s:%s", cfg.ID, t.Name)
			err := m.registry.Register(tool.Descriptor{
				Name:        registryName,
				Description: t.Description,
				Params:      t.Params,
			}, m.executorFor(cfg.ID, t.Name))
			if err != nil {
				slog.Warn("mcp: failed to register tool", "server", cfg.ID, "tool", t.Name, "error", err)
				continue
			}
			owned = append(owned, registryName)
		}
	}

	m.mu.Lock()
	m.servers[cfg.ID] = &serverEntry{config: cfg, client: client, tools: owned}
	m.mu.Unlock()
	m.metrics.SetMCPServerActive(cfg.ID, true)

	slog.Info("mcp: server connected", "server", cfg.ID, "url", cfg.URL, "tool_count", len(owned))
	return nil
}

func (m *Manager) executorFor(serverID, toolName string) tool.Executor {
	return func(ctx context.Context, args map[string]any) tool.Result {
		m.mu.RLock()
		entry, ok := m.servers[serverID]
		m.mu.RUnlock()
		if !ok {
			m.metrics.RecordMCPCall(serverID, toolName, 0, false)
			return tool.Result{Success: false, Error: fmt.Sprintf("mcp server %s not found", serverID)}
		}

		start := time.Now()
		out, err := entry.client.CallTool(ctx, toolName, args)
		m.metrics.RecordMCPCall(serverID, toolName, time.Since(start), err == nil)
		if err != nil {
			return tool.Result{Success: false, Error: err.Error()}
		}
		return tool.Result{Success: true, Output: out}
	}
}

// RemoveServer unregisters all of a server's tools, disconnects, and
// drops it from the pool.
func (m *Manager) RemoveServer(id string) {
	m.mu.Lock()
	entry, ok := m.servers[id]
	if ok {
		delete(m.servers, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	for _, name := range entry.tools {
		m.registry.Unregister(name)
	}
	m.metrics.SetMCPServerActive(id, false)
}

// HealthCheck reports the current status of every known server.
func (m *Manager) HealthCheck() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ServerStatus, 0, len(m.servers))
	for id, entry := range m.servers {
		state := entry.client.State()
		lastErr := entry.client.LastError()
		if state == StateDisconnected && lastErr != "" {
			state = StateError
		}
		out = append(out, ServerStatus{
			ID:           id,
			Name:         entry.config.Name,
			Template:     entry.config.Template,
			State:        state,
			ErrorMessage: lastErr,
			ToolCount:    len(entry.tools),
		})
	}
	return out
}

// ResolveTemplate finds the single connected server currently running the
// given template, for "mcp:<template>:<tool>" name resolution (spec §4.2).
// Returns ToolUnknown if zero or more than one server matches.
func (m *Manager) ResolveTemplate(template string) (serverID string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []string
	for id, entry := range m.servers {
		if entry.config.Template == template && entry.client.State() == StateActive {
			matches = append(matches, id)
		}
	}
	if len(matches) != 1 {
		return "", engerrors.New(engerrors.KindToolUnknown,
			fmt.Sprintf("mcp: template %q resolved to %d connected servers, want exactly 1", template, len(matches)))
	}
	return matches[0], nil
}

// ReconnectAll attempts AddServer for every given server instance. Partial
// failures do not abort the sweep (spec §4.4, "reconnect sweep").
func (m *Manager) ReconnectAll(ctx context.Context, configs []ServerConfig) {
	for _, cfg := range configs {
		if err := m.AddServer(ctx, cfg, true); err != nil {
			slog.Warn("mcp: reconnect sweep failed for server", "server", cfg.ID, "error", err)
		}
	}
}
