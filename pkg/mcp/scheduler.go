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
	"log/slog"

	"github.com/robfig/cron/v3"
)

// HealthScheduler periodically sweeps the manager's servers, reconnecting
// any that are disconnected or in error. One failed server never blocks
// the sweep for the rest (spec §4.4).
type HealthScheduler struct {
	manager *Manager
	cron    *cron.Cron
	configs func() []ServerConfig
}

// NewHealthScheduler builds a scheduler that reconnects disconnected/error
// servers on every tick, using configs() to look up each server's current
// connection details (URL, headers) at reconnect time.
func NewHealthScheduler(manager *Manager, configs func() []ServerConfig) *HealthScheduler {
	return &HealthScheduler{
		manager: manager,
		cron:    cron.New(),
		configs: configs,
	}
}

// Start schedules the health-check sweep at the given cron expression
// (e.g. "*/1 * * * *" for every minute) and begins running it in the
// background. Call Stop to halt it.
func (s *HealthScheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (s *HealthScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *HealthScheduler) sweep(ctx context.Context) {
	statuses := s.manager.HealthCheck()
	unhealthy := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		if st.State != StateActive {
			unhealthy[st.ID] = true
		}
	}
	if len(unhealthy) == 0 {
		return
	}

	byID := make(map[string]ServerConfig)
	for _, cfg := range s.configs() {
		byID[cfg.ID] = cfg
	}

	for id := range unhealthy {
		cfg, ok := byID[id]
		if !ok {
			continue
		}
		if err := s.manager.AddServer(ctx, cfg, true); err != nil {
			slog.Warn("mcp: health-check reconnect failed", "server", id, "error", err)
		}
	}
}
