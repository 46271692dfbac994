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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aradaai/agentcore/pkg/config"
	"github.com/aradaai/agentcore/pkg/repository/filerepo"
)

// RegisterCmd loads every *.yaml/*.yml agent config under a directory into
// the store, one agent per file, keyed by each config's own id (spec §6).
// Grounded on scripts/register_arada_agents.py's directory-of-configs
// registration behavior.
type RegisterCmd struct {
	Dir string `arg:"" help:"Directory of agent config YAML files." type:"path"`
}

func (c *RegisterCmd) Run(cli *CLI) error {
	repo, err := filerepo.NewAgentRepository(cli.Store)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return fmt.Errorf("agentcore: read %s: %w", c.Dir, err)
	}

	ctx := context.Background()
	registered := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.Dir, e.Name()))
		if err != nil {
			return fmt.Errorf("agentcore: read %s: %w", e.Name(), err)
		}
		cfg := &config.Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("agentcore: decode %s: %w", e.Name(), err)
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("agentcore: %s: %w", e.Name(), err)
		}
		if err := repo.Upsert(ctx, cfg); err != nil {
			return fmt.Errorf("agentcore: register %s: %w", cfg.ID, err)
		}
		fmt.Printf("registered %s (%s)\n", cfg.ID, cfg.Kind)
		registered++
	}

	fmt.Printf("\n%d agent(s) registered from %s\n", registered, c.Dir)
	return nil
}

// ListCmd lists every registered agent's id, name, and kind.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	repo, err := filerepo.NewAgentRepository(cli.Store)
	if err != nil {
		return err
	}

	configs, err := repo.List(context.Background())
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("no agents registered")
		return nil
	}
	for _, cfg := range configs {
		fmt.Printf("%-24s %-12s %s\n", cfg.ID, cfg.Kind, cfg.Name)
	}
	return nil
}

// ShowCmd prints one agent's configuration as YAML.
type ShowCmd struct {
	Agent string `arg:"" help:"Agent id."`
}

func (c *ShowCmd) Run(cli *CLI) error {
	repo, err := filerepo.NewAgentRepository(cli.Store)
	if err != nil {
		return err
	}
	cfg, err := repo.Get(context.Background(), c.Agent)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// DeleteCmd removes one agent from the store.
type DeleteCmd struct {
	Agent string `arg:"" help:"Agent id."`
}

func (c *DeleteCmd) Run(cli *CLI) error {
	repo, err := filerepo.NewAgentRepository(cli.Store)
	if err != nil {
		return err
	}
	if err := repo.Delete(context.Background(), c.Agent); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", c.Agent)
	return nil
}
