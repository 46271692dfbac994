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

// Command agentcore is the CLI for the engine.
//
// Usage:
//
//	agentcore register ./agents
//	agentcore list
//	agentcore show support-bot
//	agentcore delete support-bot
//	agentcore run support-bot "where is my order?"
package main

import (
	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface, following hector's
// struct-of-subcommands convention (cmd/hector/main.go).
type CLI struct {
	Register RegisterCmd `cmd:"" help:"Load every agent config under a directory into the store."`
	List     ListCmd     `cmd:"" help:"List registered agents."`
	Show     ShowCmd     `cmd:"" help:"Show one agent's configuration."`
	Delete   DeleteCmd   `cmd:"" help:"Delete a registered agent."`
	Run      RunCmd      `cmd:"" help:"Run one invocation against a registered agent."`

	Store string `help:"Path to the file-based agent store." default:".agentcore/agents" type:"path"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentcore"),
		kong.Description("A config-first multi-agent execution engine."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
