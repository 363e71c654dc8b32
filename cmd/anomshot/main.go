// Copyright 2025 Tom Barlow
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
	"github.com/anomshot/anomshot/internal/cli"
	"github.com/anomshot/anomshot/internal/commands/generate"
	historycmd "github.com/anomshot/anomshot/internal/commands/history"
	"github.com/anomshot/anomshot/internal/commands/providers"
	"github.com/anomshot/anomshot/internal/commands/report"
	"github.com/anomshot/anomshot/internal/commands/scenarios"
	setupcmd "github.com/anomshot/anomshot/internal/commands/setup"
	versioncmd "github.com/anomshot/anomshot/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Core batch commands
	rootCmd.AddCommand(generate.NewCommand())
	rootCmd.AddCommand(scenarios.NewCommand())

	// Configuration commands
	rootCmd.AddCommand(providers.NewCommand())
	rootCmd.AddCommand(setupcmd.NewCommand())

	// Inspection commands
	rootCmd.AddCommand(report.NewCommand())
	rootCmd.AddCommand(historycmd.NewCommand())

	rootCmd.AddCommand(versioncmd.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
