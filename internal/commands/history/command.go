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

// Package history implements the `anomshot history` command group.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/internal/history"
)

// NewCommand creates the history command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded batch runs",
		Long: `History lists runs recorded in the local run database. Recording is
off by default; enable it with history.enabled in the configuration.`,
	}
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	return cmd
}

func openStore(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := config.Load(cmd.Context(), shared.ConfigPath(), nil)
	if err != nil {
		return nil, shared.NewInvalidInputError("invalid configuration", err)
	}
	if !cfg.History.Enabled {
		return nil, shared.NewInvalidInputError(
			"run history is disabled; set history.enabled=true in the config", nil)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, shared.NewExecutionError("cannot open history database", err)
	}
	return store, nil
}

func newListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return shared.NewExecutionError("cannot list runs", err)
			}

			if shared.GetJSON() {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			printer := message.NewPrinter(language.English)
			for _, r := range runs {
				status := shared.RenderOK(r.RunID)
				if r.FailureCount > 0 || r.Incomplete {
					status = shared.RenderWarn(r.RunID)
				}
				fmt.Println(status)
				printer.Printf("    %s  %s/%s  %d images  $%.4f  %d ok / %d failed\n",
					r.StartedAt.Format("2006-01-02 15:04"),
					r.Provider, r.Model, r.TotalImages, r.TotalCostUSD,
					r.SuccessCount, r.FailureCount)
			}
			if len(runs) == 0 {
				fmt.Println(shared.Muted.Render("no runs recorded"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return shared.NewInvalidInputError("run not found", err)
			}

			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
