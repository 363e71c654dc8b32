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

// Package scenarios implements the `anomshot scenarios` command group.
package scenarios

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/pkg/scenario"
)

// NewCommand creates the scenarios command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Inspect and validate scenario files",
	}
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newValidateCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list <file-or-glob>...",
		Short: "List the scenarios a batch would run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := scenario.Load(args...)
			if err != nil {
				return shared.NewInvalidInputError("invalid scenario files", err)
			}
			specs, err = scenario.Filter(specs, filter)
			if err != nil {
				return shared.NewInvalidInputError("invalid filter", err)
			}

			if shared.GetJSON() {
				data, err := json.MarshalIndent(specs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, s := range specs {
				fmt.Printf("%s  %s/%s\n", shared.Bold.Render(s.ID), s.Category, s.App)
				fmt.Printf("  %s\n", shared.Muted.Render(s.Prompt))
			}
			fmt.Printf("\n%d scenarios\n", len(specs))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only list scenarios matching an expression")
	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file-or-glob>...",
		Short: "Validate scenario files without generating anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := scenario.Load(args...)
			if err != nil {
				return shared.NewInvalidInputError("validation failed", err)
			}
			fmt.Println(shared.RenderOK(fmt.Sprintf("%d scenarios valid", len(specs))))
			return nil
		},
	}
}
