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

// Package report implements the `anomshot report` command.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/pkg/generation/cost"
)

// NewCommand creates the report command.
func NewCommand() *cobra.Command {
	var jqExpr string

	cmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Inspect a batch report",
		Long: `Report pretty-prints a run report, or evaluates a jq expression
against it for scripted queries.`,
		Example: `  anomshot report outputs/reports/report_abc.json
  anomshot report report_abc.json --jq '.total_cost_usd'
  anomshot report report_abc.json --jq '.by_scenario[] | select(.success | not) | .scenario_id'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return shared.NewInvalidInputError("cannot read report", err)
			}

			if jqExpr != "" {
				return runQuery(jqExpr, data)
			}

			var summary cost.Summary
			if err := json.Unmarshal(data, &summary); err != nil {
				return shared.NewInvalidInputError("not a report file", err)
			}

			if shared.GetJSON() {
				fmt.Println(string(data))
				return nil
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&jqExpr, "jq", "", "Evaluate a jq expression against the report")
	return cmd
}

func runQuery(expr string, data []byte) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return shared.NewInvalidInputError("invalid jq expression", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return shared.NewInvalidInputError("not a report file", err)
	}

	iter := query.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return shared.NewExecutionError("jq evaluation failed", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

func printSummary(summary cost.Summary) {
	printer := message.NewPrinter(language.English)

	fmt.Println(shared.Header.Render(fmt.Sprintf("Run %s", summary.RunID)))
	printer.Printf("  provider:   %s (%s)\n", summary.Provider, summary.Model)
	printer.Printf("  started:    %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	printer.Printf("  images:     %d\n", summary.TotalImages)
	printer.Printf("  total cost: $%.4f\n", summary.TotalCostUSD)
	printer.Printf("  succeeded:  %d\n", summary.SuccessCount)
	printer.Printf("  failed:     %d\n", summary.FailureCount)
	if summary.Incomplete {
		fmt.Println(shared.RenderWarn("run was cancelled before completion"))
	}

	ids := make([]string, 0, len(summary.ByScenario))
	for id := range summary.ByScenario {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println()
	for _, id := range ids {
		entry := summary.ByScenario[id]
		if entry.Success {
			fmt.Println(shared.RenderOK(fmt.Sprintf("%s  $%.4f  %dms", id, entry.CostUSD, entry.DurationMS)))
		} else {
			fmt.Println(shared.RenderError(fmt.Sprintf("%s  [%s] %s", id, entry.ErrorCategory, entry.Error)))
		}
	}
}
