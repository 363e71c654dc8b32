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

// Package providers implements the `anomshot providers` command.
package providers

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/internal/log"
)

type providerInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Model        string  `json:"model"`
	APIURL       string  `json:"api_url,omitempty"`
	APIKey       string  `json:"api_key,omitempty"`
	CostPerImage float64 `json:"cost_per_image"`
	Active       bool    `json:"active"`
}

// NewCommand creates the providers command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers with redacted credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), shared.ConfigPath(), nil)
			if err != nil {
				return shared.NewInvalidInputError("invalid configuration", err)
			}

			infos := make([]providerInfo, 0, len(cfg.Providers))
			for name, p := range cfg.Providers {
				info := providerInfo{
					Name:         name,
					Type:         p.Type,
					Model:        p.Model,
					APIURL:       p.APIURL,
					CostPerImage: p.CostPerImage,
					Active:       name == cfg.ActiveProvider,
				}
				if p.APIKey != "" {
					info.APIKey = log.SanitizeAPIKey(p.APIKey)
				}
				infos = append(infos, info)
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

			if shared.GetJSON() {
				data, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, info := range infos {
				marker := " "
				if info.Active {
					marker = shared.StatusOK.Render("*")
				}
				fmt.Printf("%s %s (%s)\n", marker, shared.Bold.Render(info.Name), info.Type)
				fmt.Printf("    model: %s\n", info.Model)
				if info.APIURL != "" {
					fmt.Printf("    url:   %s\n", info.APIURL)
					fmt.Printf("    key:   %s\n", info.APIKey)
				}
				fmt.Printf("    cost:  $%.4f/image\n", info.CostPerImage)
			}
			return nil
		},
	}
}
