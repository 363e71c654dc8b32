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

// Package setup implements the interactive `anomshot setup` command.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/internal/secrets"
)

// NewCommand creates the setup command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively configure a provider",
		Long: `Setup walks through configuring one provider and writes the result to
the config file. Cloud API keys are stored in the OS keyring when one
is available; the config file only ever holds a ${VAR} placeholder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !shared.IsTTY() {
				return shared.NewInvalidInputError("setup requires an interactive terminal", nil)
			}
			return runSetup()
		},
	}
}

type answers struct {
	name         string
	providerType string
	apiURL       string
	model        string
	apiKey       string
	costPerImage string
	command      string
	makeActive   bool
}

func runSetup() error {
	a := &answers{providerType: config.TypeFlux, makeActive: true}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Provider name:").
				Description("Key used in the config file and for output directories").
				Value(&a.name).
				Validate(required("provider name")),
			huh.NewSelect[string]().
				Title("Provider type:").
				Options(
					huh.NewOption("Flux (chat-completions image API)", config.TypeFlux),
					huh.NewOption("DashScope (Qwen image synthesis)", config.TypeDashScope),
					huh.NewOption("Local subprocess", config.TypeLocal),
				).
				Value(&a.providerType),
			huh.NewInput().
				Title("Model:").
				Value(&a.model).
				Validate(required("model")),
		),
	)
	if err := form.Run(); err != nil {
		return shared.NewExecutionError("setup aborted", err)
	}

	if a.providerType == config.TypeLocal {
		if err := localForm(a); err != nil {
			return err
		}
	} else {
		if err := cloudForm(a); err != nil {
			return err
		}
	}

	if err := writeConfig(a); err != nil {
		return err
	}
	fmt.Println(shared.RenderOK(fmt.Sprintf("provider %s written to %s", a.name, shared.ConfigPath())))
	return nil
}

func cloudForm(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API URL:").
				Value(&a.apiURL).
				Validate(required("API URL")),
			huh.NewInput().
				Title("API key:").
				Description("Stored in the OS keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&a.apiKey).
				Validate(required("API key")),
			huh.NewInput().
				Title("Cost per image (USD):").
				Placeholder("0.003").
				Value(&a.costPerImage).
				Validate(validCost),
			huh.NewConfirm().
				Title("Make this the active provider?").
				Value(&a.makeActive),
		),
	)
	if err := form.Run(); err != nil {
		return shared.NewExecutionError("setup aborted", err)
	}

	keyVar := keyVariableName(a.name)
	keyring := secrets.NewKeyringBackend()
	if keyring.Available() {
		if err := keyring.Set(keyVar, a.apiKey); err != nil {
			return shared.NewExecutionError("cannot store API key in keyring", err)
		}
		fmt.Println(shared.RenderOK(fmt.Sprintf("API key stored in keyring as %s", keyVar)))
	} else {
		fmt.Println(shared.RenderWarn(fmt.Sprintf("no OS keyring available; export %s before running generate", keyVar)))
	}
	return nil
}

func localForm(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Generation command:").
				Description("Use {prompt} and {output} placeholders, e.g. python gen.py {prompt} {output}").
				Value(&a.command).
				Validate(required("command")),
			huh.NewConfirm().
				Title("Make this the active provider?").
				Value(&a.makeActive),
		),
	)
	if err := form.Run(); err != nil {
		return shared.NewExecutionError("setup aborted", err)
	}
	return nil
}

// writeConfig merges the new provider into the existing config document,
// preserving entries it does not touch.
func writeConfig(a *answers) error {
	path := shared.ConfigPath()

	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return shared.NewInvalidInputError("existing config is not valid JSON", err)
		}
	}

	providers, _ := doc["providers"].(map[string]any)
	if providers == nil {
		providers = map[string]any{}
	}

	entry := map[string]any{
		"type":  a.providerType,
		"model": a.model,
	}
	switch a.providerType {
	case config.TypeLocal:
		entry["command"] = splitCommand(a.command)
	default:
		entry["api_url"] = a.apiURL
		entry["api_key"] = fmt.Sprintf("${%s}", keyVariableName(a.name))
		if a.costPerImage != "" {
			costValue, _ := strconv.ParseFloat(a.costPerImage, 64)
			entry["cost_per_image"] = costValue
		}
	}
	providers[a.name] = entry
	doc["providers"] = providers

	if a.makeActive || doc["active_provider"] == nil {
		doc["active_provider"] = a.name
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return shared.NewExecutionError("cannot write config file", err)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validCost(s string) error {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a non-negative number")
	}
	return nil
}
