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

// Package config loads and validates the anomshot configuration file.
//
// Credential placeholders of the form ${VAR_NAME} are resolved through the
// secrets resolver at load time. The returned Config is immutable: once
// Load succeeds, no component reads the environment again.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/anomshot/anomshot/internal/secrets"
	"github.com/anomshot/anomshot/pkg/errors"
)

// Provider type identifiers. The type selects the GenerationClient variant;
// it defaults to the provider's map key when omitted.
const (
	TypeFlux      = "flux"
	TypeDashScope = "dashscope"
	TypeLocal     = "local"
)

// DefaultTimeout bounds each generation call when the provider does not
// configure one.
const DefaultTimeout = 30 * time.Second

// Config is the validated, immutable anomshot configuration.
type Config struct {
	// ActiveProvider is the provider used when no --provider override is given.
	ActiveProvider string

	// Providers maps provider name to its resolved configuration.
	Providers map[string]Provider

	// Output configures artifact directories.
	Output Output

	// History configures the optional local run-history store.
	History History
}

// Provider identifies one generation backend with resolved credentials.
type Provider struct {
	// Name is the provider's key in the configuration document.
	Name string

	// Type selects the client variant (flux, dashscope, local).
	Type string

	// APIKey is the resolved credential. Empty for local providers.
	APIKey string

	// APIURL is the generation endpoint for cloud providers.
	APIURL string

	// Model is the model identifier sent with each request.
	Model string

	// DefaultParams are merged under each request's parameters.
	DefaultParams map[string]any

	// CostPerImage is the provider's unit cost in USD per successful image.
	// Zero for local compute.
	CostPerImage float64

	// Timeout bounds each generation call.
	Timeout time.Duration

	// MaxConcurrency caps in-flight generation calls for this provider.
	// Local providers are always serialized regardless of this value.
	MaxConcurrency int

	// RequestsPerMinute rate-limits call starts. Zero disables limiting.
	RequestsPerMinute int

	// Command is the subprocess argv for local providers. The placeholders
	// {prompt} and {output} are substituted per call.
	Command []string
}

// Billed reports whether this provider charges per image.
func (p Provider) Billed() bool {
	return p.CostPerImage > 0
}

// Output configures where artifacts are written.
type Output struct {
	ImageDir    string
	MetadataDir string
	ReportDir   string
}

// History configures the optional SQLite run-history store.
// Disabled by default: a batch run leaves no state behind beyond its
// report file unless the user opts in.
type History struct {
	Enabled bool
	Path    string
}

// document mirrors the on-disk JSON layout.
type document struct {
	ActiveProvider string                      `json:"active_provider"`
	Providers      map[string]providerDocument `json:"providers"`
	Output         outputDocument              `json:"output"`
	History        historyDocument             `json:"history"`
}

type providerDocument struct {
	Type              string         `json:"type,omitempty"`
	APIKey            string         `json:"api_key,omitempty"`
	APIURL            string         `json:"api_url,omitempty"`
	Model             string         `json:"model"`
	DefaultParams     map[string]any `json:"default_params,omitempty"`
	CostPerImage      float64        `json:"cost_per_image,omitempty"`
	TimeoutSeconds    int            `json:"timeout_seconds,omitempty"`
	MaxConcurrency    int            `json:"max_concurrency,omitempty"`
	RequestsPerMinute int            `json:"requests_per_minute,omitempty"`
	Command           []string       `json:"command,omitempty"`
}

type outputDocument struct {
	ImageDir    string `json:"image_dir,omitempty"`
	MetadataDir string `json:"metadata_dir,omitempty"`
	ReportDir   string `json:"report_dir,omitempty"`
}

type historyDocument struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Load reads, resolves, and validates the configuration file at path.
// Every failure is a *errors.ConfigError; the process must not issue any
// generation call after Load fails.
func Load(ctx context.Context, path string, resolver *secrets.Resolver) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Reason: fmt.Sprintf("config file not found: %s", path), Cause: err}
	}
	return Parse(ctx, data, resolver)
}

// Parse resolves and validates a configuration document.
func Parse(ctx context.Context, data []byte, resolver *secrets.Resolver) (*Config, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &errors.ConfigError{Reason: "invalid JSON in config file", Cause: err}
	}

	if doc.ActiveProvider == "" {
		return nil, &errors.ConfigError{Key: "active_provider", Reason: "missing required field"}
	}
	if len(doc.Providers) == 0 {
		return nil, &errors.ConfigError{Key: "providers", Reason: "missing required field"}
	}
	if _, ok := doc.Providers[doc.ActiveProvider]; !ok {
		return nil, &errors.ConfigError{
			Key:    "active_provider",
			Reason: fmt.Sprintf("provider %q not found in providers (available: %s)", doc.ActiveProvider, providerNames(doc.Providers)),
		}
	}

	cfg := &Config{
		ActiveProvider: doc.ActiveProvider,
		Providers:      make(map[string]Provider, len(doc.Providers)),
		Output: Output{
			ImageDir:    withDefault(doc.Output.ImageDir, "outputs/images"),
			MetadataDir: withDefault(doc.Output.MetadataDir, "outputs/metadata"),
			ReportDir:   withDefault(doc.Output.ReportDir, "outputs/reports"),
		},
		History: History{
			Enabled: doc.History.Enabled,
			Path:    withDefault(doc.History.Path, defaultHistoryPath()),
		},
	}

	for name, pd := range doc.Providers {
		provider, err := buildProvider(ctx, name, pd, resolver)
		if err != nil {
			return nil, err
		}
		cfg.Providers[name] = provider
	}

	return cfg, nil
}

// Provider returns the named provider, or the active one when name is empty.
func (c *Config) Provider(name string) (Provider, error) {
	if name == "" {
		name = c.ActiveProvider
	}
	p, ok := c.Providers[name]
	if !ok {
		return Provider{}, &errors.ConfigError{
			Key:    "provider",
			Reason: fmt.Sprintf("provider %q not found (available: %s)", name, providerNames(c.Providers)),
		}
	}
	return p, nil
}

// buildProvider resolves placeholders and validates one provider entry.
func buildProvider(ctx context.Context, name string, pd providerDocument, resolver *secrets.Resolver) (Provider, error) {
	providerType := pd.Type
	if providerType == "" {
		providerType = name
	}

	p := Provider{
		Name:              name,
		Type:              providerType,
		APIURL:            pd.APIURL,
		Model:             pd.Model,
		DefaultParams:     pd.DefaultParams,
		CostPerImage:      pd.CostPerImage,
		Timeout:           DefaultTimeout,
		MaxConcurrency:    pd.MaxConcurrency,
		RequestsPerMinute: pd.RequestsPerMinute,
		Command:           pd.Command,
	}
	if pd.TimeoutSeconds > 0 {
		p.Timeout = time.Duration(pd.TimeoutSeconds) * time.Second
	}
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = 1
	}
	if p.CostPerImage < 0 {
		return Provider{}, &errors.ConfigError{
			Key:    fmt.Sprintf("providers.%s.cost_per_image", name),
			Reason: "must be >= 0",
		}
	}
	if p.Model == "" {
		return Provider{}, &errors.ConfigError{
			Key:    fmt.Sprintf("providers.%s.model", name),
			Reason: "missing required field",
		}
	}

	if providerType == TypeLocal {
		if len(p.Command) == 0 {
			return Provider{}, &errors.ConfigError{
				Key:    fmt.Sprintf("providers.%s.command", name),
				Reason: "local providers require a generation command",
			}
		}
		// Single device: concurrent calls would contend for the same memory.
		p.MaxConcurrency = 1
		return p, nil
	}

	if p.APIURL == "" {
		return Provider{}, &errors.ConfigError{
			Key:    fmt.Sprintf("providers.%s.api_url", name),
			Reason: "missing required field",
		}
	}

	apiKey, err := resolveValue(ctx, pd.APIKey, resolver)
	if err != nil {
		return Provider{}, &errors.ConfigError{
			Key:    fmt.Sprintf("providers.%s.api_key", name),
			Reason: err.Error(),
			Cause:  err,
		}
	}
	if apiKey == "" {
		return Provider{}, &errors.ConfigError{
			Key:    fmt.Sprintf("providers.%s.api_key", name),
			Reason: "cloud providers require a credential",
		}
	}
	p.APIKey = apiKey

	return p, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "anomshot.db"
	}
	return home + "/.anomshot/anomshot.db"
}

// providerNames lists a provider map's keys sorted, for error messages.
func providerNames[V any](providers map[string]V) string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
