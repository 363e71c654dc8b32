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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/internal/secrets"
	"github.com/anomshot/anomshot/pkg/errors"
)

func envResolver(env map[string]string) *secrets.Resolver {
	return secrets.NewResolver(secrets.NewEnvBackendWithLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

const validDocument = `{
	"active_provider": "flux",
	"providers": {
		"flux": {
			"api_key": "${FLUX_API_KEY}",
			"api_url": "https://api.example.com/v1/chat/completions",
			"model": "flux-schnell",
			"default_params": {"size": "1024x1024"},
			"cost_per_image": 0.003,
			"timeout_seconds": 60,
			"max_concurrency": 4,
			"requests_per_minute": 30
		},
		"qwen-local": {
			"type": "local",
			"model": "qwen-image",
			"command": ["python", "generate.py", "--prompt", "{prompt}", "--out", "{output}"]
		}
	},
	"output": {"image_dir": "imgs"}
}`

func TestProviderUnknownListsAvailable(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte(validDocument),
		envResolver(map[string]string{"FLUX_API_KEY": "sk-test"}))
	require.NoError(t, err)

	_, err = cfg.Provider("nope")
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "flux, qwen-local")
}

func TestParseValidConfig(t *testing.T) {
	resolver := envResolver(map[string]string{"FLUX_API_KEY": "sk-flux-1234"})

	cfg, err := Parse(context.Background(), []byte(validDocument), resolver)
	require.NoError(t, err)

	assert.Equal(t, "flux", cfg.ActiveProvider)
	assert.Equal(t, "imgs", cfg.Output.ImageDir)
	assert.Equal(t, "outputs/metadata", cfg.Output.MetadataDir)
	assert.False(t, cfg.History.Enabled)

	flux, err := cfg.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "flux", flux.Name)
	assert.Equal(t, TypeFlux, flux.Type)
	assert.Equal(t, "sk-flux-1234", flux.APIKey)
	assert.Equal(t, "flux-schnell", flux.Model)
	assert.Equal(t, 60*time.Second, flux.Timeout)
	assert.Equal(t, 4, flux.MaxConcurrency)
	assert.Equal(t, 30, flux.RequestsPerMinute)
	assert.True(t, flux.Billed())

	local, err := cfg.Provider("qwen-local")
	require.NoError(t, err)
	assert.Equal(t, TypeLocal, local.Type)
	assert.Empty(t, local.APIKey)
	assert.Equal(t, DefaultTimeout, local.Timeout)
	assert.False(t, local.Billed())
}

func TestLocalProviderIsSerialized(t *testing.T) {
	doc := `{
		"active_provider": "local",
		"providers": {
			"local": {
				"type": "local",
				"model": "z-image-turbo",
				"max_concurrency": 8,
				"command": ["zimage", "{prompt}", "{output}"]
			}
		}
	}`

	cfg, err := Parse(context.Background(), []byte(doc), nil)
	require.NoError(t, err)

	local, err := cfg.Provider("local")
	require.NoError(t, err)
	assert.Equal(t, 1, local.MaxConcurrency)
}

func TestUnresolvablePlaceholderFailsLoad(t *testing.T) {
	resolver := envResolver(nil)

	_, err := Parse(context.Background(), []byte(validDocument), resolver)
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "providers.flux.api_key", cfgErr.Key)
	assert.Contains(t, cfgErr.Reason, "FLUX_API_KEY")
	// The raw placeholder name may appear in errors, but never a secret value.
	assert.NotContains(t, err.Error(), "sk-")
}

func TestParseValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantKey string
	}{
		{
			name:    "missing active provider",
			doc:     `{"providers": {"p": {"model": "m", "api_url": "u", "api_key": "k"}}}`,
			wantKey: "active_provider",
		},
		{
			name:    "unknown active provider",
			doc:     `{"active_provider": "nope", "providers": {"p": {"model": "m", "api_url": "u", "api_key": "k"}}}`,
			wantKey: "active_provider",
		},
		{
			name:    "no providers",
			doc:     `{"active_provider": "p"}`,
			wantKey: "providers",
		},
		{
			name:    "missing model",
			doc:     `{"active_provider": "p", "providers": {"p": {"api_url": "u", "api_key": "k"}}}`,
			wantKey: "providers.p.model",
		},
		{
			name:    "cloud without api_url",
			doc:     `{"active_provider": "flux", "providers": {"flux": {"model": "m", "api_key": "k"}}}`,
			wantKey: "providers.flux.api_url",
		},
		{
			name:    "cloud without credential",
			doc:     `{"active_provider": "flux", "providers": {"flux": {"model": "m", "api_url": "u"}}}`,
			wantKey: "providers.flux.api_key",
		},
		{
			name:    "local without command",
			doc:     `{"active_provider": "l", "providers": {"l": {"type": "local", "model": "m"}}}`,
			wantKey: "providers.l.command",
		},
		{
			name:    "negative cost",
			doc:     `{"active_provider": "p", "providers": {"p": {"model": "m", "api_url": "u", "api_key": "k", "cost_per_image": -1}}}`,
			wantKey: "providers.p.cost_per_image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.doc), envResolver(nil))
			require.Error(t, err)

			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse(context.Background(), []byte(`{not json`), nil)

	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "invalid JSON")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"), nil)

	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "not found")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(validDocument), 0o600))

	cfg, err := Load(context.Background(), path, envResolver(map[string]string{"FLUX_API_KEY": "sk-x"}))
	require.NoError(t, err)
	assert.Equal(t, "flux", cfg.ActiveProvider)
}

func TestResolveValue(t *testing.T) {
	resolver := envResolver(map[string]string{"A": "one", "B": "two"})

	tests := []struct {
		in   string
		want string
	}{
		{"literal", "literal"},
		{"${A}", "one"},
		{"prefix-${A}-${B}", "prefix-one-two"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := resolveValue(context.Background(), tt.in, resolver)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
