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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("generation complete", slog.String(ScenarioIDKey, "test_001"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "generation complete", entry["msg"])
	assert.Equal(t, "test_001", entry[ScenarioIDKey])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatText, Output: &buf})

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestFromEnvDebug(t *testing.T) {
	t.Setenv("ANOMSHOT_DEBUG", "1")
	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)
}

func TestFromEnvLevelAndFormat(t *testing.T) {
	t.Setenv("ANOMSHOT_DEBUG", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := FromEnv()
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
}

func TestWithRunContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithScenario(WithRunContext(logger, "run-123", "flux"), "test_002").Info("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-123", entry[RunIDKey])
	assert.Equal(t, "flux", entry[ProviderKey])
	assert.Equal(t, "test_002", entry[ScenarioIDKey])
}

func TestSanitizeAPIKey(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeAPIKey("abc"))
	assert.Equal(t, "...6789", SanitizeAPIKey("sk-123456789"))
}
