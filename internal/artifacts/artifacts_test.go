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

package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation/cost"
)

func testWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	out := config.Output{
		ImageDir:    filepath.Join(dir, "images"),
		MetadataDir: filepath.Join(dir, "metadata"),
		ReportDir:   filepath.Join(dir, "reports"),
	}
	return NewWriter(out, "flux"), dir
}

func TestWriteImageIsProviderScoped(t *testing.T) {
	w, dir := testWriter(t)

	path, err := w.WriteImage("payment-001", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "images", "flux", "payment-001.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestWriteMetadata(t *testing.T) {
	w, dir := testWriter(t)

	path, err := w.WriteMetadata(Metadata{
		ScenarioID:    "payment-001",
		Category:      "payment",
		App:           "shopping",
		Prompt:        "card declined dialog",
		Provider:      "flux",
		Model:         "flux-schnell",
		Success:       false,
		GeneratedAt:   time.Now().UTC(),
		ErrorCategory: "RemoteServiceError",
		Error:         "status 500",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "metadata", "flux", "payment-001.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "RemoteServiceError", meta.ErrorCategory)
	assert.False(t, meta.Success)
}

func TestWriteReport(t *testing.T) {
	w, dir := testWriter(t)

	summary := cost.Summary{
		RunID:        "run-abc",
		Provider:     "flux",
		TotalImages:  2,
		TotalCostUSD: 0.006,
		ByScenario:   map[string]cost.Entry{},
	}
	path, err := w.WriteReport(summary)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "report_run-abc.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got cost.Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 0.006, got.TotalCostUSD)
}

func TestWriteImageFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("file, not dir"), 0o644))

	w := NewWriter(config.Output{ImageDir: blocked}, "flux")
	_, err := w.WriteImage("x", []byte("png"))
	require.Error(t, err)

	var perr *errors.PersistenceError
	assert.ErrorAs(t, err, &perr)
}
