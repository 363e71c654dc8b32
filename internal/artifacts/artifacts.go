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

// Package artifacts writes the files a batch run produces: images,
// per-scenario metadata, and the run report.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation/cost"
)

// Metadata is the sidecar record written for every scenario, successful
// or not.
type Metadata struct {
	ScenarioID     string    `json:"scenario_id"`
	Category       string    `json:"category"`
	App            string    `json:"app"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Success        bool      `json:"success"`
	GeneratedAt    time.Time `json:"generated_at"`
	DurationMS     int64     `json:"duration_ms"`
	CostUSD        float64   `json:"cost_usd"`
	ImagePath      string    `json:"image_path,omitempty"`
	ErrorCategory  string    `json:"error_category,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Writer places run artifacts under provider-scoped directories so that
// runs against different providers never overwrite each other.
type Writer struct {
	imageDir    string
	metadataDir string
	reportDir   string
	provider    string
}

// NewWriter creates a writer for one provider's artifacts.
func NewWriter(out config.Output, provider string) *Writer {
	return &Writer{
		imageDir:    filepath.Join(out.ImageDir, provider),
		metadataDir: filepath.Join(out.MetadataDir, provider),
		reportDir:   out.ReportDir,
		provider:    provider,
	}
}

// WriteImage persists one generated image and returns its path.
func (w *Writer) WriteImage(scenarioID string, image []byte) (string, error) {
	path := filepath.Join(w.imageDir, scenarioID+".png")
	if err := writeFile(path, image); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMetadata persists the sidecar record for one scenario.
func (w *Writer) WriteMetadata(meta Metadata) (string, error) {
	path := filepath.Join(w.metadataDir, meta.ScenarioID+".json")
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", &errors.PersistenceError{Path: path, Cause: err}
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteReport persists the run summary and returns its path.
func (w *Writer) WriteReport(summary cost.Summary) (string, error) {
	path := filepath.Join(w.reportDir, fmt.Sprintf("report_%s.json", summary.RunID))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", &errors.PersistenceError{Path: path, Cause: err}
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errors.PersistenceError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &errors.PersistenceError{Path: path, Cause: err}
	}
	return nil
}
