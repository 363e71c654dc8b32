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

// Package history persists run summaries to a local SQLite database when
// the user opts in. It exists for trend questions ("what did last week's
// batches cost") that single report files cannot answer.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation/cost"
)

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one recorded batch run.
type Run struct {
	RunID        string    `json:"run_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	StartedAt    time.Time `json:"started_at"`
	TotalImages  int       `json:"total_images"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Incomplete   bool      `json:"incomplete"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	provider        TEXT NOT NULL,
	model           TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	total_images    INTEGER NOT NULL,
	total_cost_usd  REAL NOT NULL,
	success_count   INTEGER NOT NULL,
	failure_count   INTEGER NOT NULL,
	incomplete      INTEGER NOT NULL,
	summary_json    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open creates or opens the history database at path. WAL mode keeps
// concurrent CLI invocations from blocking each other.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &errors.PersistenceError{Path: path, Cause: err}
	}

	connStr := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, &errors.PersistenceError{Path: path, Cause: err}
	}
	db.SetMaxOpenConns(2)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &errors.PersistenceError{Path: path, Cause: fmt.Errorf("migrating schema: %w", err)}
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one run summary.
func (s *Store) Record(ctx context.Context, summary cost.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return &errors.PersistenceError{Path: s.path, Cause: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, provider, model, started_at, total_images, total_cost_usd, success_count, failure_count, incomplete, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Provider,
		summary.Model,
		summary.StartedAt.Format(time.RFC3339Nano),
		summary.TotalImages,
		summary.TotalCostUSD,
		summary.SuccessCount,
		summary.FailureCount,
		boolToInt(summary.Incomplete),
		string(summaryJSON),
	)
	if err != nil {
		return &errors.PersistenceError{Path: s.path, Cause: err}
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, provider, model, started_at, total_images, total_cost_usd, success_count, failure_count, incomplete
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &errors.PersistenceError{Path: s.path, Cause: err}
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var incomplete int
		if err := rows.Scan(&r.RunID, &r.Provider, &r.Model, &startedAt, &r.TotalImages, &r.TotalCostUSD, &r.SuccessCount, &r.FailureCount, &incomplete); err != nil {
			return nil, &errors.PersistenceError{Path: s.path, Cause: err}
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.Incomplete = incomplete != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.PersistenceError{Path: s.path, Cause: err}
	}
	return runs, nil
}

// Get returns the full stored summary for one run.
func (s *Store) Get(ctx context.Context, runID string) (*cost.Summary, error) {
	var summaryJSON string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE run_id = ?`, runID).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, &errors.PersistenceError{Path: s.path, Cause: fmt.Errorf("run %s not found", runID)}
	}
	if err != nil {
		return nil, &errors.PersistenceError{Path: s.path, Cause: err}
	}

	var summary cost.Summary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, &errors.PersistenceError{Path: s.path, Cause: err}
	}
	return &summary, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
