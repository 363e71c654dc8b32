// Package cost accumulates per-scenario outcomes for a batch run and
// produces the run summary written to the report file.
package cost

import (
	"math"
	"sync"
	"time"

	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/scenario"
)

// Entry is the recorded outcome of one scenario.
type Entry struct {
	ScenarioID string  `json:"scenario_id"`
	Category   string  `json:"category"`
	App        string  `json:"app"`
	Success    bool    `json:"success"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMS int64   `json:"duration_ms"`

	// ErrorCategory and Error are set on failed scenarios only.
	ErrorCategory string `json:"error_category,omitempty"`
	Error         string `json:"error,omitempty"`

	// ImagePath and MetadataPath point at the written artifacts. The
	// metadata file exists for every scenario; the image only on success.
	ImagePath    string `json:"image_path,omitempty"`
	MetadataPath string `json:"metadata_path,omitempty"`
}

// Summary is the final accounting for a batch run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// DurationMS is the wall-clock time of the whole batch.
	DurationMS int64 `json:"duration_ms"`

	// TotalImages counts successful generations; only those are billed.
	TotalImages  int     `json:"total_images"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`

	// AvgDurationMS is the mean provider latency across completed
	// scenarios, successes and failures alike.
	AvgDurationMS int64 `json:"avg_duration_ms"`

	// Incomplete marks a run that was cancelled before every scenario
	// completed.
	Incomplete bool `json:"incomplete,omitempty"`

	ByScenario map[string]Entry `json:"by_scenario"`
}

// Tracker accumulates scenario outcomes. Safe for concurrent use by the
// runner's workers.
type Tracker struct {
	mu           sync.Mutex
	runID        string
	provider     string
	model        string
	costPerImage float64
	startedAt    time.Time
	entries      map[string]Entry
}

// NewTracker starts accounting for one batch run.
func NewTracker(runID, provider, model string, costPerImage float64) *Tracker {
	return &Tracker{
		runID:        runID,
		provider:     provider,
		model:        model,
		costPerImage: costPerImage,
		startedAt:    time.Now().UTC(),
		entries:      make(map[string]Entry),
	}
}

// RecordSuccess books one successful generation. Cost accrues here and
// nowhere else: a scenario that failed costs nothing.
func (t *Tracker) RecordSuccess(spec scenario.Spec, duration time.Duration, imagePath, metadataPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[spec.ID] = Entry{
		ScenarioID:   spec.ID,
		Category:     spec.Category,
		App:          spec.App,
		Success:      true,
		CostUSD:      Round4(t.costPerImage),
		DurationMS:   duration.Milliseconds(),
		ImagePath:    imagePath,
		MetadataPath: metadataPath,
	}
}

// RecordFailure books one failed generation with its error category.
func (t *Tracker) RecordFailure(spec scenario.Spec, duration time.Duration, err error, metadataPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[spec.ID] = Entry{
		ScenarioID:    spec.ID,
		Category:      spec.Category,
		App:           spec.App,
		Success:       false,
		DurationMS:    duration.Milliseconds(),
		ErrorCategory: errors.Category(err),
		Error:         err.Error(),
		MetadataPath:  metadataPath,
	}
}

// Completed returns how many scenarios have been recorded so far.
func (t *Tracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// TotalCost returns the accrued cost so far, rounded to 4 decimals.
func (t *Tracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCostLocked()
}

func (t *Tracker) totalCostLocked() float64 {
	successes := 0
	for _, e := range t.entries {
		if e.Success {
			successes++
		}
	}
	return Round4(t.costPerImage * float64(successes))
}

// Summarize produces the run summary. The incomplete flag marks a
// cancelled batch whose remaining scenarios never ran.
func (t *Tracker) Summarize(incomplete bool) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	finished := time.Now().UTC()
	s := Summary{
		RunID:      t.runID,
		Provider:   t.provider,
		Model:      t.model,
		StartedAt:  t.startedAt,
		FinishedAt: finished,
		DurationMS: finished.Sub(t.startedAt).Milliseconds(),
		Incomplete: incomplete,
		ByScenario: make(map[string]Entry, len(t.entries)),
	}

	var totalDuration int64
	for id, e := range t.entries {
		s.ByScenario[id] = e
		totalDuration += e.DurationMS
		if e.Success {
			s.SuccessCount++
			s.TotalImages++
		} else {
			s.FailureCount++
		}
	}
	s.TotalCostUSD = t.totalCostLocked()
	if n := len(t.entries); n > 0 {
		s.AvgDurationMS = totalDuration / int64(n)
	}
	return s
}

// Round4 rounds a dollar amount to 4 decimal places, the granularity the
// per-image unit costs are quoted in.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
