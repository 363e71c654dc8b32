package cost

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/scenario"
)

func spec(id string) scenario.Spec {
	return scenario.Spec{ID: id, Category: "payment", App: "shopping", Prompt: "p"}
}

func TestOnlySuccessesAreBilled(t *testing.T) {
	tr := NewTracker("run-1", "flux", "flux-schnell", 0.003)

	tr.RecordSuccess(spec("a"), 2*time.Second, "imgs/flux/a.png", "meta/a.json")
	tr.RecordSuccess(spec("b"), 3*time.Second, "imgs/flux/b.png", "meta/b.json")
	tr.RecordFailure(spec("c"), time.Second, &errors.RemoteError{Provider: "flux", StatusCode: 500}, "meta/c.json")

	s := tr.Summarize(false)
	assert.Equal(t, 2, s.TotalImages)
	assert.Equal(t, 2, s.SuccessCount)
	assert.Equal(t, 1, s.FailureCount)
	assert.Equal(t, 0.006, s.TotalCostUSD)
	assert.False(t, s.Incomplete)
}

func TestCostRounding(t *testing.T) {
	tr := NewTracker("run-1", "flux", "m", 0.00333)
	for i := 0; i < 3; i++ {
		tr.RecordSuccess(spec(fmt.Sprintf("s%d", i)), time.Second, "", "")
	}

	// 3 * 0.00333 = 0.00999, kept at 4 decimals
	assert.Equal(t, 0.01, tr.TotalCost())
}

func TestRound4(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.00016, 0.0002},
		{0.00014, 0.0001},
		{1.23456789, 1.2346},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round4(tt.in))
	}
}

func TestFailureEntryCarriesCategory(t *testing.T) {
	tr := NewTracker("run-1", "flux", "m", 0.003)
	tr.RecordFailure(spec("x"), 500*time.Millisecond, &errors.TimeoutError{Operation: "flux generation", Duration: 30 * time.Second}, "meta/x.json")

	s := tr.Summarize(false)
	entry := s.ByScenario["x"]
	assert.False(t, entry.Success)
	assert.Equal(t, "TimeoutError", entry.ErrorCategory)
	assert.Contains(t, entry.Error, "timed out")
	assert.Zero(t, entry.CostUSD)
	assert.Equal(t, int64(500), entry.DurationMS)
}

func TestSummaryKeyedByScenarioID(t *testing.T) {
	tr := NewTracker("run-1", "flux", "m", 0.003)
	tr.RecordSuccess(spec("payment-001"), time.Second, "i", "m")
	tr.RecordFailure(spec("payment-002"), time.Second, fmt.Errorf("boom"), "m2")

	s := tr.Summarize(true)
	require.Len(t, s.ByScenario, 2)
	assert.Contains(t, s.ByScenario, "payment-001")
	assert.Contains(t, s.ByScenario, "payment-002")
	assert.True(t, s.Incomplete)
	assert.Equal(t, "UnknownError", s.ByScenario["payment-002"].ErrorCategory)
}

func TestAverageDuration(t *testing.T) {
	tr := NewTracker("run-1", "flux", "m", 0)
	tr.RecordSuccess(spec("a"), 2*time.Second, "", "")
	tr.RecordFailure(spec("b"), 4*time.Second, fmt.Errorf("x"), "")

	s := tr.Summarize(false)
	assert.Equal(t, int64(3000), s.AvgDurationMS)
}

func TestTrackerConcurrentRecording(t *testing.T) {
	tr := NewTracker("run-1", "flux", "m", 0.001)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.RecordSuccess(spec(fmt.Sprintf("s%d", i)), time.Second, "", "")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Completed())
	assert.Equal(t, 0.05, tr.TotalCost())
}
