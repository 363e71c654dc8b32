// Package runner executes a batch of scenarios against one generation
// client with bounded concurrency.
//
// Cancellation is graceful: once the batch context is cancelled no new
// scenario starts, but in-flight calls run to completion so their cost is
// accounted. The summary of a cancelled batch is marked incomplete.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/anomshot/anomshot/internal/artifacts"
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
	"github.com/anomshot/anomshot/pkg/generation/cost"
	"github.com/anomshot/anomshot/pkg/scenario"
)

// Observer receives scenario completions, for metrics. Implementations
// must be safe for concurrent use.
type Observer interface {
	ScenarioCompleted(provider string, success bool, errorCategory string, duration time.Duration, costUSD float64)
}

// Runner drives one batch run.
type Runner struct {
	provider config.Provider
	client   generation.Client
	writer   *artifacts.Writer
	tracker  *cost.Tracker
	logger   *slog.Logger
	observer Observer

	limiter *rate.Limiter
}

// New creates a runner for one provider and batch.
func New(provider config.Provider, client generation.Client, writer *artifacts.Writer, tracker *cost.Tracker, logger *slog.Logger) *Runner {
	r := &Runner{
		provider: provider,
		client:   client,
		writer:   writer,
		tracker:  tracker,
		logger:   logger,
	}
	if provider.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(provider.RequestsPerMinute)), 1)
	}
	return r
}

// SetObserver attaches a metrics observer. Must be called before Run.
func (r *Runner) SetObserver(o Observer) { r.observer = o }

// Run executes every scenario and returns the run summary. A scenario
// failure never aborts the batch; the error return covers only summary
// persistence. ctx cancellation stops new scenario starts.
func (r *Runner) Run(ctx context.Context, specs []scenario.Spec) (cost.Summary, error) {
	sem := make(chan struct{}, r.provider.MaxConcurrency)
	var wg sync.WaitGroup

	incomplete := false

launch:
	for _, spec := range specs {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				incomplete = true
				break launch
			}
		}

		select {
		case <-ctx.Done():
			incomplete = true
			break launch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(spec scenario.Spec) {
			defer wg.Done()
			defer func() { <-sem }()
			r.runOne(spec)
		}(spec)
	}

	wg.Wait()

	summary := r.tracker.Summarize(incomplete)
	if _, err := r.writer.WriteReport(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// runOne executes a single scenario end to end. The call context is
// detached from the batch context so cancellation lets in-flight work
// finish; the provider timeout still applies.
func (r *Runner) runOne(spec scenario.Spec) {
	logger := r.logger.With("scenario_id", spec.ID)

	callCtx, cancel := context.WithTimeout(context.Background(), r.provider.Timeout)
	defer cancel()

	callCtx, span := otel.Tracer("anomshot/runner").Start(callCtx, "generate",
		trace.WithAttributes(
			attribute.String("scenario.id", spec.ID),
			attribute.String("provider", r.provider.Name)))
	defer span.End()

	start := time.Now()
	result, err := r.client.Generate(callCtx, generation.Request{
		ScenarioID:     spec.ID,
		Prompt:         spec.Prompt,
		NegativePrompt: spec.NegativePrompt,
		Params:         spec.Params,
	})
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Category(err))
		r.recordFailure(logger, spec, duration, err)
		return
	}
	span.SetStatus(codes.Ok, "")

	imagePath, err := r.writer.WriteImage(spec.ID, result.Image)
	if err != nil {
		r.recordFailure(logger, spec, duration, err)
		return
	}

	metadataPath, err := r.writer.WriteMetadata(artifacts.Metadata{
		ScenarioID:     spec.ID,
		Category:       spec.Category,
		App:            spec.App,
		Prompt:         spec.Prompt,
		NegativePrompt: spec.NegativePrompt,
		Provider:       r.provider.Name,
		Model:          result.Model,
		Success:        true,
		GeneratedAt:    time.Now().UTC(),
		DurationMS:     result.Duration.Milliseconds(),
		CostUSD:        cost.Round4(r.provider.CostPerImage),
		ImagePath:      imagePath,
	})
	if err != nil {
		logger.Warn("image written but metadata failed", "error", err)
	}

	r.tracker.RecordSuccess(spec, result.Duration, imagePath, metadataPath)
	r.observe(true, "", result.Duration)
	logger.Info("scenario generated",
		"duration_ms", result.Duration.Milliseconds(),
		"cost_usd", cost.Round4(r.provider.CostPerImage))
}

func (r *Runner) recordFailure(logger *slog.Logger, spec scenario.Spec, duration time.Duration, err error) {
	category := errors.Category(err)

	metadataPath, metaErr := r.writer.WriteMetadata(artifacts.Metadata{
		ScenarioID:     spec.ID,
		Category:       spec.Category,
		App:            spec.App,
		Prompt:         spec.Prompt,
		NegativePrompt: spec.NegativePrompt,
		Provider:       r.provider.Name,
		Model:          r.provider.Model,
		Success:        false,
		GeneratedAt:    time.Now().UTC(),
		DurationMS:     duration.Milliseconds(),
		ErrorCategory:  category,
		Error:          err.Error(),
	})
	if metaErr != nil {
		logger.Warn("failure metadata not written", "error", metaErr)
	}

	r.tracker.RecordFailure(spec, duration, err, metadataPath)
	r.observe(false, category, duration)

	if category == "ResourceExhaustedError" {
		logger.Warn("generation exhausted device memory, later scenarios may fail the same way",
			"error", err)
		return
	}
	logger.Error("scenario failed", "error_category", category, "error", err)
}

func (r *Runner) observe(success bool, category string, duration time.Duration) {
	if r.observer == nil {
		return
	}
	costUSD := 0.0
	if success {
		costUSD = cost.Round4(r.provider.CostPerImage)
	}
	r.observer.ScenarioCompleted(r.provider.Name, success, category, duration, costUSD)
}
