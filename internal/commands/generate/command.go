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

// Package generate implements the `anomshot generate` command.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anomshot/anomshot/internal/artifacts"
	"github.com/anomshot/anomshot/internal/commands/shared"
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/internal/history"
	"github.com/anomshot/anomshot/internal/log"
	"github.com/anomshot/anomshot/internal/metrics"
	"github.com/anomshot/anomshot/internal/tracing"
	"github.com/anomshot/anomshot/pkg/generation"
	"github.com/anomshot/anomshot/pkg/generation/cost"
	"github.com/anomshot/anomshot/pkg/generation/providers"
	"github.com/anomshot/anomshot/pkg/generation/runner"
	"github.com/anomshot/anomshot/pkg/scenario"
)

type options struct {
	scenarioFiles []string
	provider      string
	prompt        string
	filter        string
	outputDir     string
	watch         bool
	metricsAddr   string
}

// NewCommand creates the generate command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a batch of image generation scenarios",
		Long: `Generate runs every scenario in the given files against a provider,
writes the images and per-scenario metadata, and finishes with a cost
and latency report.

A scenario failure never stops the batch. Ctrl-C stops new scenarios
from starting; in-flight generations finish so their cost is counted,
and the report is marked incomplete.`,
		Example: `  anomshot generate --scenarios scenarios/payment.json
  anomshot generate --scenarios 'scenarios/**/*.yaml' --provider qwen
  anomshot generate --prompt "payment app showing a card declined dialog"
  anomshot generate --scenarios batch.json --filter 'category == "network"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.scenarioFiles, "scenarios", "s", nil, "Scenario files or glob patterns")
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "Provider to use (default: active_provider from config)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "Generate a single ad-hoc prompt instead of scenario files")
	cmd.Flags().StringVar(&opts.filter, "filter", "", `Only run scenarios matching an expression, e.g. 'category == "payment"'`)
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Root directory for images, metadata, and reports")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run the batch when a scenario file changes")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run")

	return cmd
}

// batch bundles everything one run needs.
type batch struct {
	cfg      *config.Config
	provider config.Provider
	client   generation.Client
	output   config.Output
	metrics  *metrics.Batch
	logger   *slog.Logger
}

func run(ctx context.Context, opts *options) error {
	if opts.prompt == "" && len(opts.scenarioFiles) == 0 {
		return shared.NewInvalidInputError("nothing to generate: pass --scenarios or --prompt", nil)
	}
	if opts.prompt != "" && opts.watch {
		return shared.NewInvalidInputError("--watch requires scenario files", nil)
	}

	logger := log.New(shared.LoggerConfig())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "anomshot", versionString())
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer shutdownTracing(context.Background())

	cfg, err := config.Load(ctx, shared.ConfigPath(), nil)
	if err != nil {
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	provider, err := cfg.Provider(opts.provider)
	if err != nil {
		return shared.NewInvalidInputError("unknown provider", err)
	}

	client, err := providers.NewRegistry().New(provider)
	if err != nil {
		return shared.NewProviderError(fmt.Sprintf("cannot initialize provider %s", provider.Name), err)
	}
	defer client.Close()

	b := &batch{
		cfg:      cfg,
		provider: provider,
		client:   client,
		output:   cfg.Output,
		logger:   logger,
	}
	if opts.outputDir != "" {
		b.output = config.Output{
			ImageDir:    filepath.Join(opts.outputDir, "images"),
			MetadataDir: filepath.Join(opts.outputDir, "metadata"),
			ReportDir:   filepath.Join(opts.outputDir, "reports"),
		}
	}
	if opts.metricsAddr != "" {
		b.metrics = metrics.NewBatch()
		go b.metrics.Serve(ctx, opts.metricsAddr, logger)
	}

	if opts.watch {
		return watchLoop(ctx, opts, b)
	}

	specs, err := loadSpecs(opts)
	if err != nil {
		return err
	}
	return b.run(ctx, specs)
}

func loadSpecs(opts *options) ([]scenario.Spec, error) {
	var specs []scenario.Spec
	var err error
	if opts.prompt != "" {
		specs = scenario.FromPrompt(opts.prompt)
	} else {
		specs, err = scenario.Load(opts.scenarioFiles...)
		if err != nil {
			return nil, shared.NewInvalidInputError("invalid scenario files", err)
		}
	}

	specs, err = scenario.Filter(specs, opts.filter)
	if err != nil {
		return nil, shared.NewInvalidInputError("invalid filter", err)
	}
	if len(specs) == 0 {
		return nil, shared.NewInvalidInputError("no scenarios left after filtering", nil)
	}
	return specs, nil
}

func (b *batch) run(ctx context.Context, specs []scenario.Spec) error {
	runID := uuid.NewString()
	runLogger := log.WithRunContext(b.logger, runID, b.provider.Name)

	runLogger.Info("starting batch",
		"scenarios", len(specs),
		"model", b.provider.Model,
		"max_concurrency", b.provider.MaxConcurrency)

	writer := artifacts.NewWriter(b.output, b.provider.Name)
	tracker := cost.NewTracker(runID, b.provider.Name, b.provider.Model, b.provider.CostPerImage)

	r := runner.New(b.provider, b.client, writer, tracker, runLogger)
	if b.metrics != nil {
		r.SetObserver(b.metrics)
	}

	summary, err := r.Run(ctx, specs)
	if err != nil {
		return shared.NewExecutionError("report could not be written", err)
	}

	if b.cfg.History.Enabled {
		if err := recordHistory(ctx, b.cfg.History.Path, summary); err != nil {
			runLogger.Warn("run not recorded in history", "error", err)
		}
	}

	printSummary(summary, len(specs))

	switch {
	case summary.Incomplete:
		return shared.NewExecutionError("batch cancelled before completion", nil)
	case summary.FailureCount > 0:
		return shared.NewExecutionError(
			fmt.Sprintf("%d of %d scenarios failed", summary.FailureCount, len(specs)), nil)
	}
	return nil
}

func recordHistory(ctx context.Context, path string, summary cost.Summary) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, summary)
}

// watchLoop re-runs the batch whenever a scenario file changes. Each
// iteration reloads the files so edits take effect.
func watchLoop(ctx context.Context, opts *options, b *batch) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return shared.NewExecutionError("cannot watch scenario files", err)
	}
	defer watcher.Close()

	dirs := map[string]struct{}{}
	for _, pattern := range opts.scenarioFiles {
		dirs[filepath.Dir(pattern)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return shared.NewExecutionError(fmt.Sprintf("cannot watch %s", dir), err)
		}
	}

	for {
		specs, err := loadSpecs(opts)
		if err != nil {
			b.logger.Warn("scenario reload failed, waiting for next change", "error", err)
		} else if err := b.run(ctx, specs); err != nil {
			b.logger.Warn("batch finished with failures", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			b.logger.Info("scenario file changed, re-running batch", "file", event.Name)
		case err := <-watcher.Errors:
			b.logger.Warn("watch error", "error", err)
		}
	}
}

func printSummary(summary cost.Summary, planned int) {
	if shared.GetJSON() {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
		return
	}
	if shared.GetQuiet() {
		return
	}

	printer := message.NewPrinter(language.English)

	fmt.Println()
	if summary.Incomplete {
		fmt.Println(shared.RenderWarn("batch cancelled before completion"))
	}
	fmt.Println(shared.Header.Render("Batch summary"))
	printer.Printf("  run:        %s\n", summary.RunID)
	printer.Printf("  provider:   %s (%s)\n", summary.Provider, summary.Model)
	printer.Printf("  scenarios:  %d planned, %d succeeded, %d failed\n", planned, summary.SuccessCount, summary.FailureCount)
	printer.Printf("  images:     %d\n", summary.TotalImages)
	printer.Printf("  total cost: $%.4f\n", summary.TotalCostUSD)
	printer.Printf("  avg call:   %dms\n", summary.AvgDurationMS)
	printer.Printf("  wall clock: %dms\n", summary.DurationMS)

	if summary.FailureCount == 0 && !summary.Incomplete {
		fmt.Println(shared.RenderOK("all scenarios generated"))
		return
	}
	for id, entry := range summary.ByScenario {
		if !entry.Success {
			fmt.Println(shared.RenderError(fmt.Sprintf("%s: [%s] %s", id, entry.ErrorCategory, entry.Error)))
		}
	}
}

func versionString() string {
	v, _, _ := shared.GetVersion()
	return v
}
