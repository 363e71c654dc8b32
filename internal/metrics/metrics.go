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

// Package metrics exposes batch progress as Prometheus metrics for long
// runs watched from the outside.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch collects per-run metrics. It implements the runner's Observer.
type Batch struct {
	registry *prometheus.Registry

	scenariosTotal *prometheus.CounterVec
	costTotal      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewBatch creates a metrics collector with its own registry.
func NewBatch() *Batch {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Batch{
		registry: registry,
		scenariosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anomshot",
			Name:      "scenarios_total",
			Help:      "Completed scenarios by outcome.",
		}, []string{"provider", "outcome", "error_category"}),
		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anomshot",
			Name:      "generation_cost_usd_total",
			Help:      "Accrued generation cost in USD.",
		}, []string{"provider"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "anomshot",
			Name:      "generation_duration_seconds",
			Help:      "Provider call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"provider"}),
	}
}

// ScenarioCompleted records one finished scenario.
func (b *Batch) ScenarioCompleted(provider string, success bool, errorCategory string, duration time.Duration, costUSD float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	b.scenariosTotal.WithLabelValues(provider, outcome, errorCategory).Inc()
	b.duration.WithLabelValues(provider).Observe(duration.Seconds())
	if costUSD > 0 {
		b.costTotal.WithLabelValues(provider).Add(costUSD)
	}
}

// Serve exposes /metrics on addr until ctx is cancelled. Intended to be
// run in its own goroutine; serve errors are logged, never fatal.
func (b *Batch) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics endpoint failed", "error", err)
	}
}
