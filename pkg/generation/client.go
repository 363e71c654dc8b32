// Package generation provides abstractions for text-to-image providers.
package generation

import (
	"context"
	"time"
)

// Request is a single image generation request.
type Request struct {
	// ScenarioID identifies the scenario this request belongs to.
	ScenarioID string

	// Prompt is the full text prompt.
	Prompt string

	// NegativePrompt lists artifacts to avoid, for providers that support it.
	NegativePrompt string

	// Params are provider parameters for this request. They are merged over
	// the provider's configured default_params before sending.
	Params map[string]any
}

// Result is a completed generation.
type Result struct {
	// ScenarioID echoes the request's scenario.
	ScenarioID string

	// Image is the raw PNG or JPEG bytes returned by the provider.
	Image []byte

	// Model is the model identifier that produced the image.
	Model string

	// Duration is the wall-clock latency of the provider call, including
	// any image download.
	Duration time.Duration
}

// Client is the interface all generation providers implement.
type Client interface {
	// Name returns the configured provider name.
	Name() string

	// Generate produces one image for the request. Implementations honor
	// ctx cancellation and deadlines.
	Generate(ctx context.Context, req Request) (*Result, error)

	// Close releases any resources held by the client.
	Close() error
}

// MergeParams layers request params over provider defaults. Neither input
// map is modified.
func MergeParams(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
