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

package errors

import (
	"fmt"
	"time"
)

// ConfigError represents configuration problems: malformed config files,
// unknown provider references, or unresolved credential placeholders.
// Configuration errors are fatal and abort the process before any
// generation call is made.
type ConfigError struct {
	// Key is the configuration key that has the problem
	// (e.g., "active_provider", "providers.flux.api_key").
	Key string

	// Reason explains what's wrong with the configuration.
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error).
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ValidationError represents user input validation failures.
// Use this for invalid scenario files, duplicate scenario ids, or
// malformed filter expressions.
type ValidationError struct {
	// Field identifies which input field failed validation.
	Field string

	// Message is the human-readable error description.
	Message string

	// Suggestion provides actionable guidance for fixing the error.
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// RemoteError represents a non-success response from a cloud generation
// provider. It is recorded per-scenario and never aborts a batch.
type RemoteError struct {
	// Provider is the name of the generation provider (e.g., "flux").
	Provider string

	// StatusCode is the HTTP status code returned by the provider.
	StatusCode int

	// Body is an excerpt of the response body (truncated for logging).
	Body string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents a generation call that exceeded the provider's
// configured bound. Recorded per-scenario; does not abort the batch.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "generate test_002").
	Operation string

	// Duration is how long the operation ran before timing out.
	Duration time.Duration

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ResourceExhaustedError indicates the local compute device ran out of
// memory (or an equivalent resource) during generation. Recorded
// per-scenario; a batch-level warning is surfaced when it recurs for every
// subsequent scenario.
type ResourceExhaustedError struct {
	// Resource names the exhausted resource (e.g., "gpu memory").
	Resource string

	// Detail carries the device or subprocess diagnostic output.
	Detail string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ResourceExhaustedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s exhausted: %s", e.Resource, e.Detail)
	}
	return fmt.Sprintf("%s exhausted", e.Resource)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResourceExhaustedError) Unwrap() error {
	return e.Cause
}

// PersistenceError represents a failure writing an image, metadata, or
// report artifact to disk. Fatal for that scenario's artifact, but the
// in-memory result is still counted in the run summary.
type PersistenceError struct {
	// Path is the artifact path that could not be written.
	Path string

	// Cause is the underlying filesystem error.
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist artifact %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
