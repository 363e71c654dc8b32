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

package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Resolver manages a chain of Backends and resolves secrets by querying
// them in priority order.
type Resolver struct {
	backends []Backend
}

// NewResolver creates a new secret resolver with the given backends.
// Unavailable backends are filtered out; the rest are sorted by priority
// (highest first).
func NewResolver(backends ...Backend) *Resolver {
	available := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Available() {
			available = append(available, b)
		}
	}

	sort.Slice(available, func(i, j int) bool {
		return available[i].Priority() > available[j].Priority()
	})

	return &Resolver{backends: available}
}

// Default returns a resolver over the environment and (when usable) the OS
// keyring.
func Default() *Resolver {
	return NewResolver(NewEnvBackend(), NewKeyringBackend())
}

// Get retrieves a secret by querying backends in priority order.
// Returns the first successful result, or ErrSecretNotFound if every
// backend misses.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	if len(r.backends) == 0 {
		return "", fmt.Errorf("no available secret backends")
	}

	var lastErr error
	for _, backend := range r.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", key, lastErr)
	}
	return "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
}
