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

// Package secrets resolves credential placeholders for provider
// configuration. Secrets are looked up through a priority-ordered chain of
// backends; the environment always wins so deployments can override
// anything stored locally.
//
// Resolution happens once, at configuration load time. Business logic never
// reads the environment directly.
package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound indicates the requested secret does not exist in a backend.
var ErrSecretNotFound = errors.New("secret not found")

// Backend provides read access to secrets from a single source.
type Backend interface {
	// Name returns the backend identifier (e.g., "env", "keyring").
	Name() string

	// Get retrieves a secret value by key.
	// Returns an error wrapping ErrSecretNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Available returns true if the backend is usable on this system.
	Available() bool

	// Priority orders backends; higher priority backends are queried first.
	Priority() int
}
