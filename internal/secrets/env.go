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
	"fmt"
	"os"
)

// EnvBackendPriority is the priority for the environment variable backend.
// Highest, so environment values override anything stored locally.
const EnvBackendPriority = 100

// EnvBackend provides read-only access to secrets via environment
// variables. The secret key is the environment variable name referenced by
// a `${VAR_NAME}` placeholder in the configuration file.
type EnvBackend struct {
	// lookup allows tests to substitute the environment. Nil means os.LookupEnv.
	lookup func(string) (string, bool)
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{}
}

// NewEnvBackendWithLookup creates an environment backend with a custom
// lookup function, for tests.
func NewEnvBackendWithLookup(lookup func(string) (string, bool)) *EnvBackend {
	return &EnvBackend{lookup: lookup}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from environment variables.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if value, ok := lookup(key); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, key)
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority (highest).
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}
