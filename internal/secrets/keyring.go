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

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name under which anomshot secrets are
	// stored in the OS keyring.
	keyringService = "anomshot"

	// KeyringBackendPriority is below the environment backend so that env
	// values always win.
	KeyringBackendPriority = 50
)

// KeyringBackend reads secrets from the operating system keyring (macOS
// Keychain, Secret Service on Linux, Windows Credential Manager). It lets
// users keep API keys out of both config files and shell profiles.
type KeyringBackend struct{}

// NewKeyringBackend creates a new OS keyring backend.
func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{}
}

// Name returns the backend identifier.
func (k *KeyringBackend) Name() string {
	return "keyring"
}

// Get retrieves a secret from the OS keyring.
func (k *KeyringBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := keyring.Get(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("%w: %s not in keyring", ErrSecretNotFound, key)
		}
		return "", fmt.Errorf("keyring lookup for %s: %w", key, err)
	}
	return value, nil
}

// Set stores a secret in the OS keyring. Used by `anomshot setup`.
func (k *KeyringBackend) Set(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// Available probes whether an OS keyring is usable on this system.
func (k *KeyringBackend) Available() bool {
	// A read of a nonexistent key distinguishes "no keyring" from "no entry".
	_, err := keyring.Get(keyringService, "anomshot-availability-probe")
	return err == nil || err == keyring.ErrNotFound
}

// Priority returns the backend priority.
func (k *KeyringBackend) Priority() int {
	return KeyringBackendPriority
}
