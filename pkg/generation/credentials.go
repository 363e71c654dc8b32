package generation

import (
	"fmt"
	"strings"
)

// Credentials is implemented by all provider credential types. It gives
// the CLI a uniform way to validate and display authentication without
// ever logging a raw secret.
type Credentials interface {
	// Validate checks that the credentials are present and well formed.
	Validate() error

	// Redacted returns a safe-to-log version of the credentials.
	Redacted() string
}

// APIKeyCredentials authenticates HTTP providers with a bearer key.
type APIKeyCredentials struct {
	// APIKey is the provider's authentication token.
	APIKey string

	// BaseURL is the generation endpoint.
	BaseURL string
}

// Validate checks that the API key is present. Key format varies per
// provider, so format checks are left to the provider itself.
func (c APIKeyCredentials) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// Redacted returns a safe-to-log version with the API key masked.
func (c APIKeyCredentials) Redacted() string {
	return fmt.Sprintf("APIKey: %s, BaseURL: %s", maskSecret(c.APIKey), c.BaseURL)
}

// SubprocessCredentials configures local subprocess providers, which need
// no secret material.
type SubprocessCredentials struct {
	// Command is the generation argv.
	Command []string
}

// Validate checks that a command is configured.
func (c SubprocessCredentials) Validate() error {
	if len(c.Command) == 0 {
		return fmt.Errorf("generation command is required")
	}
	return nil
}

// Redacted returns the command name without its arguments.
func (c SubprocessCredentials) Redacted() string {
	return fmt.Sprintf("Command: %s ...", c.Command[0])
}

// maskSecret shows the first and last 4 characters of a secret with
// asterisks in between. Short secrets are fully masked.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

var (
	_ Credentials = APIKeyCredentials{}
	_ Credentials = SubprocessCredentials{}
)
