package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/internal/config"
)

type nopClient struct{ name string }

func (n *nopClient) Name() string                                   { return n.name }
func (n *nopClient) Generate(context.Context, Request) (*Result, error) { return nil, nil }
func (n *nopClient) Close() error                                   { return nil }

func TestRegistryNew(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("fake", func(cfg config.Provider) (Client, error) {
		return &nopClient{name: cfg.Name}, nil
	})

	client, err := r.New(config.Provider{Name: "p1", Type: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "p1", client.Name())
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("fake", func(config.Provider) (Client, error) { return &nopClient{}, nil })

	_, err := r.New(config.Provider{Type: "nonesuch"})
	require.ErrorIs(t, err, ErrFactoryNotFound)
	assert.Contains(t, err.Error(), "fake")
}

func TestRegistryNilClient(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("broken", func(config.Provider) (Client, error) { return nil, nil })

	_, err := r.New(config.Provider{Type: "broken"})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestAPIKeyCredentials(t *testing.T) {
	assert.Error(t, APIKeyCredentials{}.Validate())
	assert.NoError(t, APIKeyCredentials{APIKey: "sk-abc"}.Validate())

	redacted := APIKeyCredentials{APIKey: "sk-1234567890abcdef", BaseURL: "https://api.example.com"}.Redacted()
	assert.NotContains(t, redacted, "567890ab")
	assert.Contains(t, redacted, "sk-1")
	assert.Contains(t, redacted, "cdef")
}

func TestSubprocessCredentials(t *testing.T) {
	assert.Error(t, SubprocessCredentials{}.Validate())
	assert.NoError(t, SubprocessCredentials{Command: []string{"gen"}}.Validate())
	assert.Equal(t, "Command: gen ...", SubprocessCredentials{Command: []string{"gen", "--x"}}.Redacted())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "********", maskSecret("short123"))
	assert.Equal(t, "sk-1***********cdef", maskSecret("sk-1234567890abcdef"))
}

func TestMergeParams(t *testing.T) {
	defaults := map[string]any{"size": "1024x1024", "steps": 20}
	overrides := map[string]any{"size": "512x512"}

	merged := MergeParams(defaults, overrides)
	assert.Equal(t, "512x512", merged["size"])
	assert.Equal(t, 20, merged["steps"])
	assert.Equal(t, "1024x1024", defaults["size"])
}
