package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfakeimagedata")

func fluxConfig(url string) config.Provider {
	return config.Provider{
		Name:          "flux",
		Type:          config.TypeFlux,
		APIKey:        "sk-test-key-0000",
		APIURL:        url,
		Model:         "flux-schnell",
		DefaultParams: map[string]any{"size": "1024x1024"},
		Timeout:       5 * time.Second,
	}
}

func TestFluxGenerate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test-key-0000", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		content := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	defer server.Close()

	client, err := NewFluxClient(fluxConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Generate(context.Background(), generation.Request{
		ScenarioID: "payment-001",
		Prompt:     "checkout screen with a card declined error dialog",
	})
	require.NoError(t, err)

	assert.Equal(t, "payment-001", result.ScenarioID)
	assert.Equal(t, pngBytes, result.Image)
	assert.Equal(t, "flux-schnell", result.Model)
	assert.Greater(t, result.Duration, time.Duration(0))

	assert.Equal(t, "flux-schnell", gotBody["model"])
	assert.Equal(t, "1024x1024", gotBody["size"])
}

func TestFluxRequestParamsOverrideDefaults(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		content := base64.StdEncoding.EncodeToString(pngBytes)
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	defer server.Close()

	client, err := NewFluxClient(fluxConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{
		ScenarioID: "s",
		Prompt:     "p",
		Params:     map[string]any{"size": "512x512"},
	})
	require.NoError(t, err)
	assert.Equal(t, "512x512", gotBody["size"])
}

func TestFluxRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error": "insufficient balance"}`)
	}))
	defer server.Close()

	client, err := NewFluxClient(fluxConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	require.Error(t, err)

	var remoteErr *errors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusPaymentRequired, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Body, "insufficient balance")
}

func TestFluxEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer server.Close()

	client, err := NewFluxClient(fluxConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	var remoteErr *errors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestFluxTimeout(t *testing.T) {
	// The handler must drain the body before stalling: the server defers
	// client-disconnect detection while the request body is unread, which
	// would leave the handler parked past server.Close().
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client, err := NewFluxClient(fluxConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, generation.Request{ScenarioID: "s", Prompt: "p"})
	require.Error(t, err)

	var timeoutErr *errors.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestFluxRequiresCredential(t *testing.T) {
	cfg := fluxConfig("https://api.example.com")
	cfg.APIKey = ""

	_, err := NewFluxClient(cfg)
	require.Error(t, err)
}

func TestDecodeImageContent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"bare base64", encoded, false},
		{"data uri", "data:image/png;base64," + encoded, false},
		{"whitespace", "  " + encoded + "  ", false},
		{"not base64", "definitely not base64!!!", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image, err := decodeImageContent(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pngBytes, image)
		})
	}
}
