package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
)

func dashScopeConfig(url string) config.Provider {
	return config.Provider{
		Name:          "qwen",
		Type:          config.TypeDashScope,
		APIKey:        "sk-dash-key-0000",
		APIURL:        url,
		Model:         "wanx-v1",
		DefaultParams: map[string]any{"size": "1024*1024", "n": 1},
		Timeout:       5 * time.Second,
	}
}

func TestDashScopeGenerateInlineImage(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-dash-key-0000", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		b64 := base64.StdEncoding.EncodeToString(pngBytes)
		fmt.Fprintf(w, `{"output": {"results": [{"b64_image": %q}]}, "request_id": "req-1"}`, b64)
	}))
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Generate(context.Background(), generation.Request{
		ScenarioID:     "auth-001",
		Prompt:         "session expired modal over the account overview",
		NegativePrompt: "cartoon",
	})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, result.Image)

	input := gotBody["input"].(map[string]any)
	assert.Equal(t, "session expired modal over the account overview", input["prompt"])
	assert.Equal(t, "cartoon", input["negative_prompt"])
	params := gotBody["parameters"].(map[string]any)
	assert.Equal(t, "1024*1024", params["size"])
}

func TestDashScopeGenerateDownloadsURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	})
	var server *httptest.Server
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"output": {"results": [{"url": %q}]}}`, server.URL+"/image.png")
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL + "/synthesis"))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, result.Image)
}

func TestDashScopeDownloadRetriesTransientFailure(t *testing.T) {
	var downloads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		if downloads.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(pngBytes)
	})
	var server *httptest.Server
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"output": {"results": [{"url": %q}]}}`, server.URL+"/image.png")
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL + "/synthesis"))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, result.Image)
	assert.Equal(t, int32(2), downloads.Load())
}

func TestDashScopeErrorCodeInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": "InvalidParameter", "message": "size not supported", "request_id": "req-9"}`)
	}))
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	require.Error(t, err)

	var remoteErr *errors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Body, "InvalidParameter")
	assert.Contains(t, remoteErr.Body, "req-9")
}

func TestDashScopeSynthesisCallIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDashScopeNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output": {"results": []}}`)
	}))
	defer server.Close()

	client, err := NewDashScopeClient(dashScopeConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), generation.Request{ScenarioID: "s", Prompt: "p"})
	var remoteErr *errors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
}
