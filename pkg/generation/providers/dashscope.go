package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
	"github.com/anomshot/anomshot/pkg/httpclient"
)

// maxImageDownloadBytes caps a single downloaded image.
const maxImageDownloadBytes = 64 << 20

// DashScopeClient talks to DashScope-shaped synthesis endpoints. The
// request nests the prompt under input and generation knobs under
// parameters; the response carries either a signed download URL or inline
// base64 per result.
type DashScopeClient struct {
	name     string
	model    string
	apiURL   string
	creds    generation.APIKeyCredentials
	defaults map[string]any
	timeout  time.Duration

	// apiClient issues the billed synthesis call and never retries.
	// downloadClient fetches result URLs and may retry, a download is free.
	apiClient      *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
}

// NewDashScopeClient creates a DashScope client from a resolved provider
// config.
func NewDashScopeClient(cfg config.Provider) (*DashScopeClient, error) {
	creds := generation.APIKeyCredentials{APIKey: cfg.APIKey, BaseURL: cfg.APIURL}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	apiCfg := httpclient.DefaultConfig()
	apiCfg.Timeout = cfg.Timeout
	apiClient, err := httpclient.New(apiCfg)
	if err != nil {
		return nil, err
	}

	dlCfg := httpclient.DownloadConfig()
	dlCfg.Timeout = cfg.Timeout
	downloadClient, err := httpclient.New(dlCfg)
	if err != nil {
		return nil, err
	}

	return &DashScopeClient{
		name:           cfg.Name,
		model:          cfg.Model,
		apiURL:         cfg.APIURL,
		creds:          creds,
		defaults:       cfg.DefaultParams,
		timeout:        cfg.Timeout,
		apiClient:      apiClient,
		downloadClient: downloadClient,
		logger:         slog.Default().With("provider", cfg.Name),
	}, nil
}

// Name returns the configured provider name.
func (c *DashScopeClient) Name() string { return c.name }

// Close releases client resources.
func (c *DashScopeClient) Close() error {
	c.apiClient.CloseIdleConnections()
	c.downloadClient.CloseIdleConnections()
	return nil
}

type dashScopeRequest struct {
	Model      string         `json:"model"`
	Input      dashScopeInput `json:"input"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type dashScopeInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type dashScopeResponse struct {
	Output struct {
		Results []struct {
			URL      string `json:"url"`
			B64Image string `json:"b64_image"`
		} `json:"results"`
	} `json:"output"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Generate issues one synthesis call and resolves the resulting image,
// downloading it when the endpoint returns a URL.
func (c *DashScopeClient) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	body, err := json.Marshal(dashScopeRequest{
		Model: c.model,
		Input: dashScopeInput{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
		},
		Parameters: generation.MergeParams(c.defaults, req.Params),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	c.logger.DebugContext(ctx, "requesting image", "scenario_id", req.ScenarioID, "model", c.model)

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.creds.APIKey)

	resp, err := c.apiClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, c.name, c.timeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.RemoteError{Provider: c.name, StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.RemoteError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Body:       excerpt(respBody),
		}
	}

	var parsed dashScopeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &errors.RemoteError{
			Provider: c.name,
			Body:     excerpt(respBody),
			Cause:    fmt.Errorf("unparseable response: %w", err),
		}
	}
	// DashScope reports some failures with HTTP 200 and a code field.
	if parsed.Code != "" {
		return nil, &errors.RemoteError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("%s: %s (request %s)", parsed.Code, parsed.Message, parsed.RequestID),
		}
	}
	if len(parsed.Output.Results) == 0 {
		return nil, &errors.RemoteError{
			Provider: c.name,
			Body:     excerpt(respBody),
			Cause:    fmt.Errorf("response contains no results"),
		}
	}

	image, err := c.resolveImage(ctx, parsed.Output.Results[0].URL, parsed.Output.Results[0].B64Image)
	if err != nil {
		return nil, err
	}

	return &generation.Result{
		ScenarioID: req.ScenarioID,
		Image:      image,
		Model:      c.model,
		Duration:   time.Since(start),
	}, nil
}

func (c *DashScopeClient) resolveImage(ctx context.Context, url, b64 string) ([]byte, error) {
	switch {
	case b64 != "":
		image, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, &errors.RemoteError{Provider: c.name, Cause: fmt.Errorf("decoding inline image: %w", err)}
		}
		return image, nil
	case url != "":
		return c.download(ctx, url)
	default:
		return nil, &errors.RemoteError{Provider: c.name, Cause: fmt.Errorf("result has neither url nor inline image")}
	}
}

func (c *DashScopeClient) download(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}

	resp, err := c.downloadClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, c.name, c.timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.RemoteError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Body:       "image download failed",
		}
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownloadBytes))
	if err != nil {
		return nil, &errors.RemoteError{Provider: c.name, Cause: fmt.Errorf("reading image download: %w", err)}
	}
	if len(image) == 0 {
		return nil, &errors.RemoteError{Provider: c.name, Cause: fmt.Errorf("downloaded image is empty")}
	}
	return image, nil
}
