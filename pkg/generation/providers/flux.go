// Package providers implements the generation clients anomshot ships with.
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
	"strings"
	"time"

	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/errors"
	"github.com/anomshot/anomshot/pkg/generation"
	"github.com/anomshot/anomshot/pkg/httpclient"
)

// maxErrorBodyExcerpt bounds how much of a provider error body is carried
// in RemoteError, keeping logs and reports readable.
const maxErrorBodyExcerpt = 512

// FluxClient talks to chat-completions-shaped image endpoints that return
// the image as base64 in the assistant message content.
type FluxClient struct {
	name       string
	model      string
	apiURL     string
	creds      generation.APIKeyCredentials
	defaults   map[string]any
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFluxClient creates a flux client from a resolved provider config.
func NewFluxClient(cfg config.Provider) (*FluxClient, error) {
	creds := generation.APIKeyCredentials{APIKey: cfg.APIKey, BaseURL: cfg.APIURL}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.Timeout
	client, err := httpclient.New(clientCfg)
	if err != nil {
		return nil, err
	}

	return &FluxClient{
		name:       cfg.Name,
		model:      cfg.Model,
		apiURL:     cfg.APIURL,
		creds:      creds,
		defaults:   cfg.DefaultParams,
		timeout:    cfg.Timeout,
		httpClient: client,
		logger:     slog.Default().With("provider", cfg.Name),
	}, nil
}

// Name returns the configured provider name.
func (c *FluxClient) Name() string { return c.name }

// Close releases client resources.
func (c *FluxClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type fluxRequest struct {
	Model    string         `json:"model"`
	Messages []fluxMessage  `json:"messages"`
	Extra    map[string]any `json:"-"`
}

type fluxMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fluxResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// MarshalJSON flattens Extra params beside the fixed fields, matching the
// endpoint's expectation of top-level generation parameters.
func (r fluxRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		body[k] = v
	}
	body["model"] = r.Model
	body["messages"] = r.Messages
	return json.Marshal(body)
}

// Generate issues one generation call and decodes the returned image.
func (c *FluxClient) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt = fmt.Sprintf("%s\nAvoid: %s", prompt, req.NegativePrompt)
	}

	body, err := json.Marshal(fluxRequest{
		Model:    c.model,
		Messages: []fluxMessage{{Role: "user", Content: prompt}},
		Extra:    generation.MergeParams(c.defaults, req.Params),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	c.logger.DebugContext(ctx, "requesting image", "scenario_id", req.ScenarioID, "model", c.model)

	start := time.Now()
	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var parsed fluxResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &errors.RemoteError{
			Provider: c.name,
			Body:     excerpt(respBody),
			Cause:    fmt.Errorf("unparseable response: %w", err),
		}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, &errors.RemoteError{
			Provider: c.name,
			Body:     excerpt(respBody),
			Cause:    fmt.Errorf("response contains no image content"),
		}
	}

	image, err := decodeImageContent(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, &errors.RemoteError{Provider: c.name, Cause: err}
	}

	return &generation.Result{
		ScenarioID: req.ScenarioID,
		Image:      image,
		Model:      c.model,
		Duration:   time.Since(start),
	}, nil
}

func (c *FluxClient) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.creds.APIKey)

	resp, err := c.httpClient.Do(httpReq)
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
	return respBody, nil
}

// decodeImageContent accepts either a bare base64 string or a data URI.
func decodeImageContent(content string) ([]byte, error) {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "base64,"); idx >= 0 {
		content = content[idx+len("base64,"):]
	}
	image, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decoding image content: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("decoded image is empty")
	}
	return image, nil
}

func excerpt(body []byte) string {
	s := string(body)
	if len(s) > maxErrorBodyExcerpt {
		return s[:maxErrorBodyExcerpt] + "..."
	}
	return s
}
