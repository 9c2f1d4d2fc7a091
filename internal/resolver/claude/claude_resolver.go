package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"planproof/internal/config"
	"planproof/internal/port"
	"planproof/internal/resolver"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Resolver implements port.FieldResolver using the Anthropic Messages API.
type Resolver struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewResolver creates a Claude-based field resolver from a provider config.
func NewResolver(cfg *config.ResolverProviderConfig) *Resolver {
	return newResolver(cfg, apiURL)
}

// NewResolverWithEndpoint creates a resolver pointing at a custom API endpoint (for testing).
func NewResolverWithEndpoint(cfg *config.ResolverProviderConfig, endpoint string) *Resolver {
	return newResolver(cfg, endpoint)
}

func newResolver(cfg *config.ResolverProviderConfig, endpoint string) *Resolver {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Resolver{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *Resolver) Resolve(ctx context.Context, input port.ResolveInput) (*port.ResolveOutput, error) {
	prompt := resolver.BuildResolutionPrompt(input)

	reqBody := map[string]interface{}{
		"model":      r.model,
		"max_tokens": 4096,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resolver.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, resolver.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, r.model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.ResolveOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	text := resp.Content[0].Text
	resolutions, err := resolver.ParseResolutionJSON(text)
	if err != nil {
		return nil, err
	}

	return &port.ResolveOutput{
		Resolutions: resolutions,
		ModelUsed:   model,
		RawResponse: text,
	}, nil
}
