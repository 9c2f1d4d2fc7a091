package openai

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
	apiURL = "https://api.openai.com/v1/chat/completions"
)

// Resolver implements port.FieldResolver using the OpenAI Chat Completions API.
type Resolver struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewResolver creates an OpenAI-based field resolver from a provider config.
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
		model = "gpt-4o"
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
		"model":                 r.model,
		"max_completion_tokens": 4096,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
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
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resolver.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, resolver.NewRateLimitError("openai", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, r.model)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model string) (*port.ResolveOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	text := resp.Choices[0].Message.Content
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
