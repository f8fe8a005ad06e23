package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-recipes/recipeflow/internal/retry"
)

// AnthropicProvider talks to the Messages API directly, adapted from the
// teacher's utils/models.AnthropicProvider (no official Anthropic Go SDK
// sits in the example pack, so its hand-rolled HTTP client is the grounded
// shape to follow).
type AnthropicProvider struct {
	httpClient *http.Client
}

func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{httpClient: &http.Client{Timeout: 120 * time.Second}}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "claude-")
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *AnthropicProvider) Generate(ctx context.Context, req Request) (Result, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return Result{}, fmt.Errorf("anthropic provider: ANTHROPIC_API_KEY is not set")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	system := ""
	if req.Schema != nil {
		system = schemaSystemPrompt(req.Schema)
	}

	body := anthropicRequest{
		Model:     req.Model,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens: maxTokens,
		System:    system,
	}

	out, err := retry.Do(func() (interface{}, error) {
		return a.call(ctx, apiKey, body)
	}, retry.IsRateLimitError, retry.DefaultConfig)
	if err != nil {
		return Result{}, err
	}

	text := out.(string)
	if req.Schema == nil {
		return Result{Text: text}, nil
	}
	obj, err := parseJSONObject(text)
	if err != nil {
		return Result{}, fmt.Errorf("anthropic provider: structured output was not valid JSON: %w", err)
	}
	return Result{Object: obj}, nil
}

func (a *AnthropicProvider) call(ctx context.Context, apiKey string, body anthropicRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("anthropic provider: invalid response body: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error: status %d", resp.StatusCode)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("anthropic provider: empty response content")
	}

	var sb strings.Builder
	for _, c := range parsed.Content {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}
