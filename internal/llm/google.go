package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-recipes/recipeflow/internal/retry"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleProvider wraps generative-ai-go/genai, adapted from the teacher's
// utils/models.GoogleProvider.
type GoogleProvider struct{}

func NewGoogleProvider() *GoogleProvider { return &GoogleProvider{} }

func (g *GoogleProvider) Name() string { return "google" }

func (g *GoogleProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gemini-")
}

func (g *GoogleProvider) Generate(ctx context.Context, req Request) (Result, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return Result{}, fmt.Errorf("google provider: GOOGLE_API_KEY (or GEMINI_API_KEY) is not set")
	}

	out, err := retry.Do(func() (interface{}, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return "", fmt.Errorf("failed to create Google AI client: %w", err)
		}
		defer client.Close()

		model := client.GenerativeModel(req.Model)
		if req.MaxTokens > 0 {
			model.SetMaxOutputTokens(int32(req.MaxTokens))
		}

		parts := []genai.Part{genai.Text(req.Prompt)}
		if req.Schema != nil {
			model.ResponseMIMEType = "application/json"
			parts = []genai.Part{genai.Text(req.Prompt + "\n\n" + schemaSystemPrompt(req.Schema))}
		}

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("google AI API error: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no response candidates returned from Google AI")
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		return sb.String(), nil
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
		return Result{}, fmt.Errorf("google provider: structured output was not valid JSON: %w", err)
	}
	return Result{Object: obj}, nil
}
