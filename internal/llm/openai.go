package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-recipes/recipeflow/internal/retry"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider wraps sashabaranov/go-openai, adapted from the teacher's
// utils/models.OpenAIProvider but using the library's native JSON-schema
// response format instead of hand-rolled prompt instructions when a schema
// is requested.
type OpenAIProvider struct{}

func NewOpenAIProvider() *OpenAIProvider { return &OpenAIProvider{} }

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) SupportsModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3")
}

func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (Result, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return Result{}, fmt.Errorf("openai provider: OPENAI_API_KEY is not set")
	}

	client := openai.NewClient(apiKey)

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return Result{}, fmt.Errorf("openai provider: could not marshal schema: %w", err)
		}
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "recipe_output",
				Schema: json.RawMessage(schemaJSON),
				Strict: false,
			},
		}
	}

	out, err := retry.Do(func() (interface{}, error) {
		resp, err := client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai provider: empty response choices")
		}
		return resp.Choices[0].Message.Content, nil
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
		return Result{}, fmt.Errorf("openai provider: structured output was not valid JSON: %w", err)
	}
	return Result{Object: obj}, nil
}
