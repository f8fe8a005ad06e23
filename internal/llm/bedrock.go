package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockProvider dispatches Claude models hosted on AWS Bedrock through
// bedrockruntime.InvokeModel, using the Anthropic Messages request/response
// shape Bedrock documents for its Claude models. Grounded on the teacher's
// go.mod, which lists aws-sdk-go-v2/service/bedrockruntime as a direct
// dependency (see DESIGN.md).
type BedrockProvider struct{}

func NewBedrockProvider() *BedrockProvider { return &BedrockProvider{} }

func (b *BedrockProvider) Name() string { return "bedrock" }

func (b *BedrockProvider) SupportsModel(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "anthropic.claude") || strings.HasPrefix(m, "bedrock/")
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockInvokeBody struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockInvokeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (b *BedrockProvider) Generate(ctx context.Context, req Request) (Result, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("bedrock provider: could not load AWS config: %w", err)
	}
	client := bedrockruntime.NewFromConfig(cfg)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	system := ""
	if req.Schema != nil {
		system = schemaSystemPrompt(req.Schema)
	}

	body := bedrockInvokeBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           system,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("bedrock provider: could not marshal request: %w", err)
	}

	modelID := strings.TrimPrefix(req.Model, "bedrock/")
	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return Result{}, fmt.Errorf("bedrock InvokeModel error: %w", err)
	}

	var parsed bedrockInvokeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Result{}, fmt.Errorf("bedrock provider: invalid response body: %w", err)
	}
	if len(parsed.Content) == 0 {
		return Result{}, fmt.Errorf("bedrock provider: empty response content")
	}

	var sb strings.Builder
	for _, c := range parsed.Content {
		sb.WriteString(c.Text)
	}
	text := sb.String()

	if req.Schema == nil {
		return Result{Text: text}, nil
	}
	obj, err := parseJSONObject(text)
	if err != nil {
		return Result{}, fmt.Errorf("bedrock provider: structured output was not valid JSON: %w", err)
	}
	return Result{Object: obj}, nil
}
