package steps

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"github.com/go-recipes/recipeflow/internal/llm"
)

// LLMGenerateStep implements the llm_generate step (spec §4.4.8).
type LLMGenerateStep struct {
	renderer     *template.Renderer
	prompt       string
	model        string
	maxTokens    interface{} // int, string, or nil
	mcpServers   []interface{}
	outputFormat interface{} // "text", "files", mapping, or [mapping]
	outputKey    string
}

func newLLMGenerateStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, &errs.ConfigValidationError{StepType: "llm_generate", Reason: `"prompt" is required`}
	}
	outputFormat, ok := config["output_format"]
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "llm_generate", Reason: `"output_format" is required`}
	}
	switch outputFormat.(type) {
	case string, map[string]interface{}, []interface{}:
	default:
		return nil, &errs.ConfigValidationError{StepType: "llm_generate", Reason: "output_format must be a string, mapping, or one-element list of mapping"}
	}

	mcpServers, _ := config["mcp_servers"].([]interface{})

	return &LLMGenerateStep{
		renderer:     stepRenderer(exec),
		prompt:       prompt,
		model:        stringConfig(config, "model", "openai/gpt-4o"),
		maxTokens:    config["max_tokens"],
		mcpServers:   mcpServers,
		outputFormat: outputFormat,
		outputKey:    stringConfig(config, "output_key", "llm_output"),
	}, nil
}

func (s *LLMGenerateStep) Execute(ctx context.Context, rc *engine.Context) error {
	prompt, err := renderString(s.renderer, s.prompt, rc)
	if err != nil {
		return err
	}
	model, err := renderString(s.renderer, s.model, rc)
	if err != nil {
		return err
	}
	outputKey, err := renderString(s.renderer, s.outputKey, rc)
	if err != nil {
		return err
	}
	maxTokens, err := s.resolveMaxTokens(rc)
	if err != nil {
		return err
	}

	servers, err := s.collectMCPServers(rc)
	if err != nil {
		return err
	}

	schema, err := s.resolveSchema()
	if err != nil {
		return err
	}

	provider, bareModel, ok := llm.Resolve(model)
	if !ok {
		return &errs.LLMError{Model: model, OutputFormat: formatLabel(s.outputFormat), MaxTokens: maxTokens, Err: fmt.Errorf("no provider recognizes model %q", model)}
	}

	req := llm.Request{
		Model:      bareModel,
		Prompt:     prompt,
		MaxTokens:  maxTokens,
		Schema:     schema,
		MCPServers: servers,
	}

	result, err := provider.Generate(ctx, req)
	if err != nil {
		return &errs.LLMError{Model: model, OutputFormat: formatLabel(s.outputFormat), MaxTokens: maxTokens, Err: err}
	}

	value, err := s.coerceOutput(result)
	if err != nil {
		return err
	}
	rc.Set(outputKey, value)
	return nil
}

func (s *LLMGenerateStep) resolveMaxTokens(rc *engine.Context) (int, error) {
	switch v := s.maxTokens.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		rendered, err := renderString(s.renderer, v, rc)
		if err != nil {
			return 0, err
		}
		if rendered == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(rendered)
		if err != nil {
			return 0, &errs.ConfigValidationError{StepType: "llm_generate", Reason: "max_tokens did not render to an integer", Err: err}
		}
		return n, nil
	default:
		return 0, &errs.ConfigValidationError{StepType: "llm_generate", Reason: "max_tokens must be an int, string, or null"}
	}
}

func (s *LLMGenerateStep) collectMCPServers(rc *engine.Context) ([]llm.MCPServerConfig, error) {
	entries := make([]interface{}, 0, len(s.mcpServers))
	entries = append(entries, s.mcpServers...)
	if fromConfig, ok := rc.GetConfig()["mcp_servers"].([]interface{}); ok {
		entries = append(entries, fromConfig...)
	}

	out := make([]llm.MCPServerConfig, 0, len(entries))
	for _, raw := range entries {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		rendered, err := renderValue(s.renderer, m, rc)
		if err != nil {
			return nil, err
		}
		rm := rendered.(map[string]interface{})
		cfg := llm.MCPServerConfig{Raw: rm}
		if name, ok := rm["name"].(string); ok {
			cfg.Name = name
		}
		if cmd, ok := rm["command"].(string); ok {
			cfg.Command = cmd
		}
		if url, ok := rm["url"].(string); ok {
			cfg.URL = url
		}
		out = append(out, cfg)
	}
	return out, nil
}

// resolveSchema interprets output_format per §4.4.8 step 3, returning a nil
// schema for "text", filesSchema for "files" (whose `files` list
// coerceOutput unwraps), and the JSON-schema-shaped mapping for
// structured-output requests.
func (s *LLMGenerateStep) resolveSchema() (map[string]interface{}, error) {
	switch v := s.outputFormat.(type) {
	case string:
		if v == "text" {
			return nil, nil
		}
		if v == "files" {
			return filesSchema, nil
		}
		return nil, &errs.InvalidOutputFormatError{Reason: "string output_format must be \"text\" or \"files\""}
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		if len(v) != 1 {
			return nil, &errs.InvalidOutputFormatError{Reason: "list output_format must contain exactly one mapping"}
		}
		inner, ok := v[0].(map[string]interface{})
		if !ok {
			return nil, &errs.InvalidOutputFormatError{Reason: "list output_format element must be a mapping"}
		}
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"items": map[string]interface{}{
					"type":  "array",
					"items": inner,
				},
			},
			"required": []interface{}{"items"},
		}, nil
	default:
		return nil, &errs.InvalidOutputFormatError{Reason: "unsupported output_format shape"}
	}
}

var filesSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"files": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    map[string]interface{}{"type": "string"},
					"content": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"path", "content"},
			},
		},
	},
	"required": []interface{}{"files"},
}

func (s *LLMGenerateStep) coerceOutput(result llm.Result) (interface{}, error) {
	switch v := s.outputFormat.(type) {
	case string:
		if v == "text" {
			return result.Text, nil
		}
		// "files"
		files, _ := result.Object["files"].([]interface{})
		return files, nil
	case map[string]interface{}:
		return result.Object, nil
	case []interface{}:
		items, _ := result.Object["items"].([]interface{})
		return items, nil
	default:
		return nil, &errs.InvalidOutputFormatError{Reason: "unsupported output_format shape"}
	}
}

func formatLabel(outputFormat interface{}) string {
	if s, ok := outputFormat.(string); ok {
		return s
	}
	return "structured"
}
