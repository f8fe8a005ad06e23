package steps

import (
	"context"
	"log"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"github.com/go-recipes/recipeflow/internal/mcpclient"
	"github.com/joho/godotenv"
)

// MCPStep implements the mcp step (spec §4.4.9).
type MCPStep struct {
	renderer  *template.Renderer
	server    map[string]interface{}
	toolName  string
	arguments map[string]interface{}
	resultKey string
}

func newMCPStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	server, ok := config["server"].(map[string]interface{})
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "mcp", Reason: `"server" is required and must be a mapping`}
	}
	toolName, ok := config["tool_name"].(string)
	if !ok || toolName == "" {
		return nil, &errs.ConfigValidationError{StepType: "mcp", Reason: `"tool_name" is required`}
	}
	arguments, _ := config["arguments"].(map[string]interface{})
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	return &MCPStep{
		renderer:  stepRenderer(exec),
		server:    server,
		toolName:  toolName,
		arguments: arguments,
		resultKey: stringConfig(config, "result_key", "tool_result"),
	}, nil
}

func (s *MCPStep) Execute(ctx context.Context, rc *engine.Context) error {
	toolName, err := renderString(s.renderer, s.toolName, rc)
	if err != nil {
		return err
	}

	arguments, err := s.renderArguments(rc)
	if err != nil {
		return err
	}

	cfg, err := s.renderServerConfig(rc)
	if err != nil {
		return err
	}

	session, err := mcpclient.Open(ctx, cfg)
	if err != nil {
		return &errs.MCPError{Server: serverLabel(cfg), Tool: toolName, Err: err}
	}
	defer session.Close()

	if err := session.Initialize(ctx); err != nil {
		return &errs.MCPError{Server: serverLabel(cfg), Tool: toolName, Err: err}
	}

	result, err := session.CallTool(ctx, toolName, arguments)
	if err != nil {
		return &errs.MCPError{Server: serverLabel(cfg), Tool: toolName, Err: err}
	}

	rc.Set(s.resultKey, result)
	return nil
}

// renderArguments renders every string value in s.arguments; non-strings
// pass through unchanged (§4.4.9 step 1).
func (s *MCPStep) renderArguments(rc *engine.Context) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.arguments))
	for k, v := range s.arguments {
		if str, ok := v.(string); ok {
			rendered, err := renderString(s.renderer, str, rc)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (s *MCPStep) renderServerConfig(rc *engine.Context) (mcpclient.ServerConfig, error) {
	cfg := mcpclient.ServerConfig{}
	if name, ok := s.server["name"].(string); ok {
		cfg.Name = name
	}

	if command, ok := s.server["command"].(string); ok && command != "" {
		rendered, err := renderString(s.renderer, command, rc)
		if err != nil {
			return cfg, err
		}
		cfg.Command = rendered

		if argsRaw, ok := s.server["args"].([]interface{}); ok {
			args := make([]string, 0, len(argsRaw))
			for _, a := range argsRaw {
				str, _ := a.(string)
				rendered, err := renderString(s.renderer, str, rc)
				if err != nil {
					return cfg, err
				}
				args = append(args, rendered)
			}
			cfg.Args = args
		}

		if envRaw, ok := s.server["env"].(map[string]interface{}); ok {
			env := make(map[string]string, len(envRaw))
			for k, v := range envRaw {
				str, _ := v.(string)
				rendered, err := renderString(s.renderer, str, rc)
				if err != nil {
					return cfg, err
				}
				if rendered == "" {
					rendered = lookupDotenv(k)
				}
				env[k] = rendered
			}
			cfg.Env = env
		}

		if workingDir, ok := s.server["working_dir"].(string); ok {
			rendered, err := renderString(s.renderer, workingDir, rc)
			if err != nil {
				return cfg, err
			}
			cfg.WorkingDir = rendered
		}
		return cfg, nil
	}

	if url, ok := s.server["url"].(string); ok {
		rendered, err := renderString(s.renderer, url, rc)
		if err != nil {
			return cfg, err
		}
		cfg.URL = rendered
	}
	if headersRaw, ok := s.server["headers"].(map[string]interface{}); ok {
		headers := make(map[string]string, len(headersRaw))
		for k, v := range headersRaw {
			str, _ := v.(string)
			rendered, err := renderString(s.renderer, str, rc)
			if err != nil {
				return cfg, err
			}
			headers[k] = rendered
		}
		cfg.Headers = headers
	}
	return cfg, nil
}

// lookupDotenv implements the ".env fallback for an empty rendered env
// value" convention from §4.4.9 step 2. A missing .env file or missing key
// simply leaves the value empty.
func lookupDotenv(key string) string {
	vars, err := godotenv.Read(".env")
	if err != nil {
		return ""
	}
	return vars[key]
}

func serverLabel(cfg mcpclient.ServerConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if cfg.Command != "" {
		return cfg.Command
	}
	return cfg.URL
}
