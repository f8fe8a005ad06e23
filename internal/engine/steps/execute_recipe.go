package steps

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
)

// ExecuteRecipeStep implements the execute_recipe step (spec §4.4.5).
type ExecuteRecipeStep struct {
	renderer         *template.Renderer
	exec             *engine.Executor
	recipePath       string
	contextOverrides map[string]interface{}
}

func newExecuteRecipeStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	recipePath, ok := config["recipe_path"].(string)
	if !ok || recipePath == "" {
		return nil, &errs.ConfigValidationError{StepType: "execute_recipe", Reason: `"recipe_path" is required`}
	}
	overrides, _ := config["context_overrides"].(map[string]interface{})

	return &ExecuteRecipeStep{
		renderer:         stepRenderer(exec),
		exec:             exec,
		recipePath:       recipePath,
		contextOverrides: overrides,
	}, nil
}

func (s *ExecuteRecipeStep) Execute(ctx context.Context, rc *engine.Context) error {
	if engine.RecipeDepth(ctx) >= s.exec.MaxDepth {
		return &errs.RecipeLoadError{Source: s.recipePath, Reason: "maximum sub-recipe nesting depth exceeded; check for a cyclic execute_recipe chain"}
	}

	path, err := renderString(s.renderer, s.recipePath, rc)
	if err != nil {
		return err
	}

	recipe, err := engine.LoadRecipeFile(path)
	if err != nil {
		return err
	}

	for k, v := range s.contextOverrides {
		rendered, err := renderValue(s.renderer, v, rc)
		if err != nil {
			return err
		}
		rc.Set(k, coerceJSONStrings(rendered))
	}

	childCtx := engine.WithIncrementedRecipeDepth(ctx)
	return s.exec.Execute(childCtx, recipe, rc)
}

// coerceJSONStrings recurses through a structurally-rendered value and
// parses any string leaf that happens to be a JSON object or array into its
// decoded structure, per §4.4.5 step 2.
func coerceJSONStrings(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		trimmed := strings.TrimSpace(x)
		if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
			return x
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(x), &parsed); err != nil {
			return x
		}
		return parsed
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = coerceJSONStrings(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, item := range x {
			out[k] = coerceJSONStrings(item)
		}
		return out
	default:
		return v
	}
}
