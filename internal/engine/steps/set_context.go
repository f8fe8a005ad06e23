package steps

import (
	"context"
	"log"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
)

// SetContextStep implements the set_context step (spec §4.4.1).
type SetContextStep struct {
	renderer     *template.Renderer
	key          string
	value        interface{}
	nestedRender bool
	ifExists     string
}

func newSetContextStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	key, ok := config["key"].(string)
	if !ok || key == "" {
		return nil, &errs.ConfigValidationError{StepType: "set_context", Reason: `"key" is required`}
	}
	value, ok := config["value"]
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "set_context", Reason: `"value" is required`}
	}

	ifExists, _ := config["if_exists"].(string)
	if ifExists == "" {
		ifExists = "overwrite"
	}
	if ifExists != "overwrite" && ifExists != "merge" {
		return nil, &errs.ConfigValidationError{StepType: "set_context", Reason: `"if_exists" must be "overwrite" or "merge"`}
	}

	nestedRender, _ := config["nested_render"].(bool)

	return &SetContextStep{
		renderer:     stepRenderer(exec),
		key:          key,
		value:        value,
		nestedRender: nestedRender,
		ifExists:     ifExists,
	}, nil
}

func (s *SetContextStep) Execute(_ context.Context, rc *engine.Context) error {
	var (
		rendered interface{}
		err      error
	)
	if s.nestedRender {
		rendered, err = renderValueNested(s.renderer, s.value, rc)
	} else {
		rendered, err = renderValue(s.renderer, s.value, rc)
	}
	if err != nil {
		return err
	}

	if s.ifExists == "overwrite" || !rc.Contains(s.key) {
		rc.Set(s.key, rendered)
		return nil
	}

	existing, _ := rc.MustGet(s.key)
	rc.Set(s.key, mergeValues(existing, rendered))
	return nil
}

// mergeValues implements the type-aware merge rules of §4.4.1.
func mergeValues(existing, incoming interface{}) interface{} {
	switch e := existing.(type) {
	case string:
		if i, ok := incoming.(string); ok {
			return e + i
		}
	case []interface{}:
		if i, ok := incoming.([]interface{}); ok {
			out := make([]interface{}, 0, len(e)+len(i))
			out = append(out, e...)
			out = append(out, i...)
			return out
		}
		out := make([]interface{}, 0, len(e)+1)
		out = append(out, e...)
		return append(out, incoming)
	case map[string]interface{}:
		if i, ok := incoming.(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(e)+len(i))
			for k, v := range e {
				out[k] = v
			}
			for k, v := range i {
				out[k] = v
			}
			return out
		}
	}
	return []interface{}{existing, incoming}
}
