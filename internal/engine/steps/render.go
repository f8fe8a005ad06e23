// Package steps implements the engine's nine built-in step kinds and wires
// them into an engine.Registry via RegisterAll.
package steps

import (
	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/template"
)

// renderString renders a single template string against rc's current
// artifacts snapshot.
func renderString(r *template.Renderer, s string, rc *engine.Context) (string, error) {
	return r.Render(s, rc.AsDict())
}

// renderValue recurses through a value's structure (string/list/mapping),
// rendering every string leaf; non-string leaves pass through unchanged.
// This is the structural rendering rule shared by set_context's value,
// execute_recipe's context_overrides, and llm_generate's mcp_servers
// entries (§4.4.1/.5/.8).
func renderValue(r *template.Renderer, v interface{}, rc *engine.Context) (interface{}, error) {
	return renderValueWith(r.Render, v, rc)
}

// renderValueNested is renderValue using the nested (fixed-point) renderer,
// used when nested_render is requested.
func renderValueNested(r *template.Renderer, v interface{}, rc *engine.Context) (interface{}, error) {
	return renderValueWith(r.RenderNested, v, rc)
}

func renderValueWith(renderFn func(string, map[string]interface{}) (string, error), v interface{}, rc *engine.Context) (interface{}, error) {
	bindings := rc.AsDict()
	return renderLeaf(renderFn, v, bindings)
}

func renderLeaf(renderFn func(string, map[string]interface{}) (string, error), v interface{}, bindings map[string]interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return renderFn(x, bindings)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			rendered, err := renderLeaf(renderFn, item, bindings)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, item := range x {
			rendered, err := renderLeaf(renderFn, item, bindings)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}
