package engine

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/go-recipes/recipeflow/internal/engine/errs"
)

// StepDefinition is one entry in a recipe's steps list: a registered type
// name plus its step-specific config.
type StepDefinition struct {
	Type   string
	Config map[string]interface{}
}

// Recipe is a loaded, validated sequence of steps. Unknown top-level
// fields (inputs, outputs, description, ...) are kept in Extra but are
// never consulted by execution, per spec.
type Recipe struct {
	Steps []StepDefinition
	Extra map[string]interface{}
}

var fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*\\n(.*?)```")

// LoadRecipeFile loads a recipe from a filesystem path. If the file
// contains a fenced ```json code block, the first such block is parsed as
// the recipe; otherwise the whole file is parsed as JSON.
func LoadRecipeFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.FileNotFoundError{Path: path}
		}
		return nil, &errs.RecipeLoadError{Source: path, Reason: "could not read file", Err: err}
	}
	text := string(data)
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		return LoadRecipeJSON(m[1])
	}
	return loadRecipeJSONFrom(path, text)
}

// LoadRecipeJSON parses raw JSON text as a recipe.
func LoadRecipeJSON(text string) (*Recipe, error) {
	return loadRecipeJSONFrom("<json>", text)
}

func loadRecipeJSONFrom(source, text string) (*Recipe, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &errs.RecipeLoadError{Source: source, Reason: "invalid JSON", Err: err}
	}
	return LoadRecipeMap(raw, source)
}

// LoadRecipeMap builds a Recipe from an already-decoded JSON value: either
// a top-level object containing "steps", or a bare array treated as the
// steps list directly.
func LoadRecipeMap(raw interface{}, source string) (*Recipe, error) {
	switch v := raw.(type) {
	case []interface{}:
		steps, err := decodeSteps(v, source)
		if err != nil {
			return nil, err
		}
		return &Recipe{Steps: steps, Extra: map[string]interface{}{}}, nil
	case map[string]interface{}:
		stepsRaw, ok := v["steps"]
		if !ok {
			return nil, &errs.RecipeLoadError{Source: source, Reason: "missing required field \"steps\""}
		}
		stepsList, ok := stepsRaw.([]interface{})
		if !ok {
			return nil, &errs.RecipeLoadError{Source: source, Reason: "\"steps\" must be a list"}
		}
		steps, err := decodeSteps(stepsList, source)
		if err != nil {
			return nil, err
		}
		extra := make(map[string]interface{}, len(v))
		for k, val := range v {
			if k == "steps" {
				continue
			}
			extra[k] = val
		}
		return &Recipe{Steps: steps, Extra: extra}, nil
	default:
		return nil, &errs.RecipeLoadError{Source: source, Reason: "recipe root must be an object or a list of steps"}
	}
}

// DecodeStepDefinitions decodes a bare JSON array of step objects (as used
// directly by loop/parallel's `substeps` config field, with no enclosing
// `{"steps": ...}` wrapper) into StepDefinitions.
func DecodeStepDefinitions(raw []interface{}, source string) ([]StepDefinition, error) {
	return decodeSteps(raw, source)
}

func decodeSteps(raw []interface{}, source string) ([]StepDefinition, error) {
	steps := make([]StepDefinition, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, &errs.RecipeLoadError{Source: source, Reason: "each step must be an object"}
		}
		typeName, ok := m["type"].(string)
		if !ok || typeName == "" {
			return nil, &errs.RecipeLoadError{Source: source, Reason: "each step requires a string \"type\""}
		}
		cfg, _ := m["config"].(map[string]interface{})
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		steps = append(steps, StepDefinition{Type: typeName, Config: cfg})
	}
	return steps, nil
}
