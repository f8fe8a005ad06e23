package steps

import (
	"context"
	"log"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/condeval"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
)

// ConditionalStep implements the conditional step (spec §4.4.4).
type ConditionalStep struct {
	renderer  *template.Renderer
	exec      *engine.Executor
	condition interface{} // string or bool
	ifTrue    []engine.StepDefinition
	ifFalse   []engine.StepDefinition
}

func newConditionalStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	condition, ok := config["condition"]
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "conditional", Reason: `"condition" is required`}
	}
	switch condition.(type) {
	case string, bool:
	default:
		return nil, &errs.ConfigValidationError{StepType: "conditional", Reason: `"condition" must be a string or bool`}
	}

	ifTrue, err := decodeBranch(config["if_true"])
	if err != nil {
		return nil, &errs.ConfigValidationError{StepType: "conditional", Reason: "invalid if_true", Err: err}
	}
	ifFalse, err := decodeBranch(config["if_false"])
	if err != nil {
		return nil, &errs.ConfigValidationError{StepType: "conditional", Reason: "invalid if_false", Err: err}
	}

	return &ConditionalStep{
		renderer:  stepRenderer(exec),
		exec:      exec,
		condition: condition,
		ifTrue:    ifTrue,
		ifFalse:   ifFalse,
	}, nil
}

func decodeBranch(raw interface{}) ([]engine.StepDefinition, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &errs.RecipeLoadError{Source: "conditional branch", Reason: "branch must be an object with a \"steps\" list"}
	}
	recipe, err := engine.LoadRecipeMap(m, "conditional branch")
	if err != nil {
		return nil, err
	}
	return recipe.Steps, nil
}

func (s *ConditionalStep) Execute(ctx context.Context, rc *engine.Context) error {
	result, err := s.evaluate(rc)
	if err != nil {
		return err
	}

	branch := s.ifFalse
	if result {
		branch = s.ifTrue
	}
	if branch == nil {
		return nil
	}
	return s.exec.ExecuteSteps(ctx, branch, rc)
}

func (s *ConditionalStep) evaluate(rc *engine.Context) (bool, error) {
	if b, ok := s.condition.(bool); ok {
		return b, nil
	}
	rendered, err := renderString(s.renderer, s.condition.(string), rc)
	if err != nil {
		return false, err
	}
	return condeval.Eval(rendered)
}
