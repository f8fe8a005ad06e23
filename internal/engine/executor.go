package engine

import (
	"context"
	"log"

	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"github.com/google/uuid"
)

// DefaultMaxRecipeDepth bounds execute_recipe recursion as a safety rail
// against cyclic recipes, which the engine does not otherwise detect (spec
// §9: "authors must avoid"; recommended default 64).
const DefaultMaxRecipeDepth = 64

// Executor loads, validates, and runs recipes. The same Executor instance
// is reused for sub-recipes and is used internally by loop, parallel,
// conditional, and execute_recipe to recurse.
type Executor struct {
	Registry *Registry
	Logger   *log.Logger
	RunID    string
	MaxDepth int

	// Renderer is the single template.Renderer instance shared by every
	// step this Executor constructs, so raw-block and filter state never
	// needs re-registering per step.
	Renderer *template.Renderer
}

// New creates an Executor bound to the given registry and logger, with a
// fresh run-correlation id.
func New(registry *Registry, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		Registry: registry,
		Logger:   logger,
		RunID:    uuid.NewString(),
		MaxDepth: DefaultMaxRecipeDepth,
		Renderer: template.New(),
	}
}

// Execute runs every step of recipe, in order, against rc.
func (e *Executor) Execute(ctx context.Context, recipe *Recipe, rc *Context) error {
	return e.ExecuteSteps(ctx, recipe.Steps, rc)
}

// ExecuteSteps runs steps, in order, against rc. It is the single dispatch
// path shared by top-level recipe execution and every control-flow step's
// recursion (conditional branches, loop/parallel substeps, sub-recipes).
func (e *Executor) ExecuteSteps(ctx context.Context, steps []StepDefinition, rc *Context) error {
	for i, sd := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		ctor, ok := e.Registry.lookup(sd.Type)
		if !ok {
			return &errs.StepError{Index: i, Type: sd.Type, Err: &errs.UnknownStepTypeError{Type: sd.Type}}
		}

		step, err := ctor(e.Logger, sd.Config, e)
		if err != nil {
			return &errs.StepError{Index: i, Type: sd.Type, Err: err}
		}

		e.Logger.Printf("[%s] step %d/%d: %s", e.RunID, i+1, len(steps), sd.Type)
		if err := step.Execute(ctx, rc); err != nil {
			return &errs.StepError{Index: i, Type: sd.Type, Err: err}
		}
	}
	return nil
}

type depthKeyType struct{}

var depthKey = depthKeyType{}

// RecipeDepth returns the current execute_recipe nesting depth carried on
// ctx (zero at the top level).
func RecipeDepth(ctx context.Context) int {
	if v, ok := ctx.Value(depthKey).(int); ok {
		return v
	}
	return 0
}

// WithIncrementedRecipeDepth returns a context carrying one more level of
// execute_recipe nesting than ctx.
func WithIncrementedRecipeDepth(ctx context.Context) context.Context {
	return context.WithValue(ctx, depthKey, RecipeDepth(ctx)+1)
}
