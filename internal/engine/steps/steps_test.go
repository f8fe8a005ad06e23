package steps

import (
	"log"

	"github.com/go-recipes/recipeflow/internal/engine"
)

// newTestExecutor builds a minimal Executor with every built-in step
// registered, for step-constructor tests that need to recurse (loop,
// parallel, conditional, execute_recipe).
func newTestExecutor() *engine.Executor {
	registry := engine.NewRegistry()
	RegisterAll(registry)
	return engine.New(registry, log.New(log.Writer(), "", 0))
}
