package steps

import "github.com/go-recipes/recipeflow/internal/engine"

// RegisterAll wires all nine built-in step kinds (spec §4.4) into r.
func RegisterAll(r *engine.Registry) {
	r.Register("set_context", newSetContextStep)
	r.Register("read_files", newReadFilesStep)
	r.Register("write_files", newWriteFilesStep)
	r.Register("conditional", newConditionalStep)
	r.Register("loop", newLoopStep)
	r.Register("parallel", newParallelStep)
	r.Register("execute_recipe", newExecuteRecipeStep)
	r.Register("llm_generate", newLLMGenerateStep)
	r.Register("mcp", newMCPStep)
}
