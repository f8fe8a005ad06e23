// Package errs defines the typed error kinds the engine surfaces to callers.
//
// Every kind is a distinct Go type so a caller can recover it with errors.As
// regardless of how many layers of step/recipe wrapping sit on top of it.
package errs

import (
	"errors"
	"fmt"
)

// RecipeLoadError reports that a recipe source could not be parsed, or that
// its steps field is absent or malformed.
type RecipeLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *RecipeLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recipe load error (%s): %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("recipe load error (%s): %s", e.Source, e.Reason)
}

func (e *RecipeLoadError) Unwrap() error { return e.Err }

// UnknownStepTypeError reports a step type absent from the registry.
type UnknownStepTypeError struct {
	Type string
}

func (e *UnknownStepTypeError) Error() string {
	return fmt.Sprintf("unknown step type %q", e.Type)
}

// ConfigValidationError reports a step config that failed validation at
// construction time.
type ConfigValidationError struct {
	StepType string
	Reason   string
	Err      error
}

func (e *ConfigValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config for step %q: %s: %v", e.StepType, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid config for step %q: %s", e.StepType, e.Reason)
}

func (e *ConfigValidationError) Unwrap() error { return e.Err }

// MissingArtifactError reports access to an absent required context key.
type MissingArtifactError struct {
	Key string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact %q", e.Key)
}

// TemplateError reports a template syntax or filter error.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error: %v", e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// ConditionError reports a conditional expression that rendered but failed
// to evaluate.
type ConditionError struct {
	Expression string
	Err        error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition error in %q: %v", e.Expression, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// FileNotFoundError reports a non-optional file missing from read_files or
// execute_recipe.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// InvalidFilesInputError reports a write_files files_key value of
// unsupported shape.
type InvalidFilesInputError struct {
	Reason string
}

func (e *InvalidFilesInputError) Error() string {
	return fmt.Sprintf("invalid files input: %s", e.Reason)
}

// InvalidItemsError reports a loop items value that resolves to nil or
// non-iterable.
type InvalidItemsError struct {
	Reason string
}

func (e *InvalidItemsError) Error() string {
	return fmt.Sprintf("invalid loop items: %s", e.Reason)
}

// InvalidOutputFormatError reports a malformed llm_generate output_format.
type InvalidOutputFormatError struct {
	Reason string
}

func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output_format: %s", e.Reason)
}

// LLMError wraps an error from the LLM client, with the context needed to
// diagnose it without re-running the step.
type LLMError struct {
	Model        string
	OutputFormat string
	MaxTokens    int
	Err          error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error (model=%s format=%s max_tokens=%d): %v", e.Model, e.OutputFormat, e.MaxTokens, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// MCPError wraps an error from an MCP session or tool call.
type MCPError struct {
	Server string
	Tool   string
	Err    error
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error (server=%s tool=%s): %v", e.Server, e.Tool, e.Err)
}

func (e *MCPError) Unwrap() error { return e.Err }

// ParallelFailureError wraps the first fault observed by a parallel step.
type ParallelFailureError struct {
	Index int
	Err   error
}

func (e *ParallelFailureError) Error() string {
	return fmt.Sprintf("parallel substep %d failed: %v", e.Index, e.Err)
}

func (e *ParallelFailureError) Unwrap() error { return e.Err }

// StepError annotates an error with the index and type of the step (within
// its immediate steps list) that produced it. The executor wraps every
// step's error in one of these, so the outermost StepError in an error
// chain always names the top-level recipe step that ultimately failed.
type StepError struct {
	Index int
	Type  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Kind returns a short, stable name for the error kind closest to the root
// of err's chain, for the CLI's summary line and for structured logging.
func Kind(err error) string {
	switch {
	case as[*RecipeLoadError](err):
		return "RecipeLoadError"
	case as[*UnknownStepTypeError](err):
		return "UnknownStepType"
	case as[*ConfigValidationError](err):
		return "ConfigValidationError"
	case as[*MissingArtifactError](err):
		return "MissingArtifact"
	case as[*TemplateError](err):
		return "TemplateError"
	case as[*ConditionError](err):
		return "ConditionError"
	case as[*FileNotFoundError](err):
		return "FileNotFound"
	case as[*InvalidFilesInputError](err):
		return "InvalidFilesInput"
	case as[*InvalidItemsError](err):
		return "InvalidItems"
	case as[*InvalidOutputFormatError](err):
		return "InvalidOutputFormat"
	case as[*LLMError](err):
		return "LLMError"
	case as[*MCPError](err):
		return "MCPError"
	case as[*ParallelFailureError](err):
		return "ParallelFailure"
	default:
		return "Error"
	}
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
