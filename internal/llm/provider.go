// Package llm implements the LLM providers that the engine's llm_generate
// step (internal/engine/steps) dispatches to, against the provider contract
// described in spec §6: generate(prompt, output_type, max_tokens,
// mcp_servers) -> value. Providers are adapted from the teacher's
// utils/models package: OpenAI, Google and Bedrock go through their SDKs,
// Anthropic through a hand-rolled net/http client.
package llm

import "context"

// Request is the rendered, fully-resolved input to a single generate call.
type Request struct {
	Model      string
	Prompt     string
	MaxTokens  int
	Schema     map[string]interface{} // nil => plain text generation
	MCPServers []MCPServerConfig
}

// MCPServerConfig is the rendered server configuration llm_generate forwards
// to the provider alongside the prompt. None of the providers implemented
// here run an autonomous tool-calling loop against these servers; the field
// exists so a provider that does (a future addition) has a stable contract
// to receive them through.
type MCPServerConfig struct {
	Name    string
	Command string
	URL     string
	Raw     map[string]interface{}
}

// Result is a provider's response, coerced by the caller (internal/engine/steps)
// according to output_format.
type Result struct {
	Text   string                 // set when Schema was nil
	Object map[string]interface{} // set when Schema was non-nil
}

// Provider is one LLM backend family.
type Provider interface {
	Name() string
	SupportsModel(model string) bool
	Generate(ctx context.Context, req Request) (Result, error)
}
