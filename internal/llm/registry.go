package llm

import "strings"

// registry is the process-wide provider family list, ordered most-specific
// first. Adapted from the teacher's utils/models.defaultDetectProvider,
// trimmed to the families this engine actually wires (no local-CLI or
// Ollama/vLLM detection, since those need a reachable local daemon rather
// than an API key).
var registry = []Provider{
	NewAnthropicProvider(),
	NewOpenAIProvider(),
	NewGoogleProvider(),
	NewBedrockProvider(),
}

// Resolve picks a Provider for a rendered model string. An explicit
// "provider/model" prefix (e.g. "anthropic/claude-3-5-sonnet") is tried
// first against each provider's Name(); failing that, family-prefix
// detection runs against the bare model name (e.g. "claude-3-5-sonnet" ->
// anthropic). Returns the provider and the bare model name.
func Resolve(modelSpec string) (Provider, string, bool) {
	if idx := strings.IndexByte(modelSpec, '/'); idx > 0 {
		providerName := modelSpec[:idx]
		bareModel := modelSpec[idx+1:]
		for _, p := range registry {
			if p.Name() == providerName {
				return p, bareModel, true
			}
		}
		// Not a recognized provider prefix: fall through and try
		// family-prefix detection against the whole string, since some
		// model names legitimately contain "/" (e.g. Bedrock inference
		// profile ids).
	}

	for _, p := range registry {
		if p.SupportsModel(modelSpec) {
			return p, modelSpec, true
		}
	}
	return nil, modelSpec, false
}
