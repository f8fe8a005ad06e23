package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// schemaSystemPrompt builds the instruction every provider's hand-rolled
// (non-native-structured-output) path uses to coerce a plain chat model
// into emitting JSON matching schema: a system/preamble instruction plus
// the schema itself, since none of the wired SDKs' structured-output
// features cover every provider uniformly.
func schemaSystemPrompt(schema map[string]interface{}) string {
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	return fmt.Sprintf(
		"Respond with a single JSON object matching this JSON Schema exactly. "+
			"Output only the JSON object, with no surrounding prose or code fences.\n\n%s",
		string(schemaJSON),
	)
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// parseJSONObject extracts and parses a JSON object from model output that
// may or may not be wrapped in a fenced code block.
func parseJSONObject(text string) (map[string]interface{}, error) {
	candidate := text
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
