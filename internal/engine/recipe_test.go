package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRecipeJSON_ObjectWithSteps(t *testing.T) {
	text := `{
		"description": "a recipe",
		"steps": [
			{"type": "set_context", "config": {"key": "a", "value": "1"}},
			{"type": "set_context", "config": {"key": "b", "value": "2"}}
		]
	}`
	recipe, err := LoadRecipeJSON(text)
	require.NoError(t, err)
	require.Len(t, recipe.Steps, 2)
	assert.Equal(t, "set_context", recipe.Steps[0].Type)
	assert.Equal(t, "a", recipe.Steps[0].Config["key"])
	assert.Equal(t, "a recipe", recipe.Extra["description"])
}

func TestLoadRecipeJSON_BareStepArray(t *testing.T) {
	text := `[{"type": "set_context", "config": {"key": "a", "value": "1"}}]`
	recipe, err := LoadRecipeJSON(text)
	require.NoError(t, err)
	require.Len(t, recipe.Steps, 1)
	assert.Empty(t, recipe.Extra)
}

func TestLoadRecipeJSON_MissingStepsField(t *testing.T) {
	_, err := LoadRecipeJSON(`{"description": "no steps here"}`)
	assert.Error(t, err)
}

func TestLoadRecipeJSON_InvalidJSON(t *testing.T) {
	_, err := LoadRecipeJSON(`{not json`)
	assert.Error(t, err)
}

func TestLoadRecipeJSON_StepMissingType(t *testing.T) {
	_, err := LoadRecipeJSON(`{"steps": [{"config": {}}]}`)
	assert.Error(t, err)
}

func TestLoadRecipeFile_FencedJSONBlockIsExtracted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.md")
	content := "# My Recipe\n\nSome prose.\n\n```json\n" +
		`{"steps": [{"type": "set_context", "config": {"key": "a", "value": "1"}}]}` +
		"\n```\n\nMore prose after.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	recipe, err := LoadRecipeFile(path)
	require.NoError(t, err)
	require.Len(t, recipe.Steps, 1)
	assert.Equal(t, "set_context", recipe.Steps[0].Type)
}

func TestLoadRecipeFile_PlainJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps": []}`), 0o644))

	recipe, err := LoadRecipeFile(path)
	require.NoError(t, err)
	assert.Empty(t, recipe.Steps)
}

func TestLoadRecipeFile_MissingFile(t *testing.T) {
	_, err := LoadRecipeFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDecodeStepDefinitions_RejectsNonObjectEntries(t *testing.T) {
	_, err := DecodeStepDefinitions([]interface{}{"not-an-object"}, "test")
	assert.Error(t, err)
}

func TestDecodeStepDefinitions_DefaultsMissingConfigToEmptyMap(t *testing.T) {
	defs, err := DecodeStepDefinitions([]interface{}{
		map[string]interface{}{"type": "set_context"},
	}, "test")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.NotNil(t, defs[0].Config)
	assert.Empty(t, defs[0].Config)
}
