package steps

import (
	"testing"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMGenerate_RequiresPrompt(t *testing.T) {
	_, err := newLLMGenerateStep(nil, map[string]interface{}{
		"output_format": "text",
	}, newTestExecutor())
	require.Error(t, err)
	assert.Equal(t, "ConfigValidationError", errs.Kind(err))
}

func TestLLMGenerate_RequiresOutputFormat(t *testing.T) {
	_, err := newLLMGenerateStep(nil, map[string]interface{}{
		"prompt": "hello",
	}, newTestExecutor())
	require.Error(t, err)
}

func TestLLMGenerate_RejectsMalformedOutputFormat(t *testing.T) {
	_, err := newLLMGenerateStep(nil, map[string]interface{}{
		"prompt":        "hello",
		"output_format": 42,
	}, newTestExecutor())
	require.Error(t, err)
}

func TestLLMGenerate_DefaultsModelAndOutputKey(t *testing.T) {
	step, err := newLLMGenerateStep(nil, map[string]interface{}{
		"prompt":        "hello",
		"output_format": "text",
	}, newTestExecutor())
	require.NoError(t, err)
	llmStep := step.(*LLMGenerateStep)
	assert.Equal(t, "openai/gpt-4o", llmStep.model)
	assert.Equal(t, "llm_output", llmStep.outputKey)
}

func TestLLMGenerate_ResolveSchema_Text(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: "text"}
	schema, err := s.resolveSchema()
	require.NoError(t, err)
	assert.Nil(t, schema)
}

func TestLLMGenerate_ResolveSchema_Files(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: "files"}
	schema, err := s.resolveSchema()
	require.NoError(t, err)
	assert.Equal(t, filesSchema, schema)
}

func TestLLMGenerate_ResolveSchema_InvalidString(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: "bogus"}
	_, err := s.resolveSchema()
	require.Error(t, err)
	assert.Equal(t, "InvalidOutputFormat", errs.Kind(err))
}

func TestLLMGenerate_ResolveSchema_Mapping(t *testing.T) {
	schema := map[string]interface{}{"type": "object"}
	s := &LLMGenerateStep{outputFormat: schema}
	got, err := s.resolveSchema()
	require.NoError(t, err)
	assert.Equal(t, schema, got)
}

func TestLLMGenerate_ResolveSchema_WrappedList(t *testing.T) {
	inner := map[string]interface{}{"type": "object", "properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}}}
	s := &LLMGenerateStep{outputFormat: []interface{}{inner}}
	got, err := s.resolveSchema()
	require.NoError(t, err)
	props := got["properties"].(map[string]interface{})
	items := props["items"].(map[string]interface{})
	assert.Equal(t, "array", items["type"])
	assert.Equal(t, inner, items["items"])
	assert.Equal(t, []interface{}{"items"}, got["required"])
}

func TestLLMGenerate_ResolveSchema_RejectsMultiElementList(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: []interface{}{
		map[string]interface{}{"type": "object"},
		map[string]interface{}{"type": "object"},
	}}
	_, err := s.resolveSchema()
	require.Error(t, err)
}

func TestLLMGenerate_CoerceOutput_Text(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: "text"}
	v, err := s.coerceOutput(llm.Result{Text: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", v)
}

func TestLLMGenerate_CoerceOutput_Files(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: "files"}
	files := []interface{}{
		map[string]interface{}{"path": "a.txt", "content": "X"},
	}
	v, err := s.coerceOutput(llm.Result{Object: map[string]interface{}{"files": files}})
	require.NoError(t, err)
	assert.Equal(t, files, v)
}

func TestLLMGenerate_CoerceOutput_Mapping(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: map[string]interface{}{"type": "object"}}
	obj := map[string]interface{}{"a": float64(1)}
	v, err := s.coerceOutput(llm.Result{Object: obj})
	require.NoError(t, err)
	assert.Equal(t, obj, v)
}

func TestLLMGenerate_CoerceOutput_WrappedList(t *testing.T) {
	s := &LLMGenerateStep{outputFormat: []interface{}{map[string]interface{}{"type": "object"}}}
	items := []interface{}{map[string]interface{}{"name": "a"}}
	v, err := s.coerceOutput(llm.Result{Object: map[string]interface{}{"items": items}})
	require.NoError(t, err)
	assert.Equal(t, items, v)
}

func TestLLMGenerate_ResolveMaxTokens_Nil(t *testing.T) {
	s := &LLMGenerateStep{renderer: newTestExecutor().Renderer}
	n, err := s.resolveMaxTokens(engine.NewContext(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLLMGenerate_ResolveMaxTokens_Float(t *testing.T) {
	s := &LLMGenerateStep{renderer: newTestExecutor().Renderer, maxTokens: float64(2048)}
	n, err := s.resolveMaxTokens(engine.NewContext(nil))
	require.NoError(t, err)
	assert.Equal(t, 2048, n)
}

func TestLLMGenerate_ResolveMaxTokens_TemplatedString(t *testing.T) {
	rc := engine.NewContext(nil)
	rc.Set("budget", "512")
	s := &LLMGenerateStep{renderer: newTestExecutor().Renderer, maxTokens: "{{ budget }}"}
	n, err := s.resolveMaxTokens(rc)
	require.NoError(t, err)
	assert.Equal(t, 512, n)
}

func TestLLMGenerate_ResolveMaxTokens_NonIntegerStringFails(t *testing.T) {
	s := &LLMGenerateStep{renderer: newTestExecutor().Renderer, maxTokens: "not-a-number"}
	_, err := s.resolveMaxTokens(engine.NewContext(nil))
	require.Error(t, err)
}

func TestLLMGenerate_CollectMCPServers_MergesConfigAndStep(t *testing.T) {
	exec := newTestExecutor()
	rc := engine.NewContext(map[string]interface{}{
		"mcp_servers": []interface{}{
			map[string]interface{}{"name": "from-config", "url": "http://cfg"},
		},
	})

	s := &LLMGenerateStep{
		renderer: exec.Renderer,
		mcpServers: []interface{}{
			map[string]interface{}{"name": "from-step", "url": "http://step"},
		},
	}

	servers, err := s.collectMCPServers(rc)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "from-step", servers[0].Name)
	assert.Equal(t, "from-config", servers[1].Name)
}
