package steps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/mcpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCP_RequiresServer(t *testing.T) {
	_, err := newMCPStep(nil, map[string]interface{}{
		"tool_name": "search",
	}, newTestExecutor())
	require.Error(t, err)
}

func TestMCP_RequiresToolName(t *testing.T) {
	_, err := newMCPStep(nil, map[string]interface{}{
		"server": map[string]interface{}{"url": "http://localhost"},
	}, newTestExecutor())
	require.Error(t, err)
}

func TestMCP_DefaultsResultKeyAndArguments(t *testing.T) {
	step, err := newMCPStep(nil, map[string]interface{}{
		"server":    map[string]interface{}{"url": "http://localhost"},
		"tool_name": "search",
	}, newTestExecutor())
	require.NoError(t, err)
	m := step.(*MCPStep)
	assert.Equal(t, "tool_result", m.resultKey)
	assert.Equal(t, map[string]interface{}{}, m.arguments)
}

func TestMCP_RenderServerConfig_Stdio(t *testing.T) {
	exec := newTestExecutor()
	rc := engine.NewContext(nil)
	rc.Set("dir", "/tmp/work")

	m := &MCPStep{
		renderer: exec.Renderer,
		server: map[string]interface{}{
			"command":     "mytool",
			"args":        []interface{}{"--flag", "value"},
			"env":         map[string]interface{}{"FOO": "bar"},
			"working_dir": "{{ dir }}",
		},
	}

	cfg, err := m.renderServerConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, "mytool", cfg.Command)
	assert.Equal(t, []string{"--flag", "value"}, cfg.Args)
	assert.Equal(t, "bar", cfg.Env["FOO"])
	assert.Equal(t, "/tmp/work", cfg.WorkingDir)
}

func TestMCP_RenderServerConfig_SSE(t *testing.T) {
	exec := newTestExecutor()
	rc := engine.NewContext(nil)
	rc.Set("host", "example.com")

	m := &MCPStep{
		renderer: exec.Renderer,
		server: map[string]interface{}{
			"url":     "https://{{ host }}/mcp",
			"headers": map[string]interface{}{"Authorization": "Bearer tok"},
		},
	}

	cfg, err := m.renderServerConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Command)
	assert.Equal(t, "https://example.com/mcp", cfg.URL)
	assert.Equal(t, "Bearer tok", cfg.Headers["Authorization"])
}

func TestMCP_RenderArguments_NonStringsPassThrough(t *testing.T) {
	exec := newTestExecutor()
	rc := engine.NewContext(nil)
	rc.Set("name", "widgets")

	m := &MCPStep{
		renderer: exec.Renderer,
		arguments: map[string]interface{}{
			"query": "find {{ name }}",
			"limit": float64(5),
		},
	}

	out, err := m.renderArguments(rc)
	require.NoError(t, err)
	assert.Equal(t, "find widgets", out["query"])
	assert.Equal(t, float64(5), out["limit"])
}

func TestMCP_LookupDotenv_FallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("API_KEY=from-dotenv\n"), 0o644))

	assert.Equal(t, "from-dotenv", lookupDotenv("API_KEY"))
	assert.Equal(t, "", lookupDotenv("MISSING_KEY"))
}

func TestMCP_ServerLabel_PrefersName(t *testing.T) {
	assert.Equal(t, "svc", serverLabel(mcpclient.ServerConfig{Name: "svc", Command: "cmd", URL: "http://x"}))
}

func TestMCP_ServerLabel_FallsBackToCommandThenURL(t *testing.T) {
	assert.Equal(t, "cmd", serverLabel(mcpclient.ServerConfig{Command: "cmd", URL: "http://x"}))
	assert.Equal(t, "http://x", serverLabel(mcpclient.ServerConfig{URL: "http://x"}))
}
