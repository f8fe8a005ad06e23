package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_BasicSubstitution(t *testing.T) {
	r := New()
	out, err := r.Render("hello {{ name }}", map[string]interface{}{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestRender_InlineIfElse(t *testing.T) {
	r := New()
	out, err := r.Render("{{ 'yes' if flag else 'no' }}", map[string]interface{}{"flag": true})
	require.NoError(t, err)
	assert.Equal(t, "yes", out)

	out, err = r.Render("{{ 'yes' if flag else 'no' }}", map[string]interface{}{"flag": false})
	require.NoError(t, err)
	assert.Equal(t, "no", out)
}

func TestRender_RawBlockPassesThroughUntouched(t *testing.T) {
	r := New()
	src := "{% raw %}{{ not_a_binding }}{% endraw %} rendered: {{ name }}"
	out, err := r.Render(src, map[string]interface{}{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "{{ not_a_binding }} rendered: x", out)
}

func TestRender_JSONFilter(t *testing.T) {
	r := New()
	out, err := r.Render(`{{ items | json }}`, map[string]interface{}{"items": []interface{}{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, out)
}

func TestRender_SnakecaseFilter(t *testing.T) {
	r := New()
	tests := []struct {
		in   string
		want string
	}{
		{"CamelCase", "camel_case"},
		{"already_snake", "already_snake"},
		{"with spaces here", "with_spaces_here"},
		{"HTTPServer", "h_t_t_p_server"},
	}
	for _, tt := range tests {
		out, err := r.Render(`{{ v | snakecase }}`, map[string]interface{}{"v": tt.in})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out)
	}
}

func TestRenderNested_FixedPoint(t *testing.T) {
	r := New()
	bindings := map[string]interface{}{
		"level1": "{{ level2 }}",
		"level2": "done",
	}
	out, err := r.RenderNested("{{ level1 }}", bindings)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestRenderNested_SelfReferencingBindingTerminates(t *testing.T) {
	r := New()
	// A binding whose rendered form is itself template syntax must not hang
	// RenderNested's fixed-point loop; it should settle once output stops
	// changing between passes.
	bindings := map[string]interface{}{"self": "{{ self }}"}
	out, err := r.RenderNested("{{ self }}", bindings)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "{{") || out == "")
}

func TestRender_InvalidSyntaxReturnsTemplateError(t *testing.T) {
	r := New()
	_, err := r.Render("{{ unterminated", nil)
	assert.Error(t, err)
}
