package steps

import (
	"context"
	"testing"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditional_LiteralBoolCondition(t *testing.T) {
	step := newStep(t, newConditionalStep, map[string]interface{}{
		"condition": true,
		"if_true": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "branch", "value": "true"}},
			},
		},
		"if_false": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "branch", "value": "false"}},
			},
		},
	})

	rc := engine.NewContext(nil)
	require.NoError(t, step.Execute(context.Background(), rc))
	assert.Equal(t, "true", rc.Get("branch", nil))
}

func TestConditional_RenderedStringExpression(t *testing.T) {
	step := newStep(t, newConditionalStep, map[string]interface{}{
		"condition": "{{ count }} == 3",
		"if_true": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "branch", "value": "matched"}},
			},
		},
	})

	rc := engine.NewContext(nil)
	rc.Set("count", "3")
	require.NoError(t, step.Execute(context.Background(), rc))
	assert.Equal(t, "matched", rc.Get("branch", nil))
}

func TestConditional_FalseWithNoElseBranchIsANoop(t *testing.T) {
	step := newStep(t, newConditionalStep, map[string]interface{}{
		"condition": false,
		"if_true": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "branch", "value": "true"}},
			},
		},
	})

	rc := engine.NewContext(nil)
	require.NoError(t, step.Execute(context.Background(), rc))
	assert.False(t, rc.Contains("branch"))
}

func TestNewConditionalStep_RequiresCondition(t *testing.T) {
	_, err := newConditionalStep(nil, map[string]interface{}{}, newTestExecutor())
	assert.Error(t, err)
}

func TestNewConditionalStep_RejectsInvalidConditionType(t *testing.T) {
	_, err := newConditionalStep(nil, map[string]interface{}{"condition": 42}, newTestExecutor())
	assert.Error(t, err)
}
