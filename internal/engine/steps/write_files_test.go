package steps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFiles_LiteralFilesEntry(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "out.txt", "content": "hello"},
		},
	})

	rc := engine.NewContext(nil)
	require.NoError(t, step.Execute(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteFiles_ContentKeyIndirection(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "out.txt", "content_key": "body"},
		},
	})

	rc := engine.NewContext(nil)
	rc.Set("body", "from context")
	require.NoError(t, step.Execute(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from context", string(data))
}

func TestWriteFiles_ObjectContentIsSerializedAsJSON(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "out.json", "content": map[string]interface{}{"a": 1}},
		},
	})

	rc := engine.NewContext(nil)
	require.NoError(t, step.Execute(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1), decoded["a"])
}

func TestWriteFiles_FilesKeyWithFileSpecList(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root":      dir,
		"files_key": "produced",
	})

	rc := engine.NewContext(nil)
	rc.Set("produced", []interface{}{
		engine.FileSpec{Path: "a.txt", Content: "A"},
		engine.FileSpec{Path: "b.txt", Content: "B"},
	})
	require.NoError(t, step.Execute(context.Background(), rc))

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(a))

	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(b))
}

func TestWriteFiles_FilesKeyWithMappingList(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root":      dir,
		"files_key": "produced",
	})

	rc := engine.NewContext(nil)
	rc.Set("produced", []interface{}{
		map[string]interface{}{"path": "c.txt", "content": "C"},
	})
	require.NoError(t, step.Execute(context.Background(), rc))

	c, err := os.ReadFile(filepath.Join(dir, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "C", string(c))
}

func TestWriteFiles_RejectsPathEscapingRoot(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "../escape.txt", "content": "nope"},
		},
	})

	rc := engine.NewContext(nil)
	err := step.Execute(context.Background(), rc)
	assert.Error(t, err)
}

func TestWriteFiles_CreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	step := newStep(t, newWriteFilesStep, map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "a/b/c.txt", "content": "nested"},
		},
	})

	rc := engine.NewContext(nil)
	require.NoError(t, step.Execute(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))
}

func TestNewWriteFilesStep_RequiresFilesOrFilesKey(t *testing.T) {
	_, err := newWriteFilesStep(nil, map[string]interface{}{"root": "."}, newTestExecutor())
	assert.Error(t, err)
}

func TestNewWriteFilesStep_EachEntryRequiresPathAndContent(t *testing.T) {
	_, err := newWriteFilesStep(nil, map[string]interface{}{
		"files": []interface{}{map[string]interface{}{"content": "x"}},
	}, newTestExecutor())
	assert.Error(t, err)

	_, err = newWriteFilesStep(nil, map[string]interface{}{
		"files": []interface{}{map[string]interface{}{"path": "x.txt"}},
	}, newTestExecutor())
	assert.Error(t, err)
}
