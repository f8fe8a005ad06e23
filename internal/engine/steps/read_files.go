package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"github.com/go-recipes/recipeflow/internal/pathutil"
	"gopkg.in/yaml.v3"
)

// ReadFilesStep implements the read_files step (spec §4.4.2).
type ReadFilesStep struct {
	renderer   *template.Renderer
	path       interface{} // string or []interface{}
	contentKey string
	optional   bool
	mergeMode  string
	logger     *log.Logger
}

func newReadFilesStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	path, ok := config["path"]
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "read_files", Reason: `"path" is required`}
	}
	contentKey, ok := config["content_key"].(string)
	if !ok || contentKey == "" {
		return nil, &errs.ConfigValidationError{StepType: "read_files", Reason: `"content_key" is required`}
	}

	mergeMode := stringConfig(config, "merge_mode", "concat")
	if mergeMode != "concat" && mergeMode != "dict" {
		return nil, &errs.ConfigValidationError{StepType: "read_files", Reason: `"merge_mode" must be "concat" or "dict"`}
	}

	return &ReadFilesStep{
		renderer:   stepRenderer(exec),
		path:       path,
		contentKey: contentKey,
		optional:   boolConfig(config, "optional", false),
		mergeMode:  mergeMode,
		logger:     logger,
	}, nil
}

func (s *ReadFilesStep) Execute(_ context.Context, rc *engine.Context) error {
	contentKey, err := renderString(s.renderer, s.contentKey, rc)
	if err != nil {
		return err
	}

	paths, err := s.resolvePaths(rc)
	if err != nil {
		return err
	}

	type readResult struct {
		path    string
		value   interface{}
		isRaw   bool
		skipped bool
	}
	results := make([]readResult, 0, len(paths))

	for _, p := range paths {
		expanded, err := pathutil.Expand(p)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				if s.optional {
					results = append(results, readResult{path: p, skipped: true})
					continue
				}
				return &errs.FileNotFoundError{Path: p}
			}
			return &errs.FileNotFoundError{Path: p}
		}

		value, isRaw := parseFileContent(expanded, data, s.logger)
		results = append(results, readResult{path: p, value: value, isRaw: isRaw})
	}

	kept := make([]readResult, 0, len(results))
	for _, r := range results {
		if !r.skipped {
			kept = append(kept, r)
		}
	}

	var final interface{}
	switch len(kept) {
	case 0:
		if s.mergeMode == "dict" && len(paths) > 1 {
			final = map[string]interface{}{}
		} else {
			final = ""
		}
	case 1:
		final = kept[0].value
	default:
		if s.mergeMode == "dict" {
			m := make(map[string]interface{}, len(kept))
			for _, r := range kept {
				m[r.path] = r.value
			}
			final = m
		} else {
			segments := make([]string, 0, len(kept))
			for _, r := range kept {
				segments = append(segments, fmt.Sprintf("%s\n%s", r.path, toTextSegment(r.value)))
			}
			final = strings.Join(segments, "\n")
		}
	}

	rc.Set(contentKey, final)
	return nil
}

func toTextSegment(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func parseFileContent(path string, data []byte, logger *log.Logger) (value interface{}, isRaw bool) {
	ext := strings.ToLower(filepath.Ext(path))
	text := string(data)

	switch ext {
	case ".json":
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			logger.Printf("warning: %s: invalid JSON, falling back to raw text: %v", path, err)
			return text, true
		}
		return v, false
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			logger.Printf("warning: %s: invalid YAML, falling back to raw text: %v", path, err)
			return text, true
		}
		return normalizeYAML(v), false
	default:
		return text, true
	}
}

// normalizeYAML converts yaml.v3's map[string]interface{} (already the
// decode target for mapping nodes) recursively so that nested mapping
// values decoded as map[string]interface{} stay consistent with the JSON
// path's output shape.
func normalizeYAML(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[k] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func (s *ReadFilesStep) resolvePaths(rc *engine.Context) ([]string, error) {
	switch p := s.path.(type) {
	case string:
		rendered, err := renderString(s.renderer, p, rc)
		if err != nil {
			return nil, err
		}
		if strings.Contains(rendered, ",") {
			parts := strings.Split(rendered, ",")
			out := make([]string, len(parts))
			for i, part := range parts {
				out[i] = strings.TrimSpace(part)
			}
			return out, nil
		}
		return []string{rendered}, nil
	case []interface{}:
		out := make([]string, 0, len(p))
		for _, item := range p {
			str, ok := item.(string)
			if !ok {
				return nil, &errs.ConfigValidationError{StepType: "read_files", Reason: "each path element must be a string"}
			}
			rendered, err := renderString(s.renderer, str, rc)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered)
		}
		return out, nil
	default:
		return nil, &errs.ConfigValidationError{StepType: "read_files", Reason: `"path" must be a string or list of strings`}
	}
}
