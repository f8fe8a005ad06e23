package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"github.com/go-recipes/recipeflow/internal/pathutil"
)

// writeEntryConfig is one entry of the `files` config list: a literal path
// or a path_key, and literal content or a content_key, resolved against the
// context at execute time.
type writeEntryConfig struct {
	Path     string
	PathKey  string
	Content  interface{}
	HasValue bool
	ContentK string
}

// WriteFilesStep implements the write_files step (spec §4.4.3).
type WriteFilesStep struct {
	renderer *template.Renderer
	logger   *log.Logger
	root     string
	files    []writeEntryConfig
	filesKey string
}

func newWriteFilesStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	filesKey, _ := config["files_key"].(string)
	filesRaw, hasFiles := config["files"].([]interface{})

	if !hasFiles && filesKey == "" {
		return nil, &errs.ConfigValidationError{StepType: "write_files", Reason: `one of "files_key" or "files" is required`}
	}

	var entries []writeEntryConfig
	if hasFiles {
		entries = make([]writeEntryConfig, 0, len(filesRaw))
		for _, raw := range filesRaw {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return nil, &errs.ConfigValidationError{StepType: "write_files", Reason: "each files entry must be an object"}
			}
			entry := writeEntryConfig{}
			if p, ok := m["path"].(string); ok {
				entry.Path = p
			} else if pk, ok := m["path_key"].(string); ok {
				entry.PathKey = pk
			} else {
				return nil, &errs.ConfigValidationError{StepType: "write_files", Reason: `each files entry requires "path" or "path_key"`}
			}
			if v, ok := m["content"]; ok {
				entry.Content = v
				entry.HasValue = true
			} else if ck, ok := m["content_key"].(string); ok {
				entry.ContentK = ck
			} else {
				return nil, &errs.ConfigValidationError{StepType: "write_files", Reason: `each files entry requires "content" or "content_key"`}
			}
			entries = append(entries, entry)
		}
		filesKey = "" // files wins when both are set
	}

	return &WriteFilesStep{
		renderer: stepRenderer(exec),
		logger:   logger,
		root:     stringConfig(config, "root", "."),
		files:    entries,
		filesKey: filesKey,
	}, nil
}

type resolvedWrite struct {
	path    string
	content interface{}
}

func (s *WriteFilesStep) Execute(_ context.Context, rc *engine.Context) error {
	root, err := renderString(s.renderer, s.root, rc)
	if err != nil {
		return err
	}

	writes, err := s.assemble(rc)
	if err != nil {
		return err
	}

	for _, w := range writes {
		final, err := pathutil.Under(root, w.path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			return fmt.Errorf("write_files: could not create directory for %s: %w", final, err)
		}

		data, err := serializeContent(w.content)
		if err != nil {
			return fmt.Errorf("write_files: could not serialize content for %s: %w", final, err)
		}
		if err := os.WriteFile(final, []byte(data), 0o644); err != nil {
			return fmt.Errorf("write_files: could not write %s: %w", final, err)
		}
		s.logger.Printf("wrote %s (%d bytes)", final, len(data))
	}
	return nil
}

func serializeContent(content interface{}) (string, error) {
	if content == nil {
		return "", nil
	}
	switch v := content.(type) {
	case string:
		return v, nil
	case map[string]interface{}, []interface{}:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func (s *WriteFilesStep) assemble(rc *engine.Context) ([]resolvedWrite, error) {
	if s.filesKey == "" {
		out := make([]resolvedWrite, 0, len(s.files))
		for _, entry := range s.files {
			path := entry.Path
			if path != "" {
				rendered, err := renderString(s.renderer, path, rc)
				if err != nil {
					return nil, err
				}
				path = rendered
			} else {
				v, err := rc.MustGet(entry.PathKey)
				if err != nil {
					return nil, err
				}
				p, ok := v.(string)
				if !ok {
					return nil, &errs.InvalidFilesInputError{Reason: fmt.Sprintf("path_key %q did not resolve to a string", entry.PathKey)}
				}
				path = p
			}

			var content interface{}
			if entry.HasValue {
				content = entry.Content
			} else {
				v, err := rc.MustGet(entry.ContentK)
				if err != nil {
					return nil, err
				}
				content = v
			}
			out = append(out, resolvedWrite{path: path, content: content})
		}
		return out, nil
	}

	v, err := rc.MustGet(s.filesKey)
	if err != nil {
		return nil, err
	}
	return resolveFilesKeyValue(v)
}

func resolveFilesKeyValue(v interface{}) ([]resolvedWrite, error) {
	switch x := v.(type) {
	case engine.FileSpec:
		return []resolvedWrite{{path: x.Path, content: x.Content}}, nil
	case map[string]interface{}:
		return fileEntryFromMap(x)
	case []interface{}:
		out := make([]resolvedWrite, 0, len(x))
		for _, item := range x {
			switch iv := item.(type) {
			case engine.FileSpec:
				out = append(out, resolvedWrite{path: iv.Path, content: iv.Content})
			case map[string]interface{}:
				entries, err := fileEntryFromMap(iv)
				if err != nil {
					return nil, err
				}
				out = append(out, entries...)
			default:
				return nil, &errs.InvalidFilesInputError{Reason: "files_key list element must be a FileSpec or {path, content} mapping"}
			}
		}
		return out, nil
	default:
		return nil, &errs.InvalidFilesInputError{Reason: "files_key must resolve to a FileSpec, a list of FileSpec, or a {path, content} mapping (or list of those)"}
	}
}

func fileEntryFromMap(m map[string]interface{}) ([]resolvedWrite, error) {
	path, ok := m["path"].(string)
	if !ok {
		return nil, &errs.InvalidFilesInputError{Reason: `files_key entry is missing string "path"`}
	}
	content, ok := m["content"]
	if !ok {
		return nil, &errs.InvalidFilesInputError{Reason: `files_key entry is missing "content"`}
	}
	return []resolvedWrite{{path: path, content: content}}, nil
}
