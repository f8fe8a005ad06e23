// Package template wraps a Liquid template engine (github.com/osteele/liquid)
// with the rendering rules the engine's steps need beyond stock Liquid:
// an inline `{{ a if cond else b }}` extension, raw-block exclusion that
// survives nested rendering, and a fixed-point nested-render helper.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/osteele/liquid"
)

// maxNestedIterations bounds the nested-rendering fixed-point loop so a
// template that keeps producing new template syntax can never hang a step.
const maxNestedIterations = 16

// Renderer renders Liquid-shaped template strings against a binding map.
type Renderer struct {
	mu     sync.Mutex
	engine *liquid.Engine
}

// New builds a Renderer with the engine's custom filters registered.
func New() *Renderer {
	eng := liquid.NewEngine()
	eng.RegisterFilter("json", jsonFilter)
	eng.RegisterFilter("snakecase", snakecaseFilter)
	return &Renderer{engine: eng}
}

var inlineIfElse = regexp.MustCompile(`\{\{\s*(.+?)\s+if\s+(.+?)\s+else\s+(.+?)\s*\}\}`)

var rawBlock = regexp.MustCompile(`(?s)\{%-?\s*raw\s*-?%\}(.*?)\{%-?\s*endraw\s*-?%\}`)

// Render renders src once against bindings. Raw blocks are passed through
// untouched and never re-scanned.
func (r *Renderer) Render(src string, bindings map[string]interface{}) (string, error) {
	withoutRaw, blocks := extractRawBlocks(src)
	out, err := r.renderOnce(withoutRaw, bindings)
	if err != nil {
		return "", err
	}
	return restoreRawBlocks(out, blocks), nil
}

// RenderNested re-renders its own output while the output still contains
// template syntax outside raw blocks and differs from the previous pass,
// stopping at a fixed point or after maxNestedIterations passes.
func (r *Renderer) RenderNested(src string, bindings map[string]interface{}) (string, error) {
	withoutRaw, blocks := extractRawBlocks(src)

	prev := withoutRaw
	out, err := r.renderOnce(prev, bindings)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxNestedIterations; i++ {
		if out == prev || !containsTemplateSyntax(out) {
			break
		}
		prev = out
		out, err = r.renderOnce(prev, bindings)
		if err != nil {
			return "", err
		}
	}

	return restoreRawBlocks(out, blocks), nil
}

func (r *Renderer) renderOnce(src string, bindings map[string]interface{}) (string, error) {
	preprocessed := inlineIfElse.ReplaceAllString(src, `{% if $2 %}{{ $1 }}{% else %}{{ $3 }}{% endif %}`)

	r.mu.Lock()
	out, err := r.engine.ParseAndRenderString(preprocessed, bindings)
	r.mu.Unlock()
	if err != nil {
		return "", &errs.TemplateError{Template: src, Err: err}
	}
	return out, nil
}

func containsTemplateSyntax(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

func extractRawBlocks(src string) (string, []string) {
	var blocks []string
	out := rawBlock.ReplaceAllStringFunc(src, func(m string) string {
		sub := rawBlock.FindStringSubmatch(m)
		blocks = append(blocks, sub[1])
		return rawPlaceholder(len(blocks) - 1)
	})
	return out, blocks
}

func restoreRawBlocks(src string, blocks []string) string {
	for i, b := range blocks {
		src = strings.ReplaceAll(src, rawPlaceholder(i), b)
	}
	return src
}

func rawPlaceholder(i int) string {
	return "\x00RAWBLOCK" + strconv.Itoa(i) + "\x00"
}

func jsonFilter(v interface{}, indent ...int) (string, error) {
	n := 0
	if len(indent) > 0 {
		n = indent[0]
	}
	var (
		b   []byte
		err error
	)
	if n > 0 {
		b, err = json.MarshalIndent(v, "", strings.Repeat(" ", n))
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func snakecaseFilter(s string) string {
	var b strings.Builder
	prevLower, prevAlnum := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 && (prevLower || prevAlnum) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower, prevAlnum = false, true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower, prevAlnum = unicode.IsLower(r), true
		default:
			if b.Len() > 0 {
				b.WriteByte('_')
			}
			prevLower, prevAlnum = false, false
		}
	}
	out := strings.Trim(b.String(), "_")
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return out
}
