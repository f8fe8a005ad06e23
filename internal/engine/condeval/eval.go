// Package condeval evaluates the engine's restricted conditional expression
// language (spec §4.4.4): literal booleans, comparison/boolean operators,
// and a fixed helper-function set, with no access to host builtins.
package condeval

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
)

// env is the only surface the compiled expression can see: the fixed
// helper set named in the spec (§4.4.4), nothing from the host language. A
// map env is used, rather than a struct, because the spec's helper names
// (file_exists, all_files_exist, ...) are not valid exported Go identifiers.
type env map[string]interface{}

func newEnv() env {
	return env{
		"file_exists":     fileExists,
		"all_files_exist": allFilesExist,
		"file_is_newer":   fileIsNewer,
		"and_":            and_,
		"or_":             or_,
		"not_":            not_,
		"true":            true,
		"false":           false,
	}
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func allFilesExist(paths []interface{}) bool {
	for _, p := range paths {
		s, ok := p.(string)
		if !ok || !fileExists(s) {
			return false
		}
	}
	return true
}

func fileIsNewer(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return true
	}
	return ai.ModTime().After(bi.ModTime())
}

func and_(vs ...bool) bool {
	for _, v := range vs {
		if !v {
			return false
		}
	}
	return true
}

func or_(vs ...bool) bool {
	for _, v := range vs {
		if v {
			return true
		}
	}
	return false
}

func not_(v bool) bool { return !v }

// sugarCall rewrites bare and(...)/or(...)/not(...) calls onto their
// underscore helper forms, since expr's own and/or/not tokens are its
// infix/prefix boolean operators, not callables.
var sugarCall = regexp.MustCompile(`\b(and|or|not)\s*\(`)

func rewriteSugar(exprText string) string {
	return sugarCall.ReplaceAllString(exprText, "${1}_(")
}

var trueRe = regexp.MustCompile(`^(?i)true$`)
var falseRe = regexp.MustCompile(`^(?i)false$`)

// Eval evaluates rendered conditional text per spec §4.4.4: "true"/"false"
// (any case) short-circuit to a literal bool; anything else is compiled and
// run as a restricted boolean expression.
func Eval(renderedText string) (bool, error) {
	text := strings.TrimSpace(renderedText)
	if trueRe.MatchString(text) {
		return true, nil
	}
	if falseRe.MatchString(text) {
		return false, nil
	}

	program, err := compile(text)
	if err != nil {
		return false, &errs.ConditionError{Expression: text, Err: err}
	}

	out, err := vm.Run(program, newEnv())
	if err != nil {
		return false, &errs.ConditionError{Expression: text, Err: err}
	}

	b, ok := out.(bool)
	if !ok {
		return false, &errs.ConditionError{Expression: text, Err: &notBoolError{value: out}}
	}
	return b, nil
}

func compile(text string) (*vm.Program, error) {
	rewritten := rewriteSugar(text)
	return expr.Compile(rewritten, expr.Env(newEnv()))
}

// notBoolError reports a compiled expression that ran successfully but did
// not produce a boolean result.
type notBoolError struct{ value interface{} }

func (e *notBoolError) Error() string {
	if s, ok := e.value.(string); ok {
		return "condition did not evaluate to a boolean: " + strconv.Quote(s)
	}
	return "condition did not evaluate to a boolean"
}
