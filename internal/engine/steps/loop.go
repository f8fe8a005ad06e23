package steps

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/template"
	"golang.org/x/sync/semaphore"
)

// LoopStep implements the loop step (spec §4.4.6).
type LoopStep struct {
	renderer       *template.Renderer
	exec           *engine.Executor
	items          interface{} // string, []interface{}, or map[string]interface{}
	itemKey        string
	substeps       []engine.StepDefinition
	resultKey      string
	maxConcurrency int
	delay          float64
	failFast       bool
}

func newLoopStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	items, ok := config["items"]
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "loop", Reason: `"items" is required`}
	}
	itemKey, ok := config["item_key"].(string)
	if !ok || itemKey == "" {
		return nil, &errs.ConfigValidationError{StepType: "loop", Reason: `"item_key" is required`}
	}
	substepsRaw, ok := config["substeps"].([]interface{})
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "loop", Reason: `"substeps" is required and must be a list`}
	}
	substeps, err := engine.DecodeStepDefinitions(substepsRaw, "loop substeps")
	if err != nil {
		return nil, &errs.ConfigValidationError{StepType: "loop", Reason: "invalid substeps", Err: err}
	}
	resultKey, ok := config["result_key"].(string)
	if !ok || resultKey == "" {
		return nil, &errs.ConfigValidationError{StepType: "loop", Reason: `"result_key" is required`}
	}

	return &LoopStep{
		renderer:       stepRenderer(exec),
		exec:           exec,
		items:          items,
		itemKey:        itemKey,
		substeps:       substeps,
		resultKey:      resultKey,
		maxConcurrency: intConfig(config, "max_concurrency", 1),
		delay:          floatConfig(config, "delay", 0.0),
		failFast:       boolConfig(config, "fail_fast", true),
	}, nil
}

// loopCollection is the resolved iteration set, normalized to parallel
// key/value slices regardless of input shape.
type loopCollection struct {
	isList bool
	keys   []interface{} // int for lists, string for mappings
	values []interface{}
}

func (s *LoopStep) resolveCollection(rc *engine.Context) (*loopCollection, error) {
	resolved := s.items
	if str, ok := s.items.(string); ok {
		rendered, err := renderString(s.renderer, str, rc)
		if err != nil {
			return nil, err
		}
		if v, ok := resolveDotPath(rc, rendered); ok {
			resolved = v
		} else {
			resolved = rendered
		}
	}

	switch v := resolved.(type) {
	case []interface{}:
		keys := make([]interface{}, len(v))
		for i := range v {
			keys[i] = i
		}
		return &loopCollection{isList: true, keys: keys, values: v}, nil
	case map[string]interface{}:
		keys := make([]interface{}, 0, len(v))
		values := make([]interface{}, 0, len(v))
		for k, val := range v {
			keys = append(keys, k)
			values = append(values, val)
		}
		return &loopCollection{isList: false, keys: keys, values: values}, nil
	default:
		return nil, &errs.InvalidItemsError{Reason: "items must resolve to a list or a mapping"}
	}
}

func resolveDotPath(rc *engine.Context, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	if !rc.Contains(parts[0]) {
		return nil, false
	}
	current, _ := rc.MustGet(parts[0])
	for _, part := range parts[1:] {
		switch c := current.(type) {
		case map[string]interface{}:
			v, ok := c[part]
			if !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			current = c[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func (s *LoopStep) Execute(ctx context.Context, rc *engine.Context) error {
	coll, err := s.resolveCollection(rc)
	if err != nil {
		return err
	}

	n := len(coll.values)
	if n == 0 {
		if coll.isList {
			rc.Set(s.resultKey, []interface{}{})
		} else {
			rc.Set(s.resultKey, map[string]interface{}{})
		}
		return nil
	}

	results := make([]interface{}, n)
	resultOK := make([]bool, n)
	errorMsgs := make([]string, n)
	errorOK := make([]bool, n)
	var mu sync.Mutex

	runOne := func(i int) {
		clone := rc.Clone()
		clone.Set(s.itemKey, coll.values[i])
		if coll.isList {
			clone.Set("__index", coll.keys[i])
		} else {
			clone.Set("__key", coll.keys[i])
		}

		execErr := s.exec.ExecuteSteps(ctx, s.substeps, clone)

		mu.Lock()
		defer mu.Unlock()
		if execErr != nil {
			errorMsgs[i] = execErr.Error()
			errorOK[i] = true
			return
		}
		processed := clone.Get(s.itemKey, coll.values[i])
		results[i] = processed
		resultOK[i] = true
	}

	if s.maxConcurrency == 1 {
		for i := 0; i < n; i++ {
			runOne(i)
			if s.failFast && errorOK[i] {
				break
			}
		}
	} else {
		s.runConcurrent(ctx, n, runOne, errorOK, &mu)
	}

	s.writeResults(rc, coll, n, results, resultOK, errorMsgs, errorOK, &mu)
	return nil
}

func (s *LoopStep) runConcurrent(ctx context.Context, n int, runOne func(int), errorOK []bool, mu *sync.Mutex) {
	capacity := int64(s.maxConcurrency)
	if s.maxConcurrency <= 0 {
		capacity = int64(n)
	}
	sem := semaphore.NewWeighted(capacity)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := sem.Acquire(loopCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			runOne(i)
			if s.failFast {
				mu.Lock()
				failed := errorOK[i]
				mu.Unlock()
				if failed {
					cancel()
				}
			}
		}(i)

		if s.delay > 0 && i < n-1 {
			select {
			case <-time.After(time.Duration(s.delay * float64(time.Second))):
			case <-loopCtx.Done():
			}
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-loopCtx.Done():
		// fail_fast cancelled the loop; outstanding goroutines keep running
		// in the background but their results are ignored (spec §4.4.6).
	}
}

// writeResults reads the shared result slices. Taking mu guards against the
// fail_fast path, where abandoned goroutines (see runConcurrent) may still
// be writing to these slices when Execute returns.
func (s *LoopStep) writeResults(rc *engine.Context, coll *loopCollection, n int, results []interface{}, resultOK []bool, errorMsgs []string, errorOK []bool, mu *sync.Mutex) {
	mu.Lock()
	results = append([]interface{}(nil), results...)
	resultOK = append([]bool(nil), resultOK...)
	errorMsgs = append([]string(nil), errorMsgs...)
	errorOK = append([]bool(nil), errorOK...)
	mu.Unlock()

	anyErr := false
	for _, ok := range errorOK {
		if ok {
			anyErr = true
			break
		}
	}

	if coll.isList {
		resultList := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			if resultOK[i] {
				resultList = append(resultList, results[i])
			}
		}
		rc.Set(s.resultKey, resultList)

		if anyErr {
			errList := make([]interface{}, 0)
			for i := 0; i < n; i++ {
				if errorOK[i] {
					errList = append(errList, map[string]interface{}{"index": coll.keys[i], "error": errorMsgs[i]})
				}
			}
			rc.Set(s.resultKey+"__errors", errList)
		}
		return
	}

	resultMap := make(map[string]interface{}, n)
	for i := 0; i < n; i++ {
		if resultOK[i] {
			resultMap[fmt.Sprint(coll.keys[i])] = results[i]
		}
	}
	rc.Set(s.resultKey, resultMap)

	if anyErr {
		errMap := make(map[string]interface{})
		for i := 0; i < n; i++ {
			if errorOK[i] {
				errMap[fmt.Sprint(coll.keys[i])] = map[string]interface{}{"error": errorMsgs[i]}
			}
		}
		rc.Set(s.resultKey+"__errors", errMap)
	}
}
