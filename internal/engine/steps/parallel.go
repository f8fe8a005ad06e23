package steps

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
)

// ParallelStep implements the parallel step (spec §4.4.7).
type ParallelStep struct {
	exec           *engine.Executor
	branches       [][]engine.StepDefinition
	maxConcurrency int
	delay          float64
}

func newParallelStep(logger *log.Logger, config map[string]interface{}, exec *engine.Executor) (engine.Step, error) {
	substepsRaw, ok := config["substeps"].([]interface{})
	if !ok {
		return nil, &errs.ConfigValidationError{StepType: "parallel", Reason: `"substeps" is required and must be a list`}
	}

	branches := make([][]engine.StepDefinition, 0, len(substepsRaw))
	for _, raw := range substepsRaw {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &errs.ConfigValidationError{StepType: "parallel", Reason: "each substeps entry must be a step object"}
		}
		def, err := engine.DecodeStepDefinitions([]interface{}{m}, "parallel substeps")
		if err != nil {
			return nil, &errs.ConfigValidationError{StepType: "parallel", Reason: "invalid substeps entry", Err: err}
		}
		branches = append(branches, def)
	}

	return &ParallelStep{
		exec:           exec,
		branches:       branches,
		maxConcurrency: intConfig(config, "max_concurrency", 0),
		delay:          floatConfig(config, "delay", 0.0),
	}, nil
}

func (s *ParallelStep) Execute(ctx context.Context, rc *engine.Context) error {
	n := len(s.branches)
	if n == 0 {
		return nil
	}

	capacity := s.maxConcurrency
	if capacity <= 0 {
		capacity = n
	}

	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, capacity)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for i, branch := range s.branches {
		select {
		case <-branchCtx.Done():
			// A prior branch already failed; stop launching new ones but
			// still wait below for ones already in flight to unwind.
			continue
		default:
		}

		if s.delay > 0 && i > 0 {
			select {
			case <-time.After(time.Duration(s.delay * float64(time.Second))):
			case <-branchCtx.Done():
			}
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, branch []engine.StepDefinition) {
			defer wg.Done()
			defer func() { <-sem }()

			clone := rc.Clone()
			if err := s.exec.ExecuteSteps(branchCtx, branch, clone); err != nil {
				once.Do(func() {
					firstErr = &errs.ParallelFailureError{Index: i, Err: err}
					cancel()
				})
			}
		}(i, branch)
	}

	wg.Wait()
	return firstErr
}
