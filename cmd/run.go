package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-recipes/recipeflow/internal/engine"
	"github.com/go-recipes/recipeflow/internal/engine/errs"
	"github.com/go-recipes/recipeflow/internal/engine/steps"
	"github.com/go-recipes/recipeflow/internal/progress"
)

var (
	contextFlags []string
	configFlags  []string
	logDir       string
)

var runCmd = &cobra.Command{
	Use:   "run <recipe_path>",
	Short: "Execute a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecipe(args[0])
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&contextFlags, "context", nil, "initial artifact, as key=value (repeatable)")
	runCmd.Flags().StringArrayVar(&configFlags, "config", nil, "initial context config, as key=value (repeatable)")
	runCmd.Flags().StringVar(&logDir, "log-dir", "", "directory to additionally write a timestamped log file to")
}

func runRecipe(recipePath string) error {
	logger, cleanup, err := buildLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	recipe, err := engine.LoadRecipeFile(recipePath)
	if err != nil {
		printFailure(err)
		return err
	}

	artifacts, err := parseKeyValueFlags(contextFlags)
	if err != nil {
		return err
	}
	config, err := parseKeyValueFlags(configFlags)
	if err != nil {
		return err
	}

	rc := engine.NewContext(config)
	for k, v := range artifacts {
		rc.Set(k, v)
	}

	registry := engine.NewRegistry()
	steps.RegisterAll(registry)

	exec := engine.New(registry, logger)

	logger.Printf("[%s] starting recipe %s", exec.RunID, recipePath)
	start := time.Now()

	spinner := progress.NewSpinner()
	spinner.Start(fmt.Sprintf("running %s", recipePath))
	err = exec.Execute(context.Background(), recipe, rc)
	spinner.Stop()

	if err != nil {
		printFailure(err)
		return err
	}

	fmt.Fprintln(os.Stderr, progress.Success(recipePath, time.Since(start)))
	return nil
}

// parseKeyValueFlags decodes a list of "key=value" strings per §6: "values
// are parsed as strings; recipes may parse further via filters."
func parseKeyValueFlags(flags []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(flags))
	for _, kv := range flags {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid flag value %q: expected key=value", kv)
		}
		out[kv[:idx]] = kv[idx+1:]
	}
	return out, nil
}

func buildLogger() (*log.Logger, func(), error) {
	writers := []io.Writer{os.Stderr}
	var file *os.File

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create log dir %q: %w", logDir, err)
		}
		name := fmt.Sprintf("recipeflow-%s.log", time.Now().Format("20060102-150405"))
		f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	flags := log.LstdFlags
	if debug {
		flags |= log.Lshortfile
	}
	logger := log.New(io.MultiWriter(writers...), "", flags)
	cleanup := func() {
		if file != nil {
			file.Close()
		}
	}
	return logger, cleanup, nil
}

// printFailure prints the step index, step type, and error kind per §7's
// "user-visible behavior" clause.
func printFailure(err error) {
	var stepErr *errs.StepError
	if errors.As(err, &stepErr) {
		fmt.Fprintln(os.Stderr, progress.Failure(stepErr.Index, stepErr.Type, errs.Kind(err), err))
		return
	}
	fmt.Fprintln(os.Stderr, progress.Failure(0, "", errs.Kind(err), err))
}
