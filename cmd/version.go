package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// version is a placeholder for the version string, set at build time via
// -ldflags.
var version string

// getVersion returns the version string: build-time ldflags value if set,
// otherwise the VERSION file at the project root (development convenience).
func getVersion() string {
	if version != "" {
		return version
	}
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Dir(filepath.Dir(filename))
		content, err := os.ReadFile(filepath.Join(projectRoot, "VERSION"))
		if err == nil {
			return "v" + strings.TrimSpace(string(content)) + "-dev"
		}
	}
	return "unknown (build with: go build -ldflags \"-X 'github.com/go-recipes/recipeflow/cmd.version=vX.Y.Z'\")"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recipeflow version: %s\n", getVersion())
	},
}
