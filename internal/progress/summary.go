package progress

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// Failure formats the CLI's final failure line per spec §7: step index,
// step type, and error kind, plus the error message.
func Failure(stepIndex int, stepType, kind string, err error) string {
	if stepType == "" {
		return failureStyle.Render(fmt.Sprintf("FAILED: %s: %v", kind, err))
	}
	return failureStyle.Render(fmt.Sprintf("FAILED at step %d (%s): %s: %v", stepIndex, stepType, kind, err))
}

// Success formats the CLI's final success line.
func Success(recipePath string, elapsed time.Duration) string {
	return successStyle.Render(fmt.Sprintf("OK: %s completed in %s", recipePath, elapsed.Round(time.Millisecond)))
}
