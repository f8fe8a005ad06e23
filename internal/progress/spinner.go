// Package progress provides the CLI's terminal feedback: a spinner for the
// duration of a recipe run and a colorized pass/fail summary line.
// Adapted from the teacher's utils/processor/spinner.go.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Spinner animates a message on stdout while a recipe executes. A no-op
// when stdout isn't a terminal (CI logs, piped output).
type Spinner struct {
	chars   []string
	index   int
	message string
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

func NewSpinner() *Spinner {
	return &Spinner{
		chars: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		stop:  make(chan struct{}),
	}
}

// Start begins animating message. Safe to call once per Spinner lifetime
// between a Start/Stop pair.
func (s *Spinner) Start(message string) {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTTY {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.stop = make(chan struct{})
		s.stopped = false
	}
	s.message = message
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fmt.Print("\033[?25l")
		for {
			select {
			case <-s.stop:
				fmt.Print("\033[?25h\r\033[K")
				return
			default:
				s.mu.Lock()
				spinMsg := fmt.Sprintf("%s %s", s.chars[s.index], s.message)
				s.index = (s.index + 1) % len(s.chars)
				s.mu.Unlock()
				fmt.Printf("\r%s", spinMsg)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
}

// Stop halts the animation and restores the cursor. Safe to call even if
// Start was a no-op (non-terminal stdout) or was never called.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stopped = true
	s.mu.Unlock()
	s.wg.Wait()
}
