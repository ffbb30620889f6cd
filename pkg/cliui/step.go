package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	spinnerStyle  = lipgloss.NewStyle().Foreground(green)
)

const spinnerInterval = 80 * time.Millisecond

// spinner redraws one status line until stop is called.
type spinner struct {
	w   io.Writer
	msg string

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

func startSpinner(w io.Writer, msg string) *spinner {
	s := &spinner{
		w:       w,
		msg:     msg,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.mu.Lock()
		fmt.Fprintf(s.w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), s.msg)
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// stop waits for the last frame so the final line cannot be overdrawn.
func (s *spinner) stop() {
	close(s.done)
	<-s.stopped
}

// Step runs fn under msg and finishes the line with a mark and the elapsed
// time. The spinner only animates when w is a terminal, so piped output gets
// the final line alone.
func Step(w io.Writer, msg string, fn func() error) error {
	var s *spinner
	if isTerminal(w) {
		s = startSpinner(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if s != nil {
		s.stop()
	}

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
