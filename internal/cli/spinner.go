package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// spinnerFrames are the animation frames shown while waiting.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is the delay between animation frames.
const spinnerInterval = 80 * time.Millisecond

// spinner renders an animated progress indicator on stderr. It stops on its
// own when the parent context is cancelled.
type spinner struct {
	message string
	parent  context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// newSpinner creates and starts a spinner with the given message.
func newSpinner(ctx context.Context, message string) *spinner {
	ctx2, cancel := context.WithCancel(ctx)
	s := &spinner{
		message: message,
		parent:  ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go s.run(ctx2)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.stopped)

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			icon := styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)])
			fmt.Fprintf(os.Stderr, "\r%s %s", icon, s.message)
			frame++
		}
	}
}

// Stop halts the animation and clears the spinner line. Safe to call more
// than once.
func (s *spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
		s.clearLine()
	})
}

// StopWithSuccess stops the spinner and prints a success message in its
// place.
func (s *spinner) StopWithSuccess(format string, args ...any) {
	s.Stop()
	printSuccess(format, args...)
}

// StopWithError stops the spinner and prints an error message in its place.
func (s *spinner) StopWithError(format string, args ...any) {
	s.Stop()
	printError(format, args...)
}

// Cancelled reports whether the parent context was cancelled while the
// spinner was running.
func (s *spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// clearLine erases the spinner from the terminal.
func (s *spinner) clearLine() {
	width := len(s.message) + 3
	fmt.Fprintf(os.Stderr, "\r%*s\r", width, "")
}
