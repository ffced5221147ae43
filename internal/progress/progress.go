// Package progress runs a terminal spinner alongside a blocking operation.
//
// The reporter is purely cosmetic: it shares nothing with the operation it
// decorates except a stop signal, its output failures are swallowed, and
// stopping it waits only a bounded time for its final line.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var frames = []string{"|", "/", "-", "\\"}

var (
	frameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Spinner starts background reporters that share an output writer and tick
// interval.
type Spinner struct {
	out      io.Writer
	interval time.Duration
}

// New creates a Spinner writing to out with the default tick interval.
func New(out io.Writer) *Spinner {
	return &Spinner{out: out, interval: 100 * time.Millisecond}
}

// Handle controls one running reporter.
type Handle struct {
	out      io.Writer
	label    string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start launches a reporter that redraws "<label> <frame>" until stopped.
func (s *Spinner) Start(label string) *Handle {
	h := &Handle{
		out:   s.out,
		label: label,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go h.run(s.interval)
	return h
}

func (h *Handle) run(interval time.Duration) {
	defer close(h.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-h.stop:
			// Final line replaces the spinner; errors are swallowed like
			// every other write here.
			_, _ = fmt.Fprintf(h.out, "\r%s %s\033[K\n", h.label, doneStyle.Render("Done!"))
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(h.out, "\r%s %s\033[K", h.label, frameStyle.Render(frames[frame%len(frames)]))
			frame++
		}
	}
}

// StopAndWait signals the reporter to stop and waits for its final output,
// but no longer than timeout. It is safe to call more than once; later calls
// only wait.
func (h *Handle) StopAndWait(timeout time.Duration) {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	select {
	case <-h.done:
	case <-time.After(timeout):
	}
}
