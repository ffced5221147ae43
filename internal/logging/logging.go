// Package logging builds the process logger once, from resolved options,
// and hands it to the components that need it. Nothing in this repository
// mutates global logger state.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Options come from the CLI flags (and config-file defaults) after parsing.
type Options struct {
	Verbose bool   // Debug level instead of Info
	File    string // optional secondary log destination, truncated each run
}

// New builds the logger. Console output goes to console; when Options.File
// is set the same lines also go to the file. A file that cannot be opened is
// reported on the console and skipped, it never fails the run. The returned
// close function releases the file, if any.
func New(opts Options, console io.Writer) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	out := console
	closer := func() error { return nil }
	if opts.File != "" {
		file, err := os.Create(opts.File)
		if err != nil {
			fmt.Fprintf(console, "warning: could not open log file %s: %v\n", opts.File, err)
		} else {
			out = io.MultiWriter(console, file)
			closer = file.Close
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer
}
