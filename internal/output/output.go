// Package output resolves where the merged container file is written:
// explicit flag, interactive prompt, or the default name.
package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

// DefaultName is used when the prompt gets blank input or end-of-input.
const DefaultName = "model-merged" + safetensors.Ext

// ErrInterrupted reports a user-initiated interruption. It maps to a
// distinct exit code rather than the generic failure code.
var ErrInterrupted = errors.New("interrupted by user")

// PathError reports an output location that cannot be created.
type PathError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("cannot create output location %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PathError) Unwrap() error {
	return e.Err
}

// PromptResult says how the output name was obtained.
type PromptResult int

// Prompt outcomes, handled explicitly by the caller.
const (
	Provided PromptResult = iota
	DefaultUsed
	Interrupted
)

// Target is a resolved output location. CollidesWithShard flags a path that
// equals one of the input shards; it is a warning, never a blocker.
type Target struct {
	Path              string
	CollidesWithShard bool
}

// Resolver determines the output target for one run.
type Resolver struct {
	In  io.Reader // prompt input, normally os.Stdin
	Out io.Writer // prompt output, normally os.Stdout
	Log *slog.Logger
}

// Resolve turns an explicit name (or, if empty, one interactive prompt) into
// a Target. The resolved name always carries the canonical extension, its
// parent directory exists on return, and collisions with planned shard paths
// are flagged. Cancellation of ctx during the prompt returns ErrInterrupted.
func (r *Resolver) Resolve(ctx context.Context, explicit string, shardPaths []string) (Target, error) {
	name := explicit
	if name == "" {
		prompted, result, err := r.promptName(ctx)
		if err != nil {
			return Target{}, err
		}
		switch result {
		case Provided:
			name = prompted
		case DefaultUsed:
			name = DefaultName
			r.Log.Info("no output filename provided, using default", "name", DefaultName)
		case Interrupted:
			return Target{}, ErrInterrupted
		}
	} else {
		r.Log.Info("using specified output filename", "name", name)
	}

	if !strings.HasSuffix(strings.ToLower(name), safetensors.Ext) {
		name += safetensors.Ext
		r.Log.Info("appending extension to output filename", "name", name)
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return Target{}, &PathError{Path: name, Err: err}
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Target{}, &PathError{Path: abs, Err: err}
		}
	}

	target := Target{Path: abs}
	for _, shard := range shardPaths {
		if shard == abs {
			target.CollidesWithShard = true
			break
		}
	}
	return target, nil
}

// promptName performs the single interactive prompt. Blank input and
// end-of-input both mean "use the default"; only ctx cancellation is an
// interruption.
func (r *Resolver) promptName(ctx context.Context) (string, PromptResult, error) {
	fmt.Fprintf(r.Out, "\nEnter output filename (leave blank for %q): ", DefaultName)

	type line struct {
		text string
		err  error
	}
	lines := make(chan line, 1)
	go func() {
		text, err := bufio.NewReader(r.In).ReadString('\n')
		lines <- line{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		// The reader goroutine stays blocked on stdin; the process is about
		// to exit, so it is abandoned rather than unblocked.
		return "", Interrupted, nil
	case l := <-lines:
		if l.err != nil && !errors.Is(l.err, io.EOF) {
			return "", DefaultUsed, nil
		}
		trimmed := strings.TrimSpace(l.text)
		if trimmed == "" {
			return "", DefaultUsed, nil
		}
		return trimmed, Provided, nil
	}
}
