package merge

import (
	"path/filepath"
	"time"

	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

// ProgressHandle stops a running progress reporter, waiting no longer than
// the given timeout for its cleanup output.
type ProgressHandle interface {
	StopAndWait(timeout time.Duration)
}

// StartProgress starts a background progress reporter with the given label
// and returns the handle that stops it.
type StartProgress func(label string) ProgressHandle

// WriteFunc performs the codec's single full-mapping write.
type WriteFunc func(path string, tensors map[string]safetensors.Tensor, metadata map[string]string) error

// reporterGrace bounds how long Write waits for the reporter's cleanup
// output after the write call has returned.
const reporterGrace = 2 * time.Second

// Write performs the one blocking write of the merged set and returns its
// duration. The progress reporter runs for exactly the duration of the write:
// it is started first and stopped, with a bounded wait, after the write call
// returns, so a write failure is surfaced only once the reporter is down.
func Write(merged MergedSet, path string, write WriteFunc, startProgress StartProgress) (time.Duration, error) {
	handle := startProgress("Saving to " + filepath.Base(path))
	start := time.Now()
	err := write(path, merged, nil)
	handle.StopAndWait(reporterGrace)

	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}
	return time.Since(start), nil
}
