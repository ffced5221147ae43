package merge

import (
	"errors"
	"fmt"
)

// ErrEmptyResult reports that loading completed but produced no tensors.
// The caller of Load owns this check; an empty merged set is fatal and no
// output file may be produced from it.
var ErrEmptyResult = errors.New("no tensors were loaded")

// ShardOpenError reports a planned shard that could not be opened as a
// container. It aborts the whole run; tensors already merged from earlier
// shards are discarded.
type ShardOpenError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ShardOpenError) Error() string {
	return fmt.Sprintf("failed to open shard %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ShardOpenError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure of the single blocking output write.
type WriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write merged file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}
