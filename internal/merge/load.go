package merge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

// Container is the narrow view of an open shard file the loader needs.
// *safetensors.Reader satisfies it.
type Container interface {
	Keys() []string
	Tensor(name string) (safetensors.Tensor, error)
	Close() error
}

// Opener opens one shard file as a Container.
type Opener func(path string) (Container, error)

// MergedSet accumulates successfully loaded tensors across all shards,
// keyed by name.
type MergedSet map[string]safetensors.Tensor

// Load streams the planned tensors into a MergedSet, one shard at a time in
// sorted order. A shard that cannot be opened aborts the run with a
// ShardOpenError. A name missing from its shard, or a tensor whose read
// fails, is logged as a warning and skipped; only the requested names are
// ever materialized, so peak memory is bounded by the tensors the index
// actually asks for.
func Load(ctx context.Context, plan *ShardPlan, open Opener, log *slog.Logger) (MergedSet, error) {
	shards := plan.Shards()
	log.Info("starting shard load", "shards", len(shards), "tensors", plan.NumTensors())
	start := time.Now()

	merged := make(MergedSet, plan.NumTensors())
	for i, shard := range shards {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading interrupted: %w", err)
		}
		log.Info("loading shard",
			"shard", filepath.Base(shard),
			"tensors", len(plan.Names(shard)),
			"progress", fmt.Sprintf("%d/%d", i+1, len(shards)))
		if err := loadShard(shard, plan.Names(shard), merged, open, log); err != nil {
			return nil, err
		}
	}

	log.Info("finished loading tensors", "tensors", len(merged), "elapsed", time.Since(start).Round(time.Millisecond))
	return merged, nil
}

// loadShard reads the requested names out of one shard. The container handle
// is scoped to this call: it is closed before the next shard is touched, no
// matter how many of the requested names failed.
func loadShard(path string, names []string, merged MergedSet, open Opener, log *slog.Logger) error {
	container, err := open(path)
	if err != nil {
		return &ShardOpenError{Path: path, Err: err}
	}
	defer func() {
		_ = container.Close() // Ignore close error.
	}()

	// Snapshot of the keys actually present, taken once per shard.
	available := make(map[string]struct{})
	for _, key := range container.Keys() {
		available[key] = struct{}{}
	}

	base := filepath.Base(path)
	for _, name := range names {
		if _, ok := available[name]; !ok {
			log.Warn("tensor listed in index not found in shard, skipping", "tensor", name, "shard", base)
			continue
		}
		tensor, err := container.Tensor(name)
		if err != nil {
			log.Warn("could not read tensor from shard, skipping", "tensor", name, "shard", base, "error", err)
			continue
		}
		log.Debug("read tensor", "tensor", name, "bytes", len(tensor.Data))
		merged[name] = tensor
	}

	return nil
}
