// Package merge turns a tensor-name to shard-file mapping into a per-shard
// work list, streams the requested tensors out of each shard, and writes the
// accumulated result as one container file.
package merge

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ShardPlan maps each absolute shard path to the tensor names requested from
// it. The name sets of all shards partition the weight map exactly: every
// name appears under the one shard its index entry points at.
type ShardPlan struct {
	names  map[string][]string
	shards []string
	total  int
}

// Plan groups the weight map's tensor names by shard file. Shard paths are
// resolved relative to indexDir and returned in sorted order, which fixes
// both the load order and the log order.
func Plan(weightMap map[string]string, indexDir string) (*ShardPlan, error) {
	names := make(map[string][]string)
	for name, shardRel := range weightMap {
		abs, err := filepath.Abs(filepath.Join(indexDir, shardRel))
		if err != nil {
			return nil, fmt.Errorf("cannot resolve shard path %s: %w", shardRel, err)
		}
		names[abs] = append(names[abs], name)
	}

	shards := make([]string, 0, len(names))
	for shard := range names {
		shards = append(shards, shard)
		sort.Strings(names[shard])
	}
	sort.Strings(shards)

	return &ShardPlan{
		names:  names,
		shards: shards,
		total:  len(weightMap),
	}, nil
}

// Shards returns the planned shard paths in sorted order.
func (p *ShardPlan) Shards() []string {
	return p.shards
}

// Names returns the sorted tensor names requested from one shard.
func (p *ShardPlan) Names(shard string) []string {
	return p.names[shard]
}

// NumTensors returns the total number of tensor names across all shards.
func (p *ShardPlan) NumTensors() int {
	return p.total
}

// HasShard reports whether path is one of the planned shard paths. Used to
// flag an output path that would overwrite an input shard.
func (p *ShardPlan) HasShard(path string) bool {
	_, ok := p.names[path]
	return ok
}
