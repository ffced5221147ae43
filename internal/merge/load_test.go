package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

// fakeContainer is an in-memory Container for loader tests.
type fakeContainer struct {
	tensors  map[string]safetensors.Tensor
	readErrs map[string]error
	closed   bool
}

func (f *fakeContainer) Keys() []string {
	keys := make([]string, 0, len(f.tensors))
	for name := range f.tensors {
		keys = append(keys, name)
	}
	return keys
}

func (f *fakeContainer) Tensor(name string) (safetensors.Tensor, error) {
	if err, ok := f.readErrs[name]; ok {
		return safetensors.Tensor{}, err
	}
	return f.tensors[name], nil
}

func (f *fakeContainer) Close() error {
	f.closed = true
	return nil
}

// fakeShards builds an Opener over a map of shard path to container, so
// tests never touch the filesystem.
func fakeShards(shards map[string]*fakeContainer) Opener {
	return func(path string) (Container, error) {
		c, ok := shards[path]
		if !ok {
			return nil, errors.New("no such shard")
		}
		return c, nil
	}
}

func blob(b ...byte) safetensors.Tensor {
	return safetensors.Tensor{DType: "U8", Shape: []int64{int64(len(b))}, Data: b}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPlan(t *testing.T, weightMap map[string]string) *ShardPlan {
	t.Helper()
	plan, err := Plan(weightMap, "/m")
	require.NoError(t, err)
	return plan
}

func shardPath(t *testing.T, plan *ShardPlan, rel string) string {
	t.Helper()
	for _, shard := range plan.Shards() {
		if strings.HasSuffix(shard, rel) {
			return shard
		}
	}
	t.Fatalf("no planned shard ends with %s", rel)
	return ""
}

func TestLoad_TwoShards(t *testing.T) {
	plan := mustPlan(t, map[string]string{
		"a": "s1.safetensors",
		"b": "s1.safetensors",
		"c": "s2.safetensors",
	})
	s1 := &fakeContainer{tensors: map[string]safetensors.Tensor{"a": blob(1), "b": blob(2)}}
	s2 := &fakeContainer{tensors: map[string]safetensors.Tensor{"c": blob(3)}}
	shards := map[string]*fakeContainer{
		shardPath(t, plan, "s1.safetensors"): s1,
		shardPath(t, plan, "s2.safetensors"): s2,
	}

	merged, err := Load(context.Background(), plan, fakeShards(shards), discardLogger())
	require.NoError(t, err)

	require.Len(t, merged, 3)
	assert.Equal(t, []byte{1}, merged["a"].Data)
	assert.Equal(t, []byte{2}, merged["b"].Data)
	assert.Equal(t, []byte{3}, merged["c"].Data)

	// Handles are released shard by shard, not at the end of the run.
	assert.True(t, s1.closed)
	assert.True(t, s2.closed)
}

func TestLoad_MissingKeyIsTolerated(t *testing.T) {
	plan := mustPlan(t, map[string]string{
		"present": "s1.safetensors",
		"ghost":   "s1.safetensors",
	})
	s1 := &fakeContainer{tensors: map[string]safetensors.Tensor{"present": blob(7)}}
	shards := map[string]*fakeContainer{shardPath(t, plan, "s1.safetensors"): s1}

	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))

	merged, err := Load(context.Background(), plan, fakeShards(shards), log)
	require.NoError(t, err)

	assert.Len(t, merged, 1)
	assert.Contains(t, merged, "present")
	assert.NotContains(t, merged, "ghost")
	assert.Contains(t, logBuf.String(), "not found in shard")
}

func TestLoad_TensorReadFailureIsTolerated(t *testing.T) {
	plan := mustPlan(t, map[string]string{
		"good": "s1.safetensors",
		"bad":  "s1.safetensors",
	})
	s1 := &fakeContainer{
		tensors:  map[string]safetensors.Tensor{"good": blob(1), "bad": blob(2)},
		readErrs: map[string]error{"bad": errors.New("truncated data section")},
	}
	shards := map[string]*fakeContainer{shardPath(t, plan, "s1.safetensors"): s1}

	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))

	merged, err := Load(context.Background(), plan, fakeShards(shards), log)
	require.NoError(t, err)

	assert.Len(t, merged, 1)
	assert.Contains(t, merged, "good")
	assert.Contains(t, logBuf.String(), "could not read tensor")
	assert.True(t, s1.closed, "shard handle must be closed even after read failures")
}

func TestLoad_ShardOpenFailureIsFatal(t *testing.T) {
	plan := mustPlan(t, map[string]string{
		"a": "s1.safetensors",
		"b": "s2.safetensors",
	})
	// Only s1 exists; opening s2 fails and the whole run aborts.
	s1 := &fakeContainer{tensors: map[string]safetensors.Tensor{"a": blob(1)}}
	shards := map[string]*fakeContainer{shardPath(t, plan, "s1.safetensors"): s1}

	merged, err := Load(context.Background(), plan, fakeShards(shards), discardLogger())

	var openErr *ShardOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Nil(t, merged, "tensors merged before the failure are discarded")
}

func TestLoad_OrderIndependentContent(t *testing.T) {
	// The same tensors split two different ways across shards must merge to
	// the same final content; only the log order differs.
	planA := mustPlan(t, map[string]string{
		"a": "s1.safetensors", "b": "s1.safetensors", "c": "s2.safetensors",
	})
	planB := mustPlan(t, map[string]string{
		"a": "s2.safetensors", "b": "s1.safetensors", "c": "s1.safetensors",
	})

	tensors := map[string]safetensors.Tensor{"a": blob(1), "b": blob(2), "c": blob(3)}
	all := func(plan *ShardPlan) map[string]*fakeContainer {
		shards := make(map[string]*fakeContainer)
		for _, shard := range plan.Shards() {
			c := &fakeContainer{tensors: make(map[string]safetensors.Tensor)}
			for _, name := range plan.Names(shard) {
				c.tensors[name] = tensors[name]
			}
			shards[shard] = c
		}
		return shards
	}

	mergedA, err := Load(context.Background(), planA, fakeShards(all(planA)), discardLogger())
	require.NoError(t, err)
	mergedB, err := Load(context.Background(), planB, fakeShards(all(planB)), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, mergedA, mergedB)
}

func TestLoad_CanceledContext(t *testing.T) {
	plan := mustPlan(t, map[string]string{"a": "s1.safetensors"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, plan, fakeShards(nil), discardLogger())
	require.ErrorIs(t, err, context.Canceled)
}
