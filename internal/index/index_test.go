package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIndex writes raw index JSON into a temp dir and returns its path.
func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.safetensors.index.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeIndex(t, `{
		"metadata": {"total_size": 100},
		"weight_map": {
			"model.embed_tokens.weight": "model-00001-of-00002.safetensors",
			"model.norm.weight": "model-00002-of-00002.safetensors"
		}
	}`)

	idx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(path), idx.Dir)
	assert.Len(t, idx.WeightMap, 2)
	assert.Equal(t, "model-00001-of-00002.safetensors", idx.WeightMap["model.embed_tokens.weight"])

	// Other top-level fields are retained but never interpreted.
	assert.Contains(t, idx.Metadata, "metadata")
	assert.NotContains(t, idx.Metadata, "weight_map")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeIndex(t, `{"weight_map": `)

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_MissingWeightMap(t *testing.T) {
	path := writeIndex(t, `{"metadata": {}}`)

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "weight_map")
}

func TestLoad_EmptyTensorName(t *testing.T) {
	path := writeIndex(t, `{"weight_map": {"": "shard.safetensors"}}`)

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_DuplicateTensorName(t *testing.T) {
	// encoding/json's map decoding would silently keep the last value; the
	// token-level parse rejects the index instead.
	path := writeIndex(t, `{"weight_map": {"w": "s1.safetensors", "w": "s2.safetensors"}}`)

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoad_NonStringShard(t *testing.T) {
	path := writeIndex(t, `{"weight_map": {"w": 42}}`)

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ConfigError{Path: "p", Reason: "r", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")

	noCause := &ConfigError{Path: "p", Reason: "r"}
	assert.Equal(t, "index p: r", noCause.Error())
}
