// Package safetensors reads and writes the safetensors tensor-container
// format used for model shards and for the merged output.
//
// File layout:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]
//
// The package treats tensor data as opaque bytes. The dtype and shape from
// the header travel with each blob but are never interpreted here; callers
// that need typed values (such as the inspect command) decode them
// themselves.
package safetensors

import (
	"encoding/json"
	"fmt"
)

// Ext is the canonical file extension for the container format.
const Ext = ".safetensors"

// maxHeaderSize guards against corrupt files claiming absurd header lengths.
const maxHeaderSize = 100 * 1024 * 1024

// Tensor is one named entry in a container: the raw bytes of the tensor plus
// the dtype and shape the header declared for them.
type Tensor struct {
	DType string
	Shape []int64
	Data  []byte
}

// tensorInfo describes a tensor entry in the JSON header.
type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end], relative to the data section
}

// header is the JSON header of a container file.
type header struct {
	Metadata map[string]string
	Tensors  map[string]tensorInfo
}

// UnmarshalJSON separates the optional __metadata__ entry from the tensor
// entries, which share the same JSON object.
func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]tensorInfo)
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}

	return nil
}
