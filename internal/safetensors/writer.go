package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Write writes a full set of tensors to a container file in one call.
//
// Tensors are written in alphabetical order by name (a format requirement),
// with contiguous data offsets. Any existing file at path is truncated.
func Write(path string, tensors map[string]Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: file path comes from user input, which is expected here
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	// Sort tensor names alphabetically (format requirement)
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	hdr := make(map[string]interface{})
	if len(metadata) > 0 {
		hdr["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, name := range names {
		t := tensors[name]
		size := int64(len(t.Data))
		hdr[name] = tensorInfo{
			DType:       t.DType,
			Shape:       t.Shape,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Write header size (8 bytes, little-endian uint64)
	headerSize := uint64(len(headerJSON))
	if err := binary.Write(file, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}

	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write tensor data in the same alphabetical order as the offsets
	for _, name := range names {
		if _, err := file.Write(tensors[name].Data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}
