package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Reader reads tensors out of one container file. Tensors are read lazily:
// opening the reader parses only the header, and Tensor reads just the byte
// range of the requested entry.
type Reader struct {
	file       *os.File
	header     header
	dataOffset int64 // offset where the data section starts
}

// Open opens a container file and parses its header.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: file path comes from user input, which is expected here
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	// Read header size (8 bytes, little-endian uint64)
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}

	if headerSize > maxHeaderSize {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var hdr header
	if err := json.Unmarshal(headerBytes, &hdr); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	return &Reader{
		file:       file,
		header:     hdr,
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: file offset within int64 range
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the __metadata__ map from the header, if any.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// Keys returns the names of all tensors in the file, sorted.
func (r *Reader) Keys() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tensor reads a single tensor by name.
func (r *Reader) Tensor(name string) (Tensor, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return Tensor{}, fmt.Errorf("tensor %s not found", name)
	}

	start := r.dataOffset + info.DataOffsets[0]
	end := r.dataOffset + info.DataOffsets[1]
	size := end - start

	if size < 0 {
		return Tensor{}, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]",
			name, info.DataOffsets[0], info.DataOffsets[1])
	}

	if _, err := r.file.Seek(start, io.SeekStart); err != nil {
		return Tensor{}, fmt.Errorf("failed to seek to tensor data: %w", err)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return Tensor{}, fmt.Errorf("failed to read tensor data: %w", err)
	}

	return Tensor{
		DType: info.DType,
		Shape: info.Shape,
		Data:  data,
	}, nil
}
