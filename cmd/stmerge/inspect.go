package main

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"github.com/x448/float16"
	"github.com/zeebo/xxh3"

	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the tensors of one safetensors file with sizes and digests",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	reader, err := safetensors.Open(args[0])
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	if metadata := reader.Metadata(); len(metadata) > 0 {
		fmt.Printf("metadata: %v\n", metadata)
	}

	var totalBytes int64
	for _, name := range reader.Keys() {
		tensor, err := reader.Tensor(name)
		if err != nil {
			fmt.Printf("%-60s <unreadable: %v>\n", name, err)
			continue
		}
		totalBytes += int64(len(tensor.Data))

		line := fmt.Sprintf("%-60s %-5s %-16v %12d bytes  xxh3=%016x",
			name, tensor.DType, tensor.Shape, len(tensor.Data), xxh3.Hash(tensor.Data))
		if lo, hi, ok := valueRange(tensor); ok {
			line += fmt.Sprintf("  range=[%g, %g]", lo, hi)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d tensor(s), %d bytes of tensor data\n", len(reader.Keys()), totalBytes)
	return nil
}

// valueRange decodes the min and max of an F32 or F16 tensor. Other dtypes
// are left uninterpreted.
func valueRange(t safetensors.Tensor) (lo, hi float64, ok bool) {
	var width int
	var decode func(b []byte) float64
	switch t.DType {
	case "F32":
		width = 4
		decode = func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
	case "F16":
		width = 2
		decode = func(b []byte) float64 {
			return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
		}
	default:
		return 0, 0, false
	}

	if len(t.Data) < width || len(t.Data)%width != 0 {
		return 0, 0, false
	}

	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < len(t.Data); i += width {
		v := decode(t.Data[i : i+width])
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}
