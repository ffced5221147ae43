// Package main provides the stmerge CLI, which consolidates sharded
// safetensors model weights into a single container file.
package main

func main() {
	Execute()
}
