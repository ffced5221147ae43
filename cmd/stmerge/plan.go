package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkotel/merge-safetensors/internal/index"
	"github.com/dkotel/merge-safetensors/internal/merge"
)

var planCmd = &cobra.Command{
	Use:   "plan [index-file]",
	Short: "Show which tensors would be read from which shard, without loading any data",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, args []string) error {
	opts, err := resolveOptions(args)
	if err != nil {
		return err
	}

	idx, err := index.Load(opts.indexPath)
	if err != nil {
		return err
	}

	plan, err := merge.Plan(idx.WeightMap, idx.Dir)
	if err != nil {
		return err
	}

	shards := plan.Shards()
	for i, shard := range shards {
		names := plan.Names(shard)
		fmt.Printf("[%d/%d] %s: %d tensor(s)\n", i+1, len(shards), filepath.Base(shard), len(names))
		if opts.verbose {
			for _, name := range names {
				fmt.Printf("        %s\n", name)
			}
		}
	}
	fmt.Printf("%d tensor(s) across %d shard(s)\n", plan.NumTensors(), len(shards))
	return nil
}
