package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkotel/merge-safetensors/internal/index"
	"github.com/dkotel/merge-safetensors/internal/logging"
	"github.com/dkotel/merge-safetensors/internal/merge"
	"github.com/dkotel/merge-safetensors/internal/output"
	"github.com/dkotel/merge-safetensors/internal/progress"
	"github.com/dkotel/merge-safetensors/internal/safetensors"
)

func runMerge(cmd *cobra.Command, args []string) error {
	opts, err := resolveOptions(args)
	if err != nil {
		return err
	}

	fmt.Println(bannerStyle.Render("stmerge") + " — merge safetensors shards")
	fmt.Println()

	log, closeLog := logging.New(logging.Options{Verbose: opts.verbose, File: opts.logFile}, os.Stdout)
	defer func() {
		_ = closeLog()
	}()

	return run(cmd.Context(), opts, log, os.Stdin, os.Stdout)
}

// run executes the whole pipeline: index → plan → load → resolve output →
// write. Factored out of the cobra handler so tests can drive it with fake
// stdio.
func run(ctx context.Context, opts options, log *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	start := time.Now()

	idx, err := index.Load(opts.indexPath)
	if err != nil {
		return err
	}
	log.Info("loaded index", "path", idx.Path, "tensors", len(idx.WeightMap))

	plan, err := merge.Plan(idx.WeightMap, idx.Dir)
	if err != nil {
		return err
	}
	log.Debug("planned shards", "shards", len(plan.Shards()))

	merged, err := merge.Load(ctx, plan, openShard, log)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return fmt.Errorf("%w: check the index file, shard availability, and paths relative to the index", merge.ErrEmptyResult)
	}

	resolver := &output.Resolver{In: stdin, Out: stdout, Log: log}
	target, err := resolver.Resolve(ctx, opts.output, plan.Shards())
	if err != nil {
		return err
	}
	if target.CollidesWithShard {
		log.Warn("output path is one of the input shards and will be overwritten", "path", target.Path)
	}

	spin := progress.New(stdout)
	dur, err := merge.Write(merged, target.Path, safetensors.Write, func(label string) merge.ProgressHandle {
		return spin.Start(label)
	})
	if err != nil {
		return err
	}

	log.Info("saved merged model", "path", target.Path, "elapsed", dur.Round(time.Millisecond))
	log.Info("merge finished", "total", time.Since(start).Round(time.Millisecond))
	return nil
}

// openShard adapts the codec to the loader's Container interface.
func openShard(path string) (merge.Container, error) {
	return safetensors.Open(path)
}
