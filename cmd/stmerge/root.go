package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dkotel/merge-safetensors/internal/config"
	"github.com/dkotel/merge-safetensors/internal/output"
)

// defaultIndexName is used when neither a positional argument nor a config
// file names the index.
const defaultIndexName = "model.safetensors.index.json"

var (
	flagOutput  string
	flagVerbose bool
	flagLogFile string
	flagConfig  string
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

var rootCmd = &cobra.Command{
	Use:          "stmerge [index-file]",
	Short:        "Merge sharded safetensors model weights into a single file",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `stmerge reads a *.safetensors.index.json file, streams the tensors it
names out of the shard files next to it, and writes them as one merged
*.safetensors file. Shard paths are resolved relative to the index file.`,
	Example: "  stmerge model.safetensors.index.json -o merged_model.safetensors",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runMerge,
}

func init() {
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "path for the merged output file (prompted for when absent)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose (debug level) logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "defaults file (default "+config.DefaultFileName+" in the working directory)")
}

// options are the fully resolved settings for one run: config-file defaults
// overridden by flags and the positional argument.
type options struct {
	indexPath string
	output    string
	verbose   bool
	logFile   string
}

func resolveOptions(args []string) (options, error) {
	var cfg *config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return options{}, err
	}

	opts := options{
		indexPath: defaultIndexName,
		output:    cfg.Output,
		verbose:   cfg.Verbose || flagVerbose,
		logFile:   cfg.LogFile,
	}
	if cfg.IndexPath != "" {
		opts.indexPath = cfg.IndexPath
	}
	if len(args) > 0 {
		opts.indexPath = args[0]
	}
	if flagOutput != "" {
		opts.output = flagOutput
	}
	if flagLogFile != "" {
		opts.logFile = flagLogFile
	}
	return opts, nil
}

// Execute runs the CLI and maps fatal error classes to exit codes: 0 on
// success, 130 for user-initiated interruption, 1 for everything else.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, output.ErrInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, errStyle.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}
