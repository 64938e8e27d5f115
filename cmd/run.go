package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gnolang/vprep/formatter"
	tt "github.com/gnolang/vprep/internal/types"
	"github.com/gnolang/vprep/preprocess"
)

var (
	transformNames       []string
	outputDir            string
	suffix               string
	inPlace              bool
	keepIntermediate     bool
	preserveInlineIndent bool
	jobs                 int
	dryRun               bool
	runJsonOutput        bool
	outPath              string
	showProgress         bool
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Apply the transform pipeline to files or directories",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, err := preprocess.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		applyRunFlags(cmd, &cfg)
		if err := preprocess.Validate(cfg); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}

		opts := runOptions{
			dryRun:   dryRun,
			json:     runJsonOutput,
			output:   outPath,
			progress: showProgress,
		}
		if err := runPreprocess(ctx, logger, cfg, args, opts, os.Stdout); err != nil {
			logger.Error("Preprocessing failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	addRunFlags(runCmd.Flags())
}

// addRunFlags registers the run flags on fs. The root command carries them
// too, so "vprep --dry-run dir" works without the run subcommand.
func addRunFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&transformNames, "transforms", "t", nil, "Comma-separated, ordered list of transforms to apply")
	fs.StringVar(&outputDir, "output-dir", "", "Write outputs below this directory, mirroring the input tree")
	fs.StringVar(&suffix, "suffix", "", "Suffix inserted before the extension of output files (default .prep)")
	fs.BoolVar(&inPlace, "in-place", false, "Overwrite the input files")
	fs.BoolVar(&keepIntermediate, "keep-intermediate", false, "Keep the output of every pipeline stage")
	fs.BoolVar(&preserveInlineIndent, "preserve-inline-indent", false, "Keep indentation on lines rewritten by strip-inline")
	fs.IntVarP(&jobs, "jobs", "j", 0, "Number of files processed in parallel (default GOMAXPROCS)")
	fs.BoolVar(&dryRun, "dry-run", false, "Print unified diffs instead of writing outputs")
	fs.BoolVar(&runJsonOutput, "json", false, "Output results in JSON format")
	fs.StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	fs.BoolVar(&showProgress, "progress", false, "Show a progress bar for directories")
}

// applyRunFlags lets explicitly set flags override the configuration file.
func applyRunFlags(cmd *cobra.Command, cfg *tt.Config) {
	flags := cmd.Flags()
	if flags.Changed("transforms") {
		cfg.Transforms = transformNames
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("suffix") {
		cfg.Suffix = suffix
	}
	if flags.Changed("in-place") {
		cfg.InPlace = inPlace
	}
	if flags.Changed("keep-intermediate") {
		cfg.KeepIntermediate = keepIntermediate
	}
	if flags.Changed("preserve-inline-indent") {
		cfg.PreserveInlineIndent = preserveInlineIndent
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
}

type runOptions struct {
	dryRun   bool
	json     bool
	output   string
	progress bool
}

func runPreprocess(ctx context.Context, logger *zap.Logger, cfg tt.Config, paths []string, ro runOptions, w io.Writer) error {
	var scratch string
	if ro.dryRun {
		dir, err := os.MkdirTemp("", "vprep-dry-run-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)

		scratch = dir
		cfg.CacheDir = ""
		cfg.KeepIntermediate = false
	}

	engine, err := preprocess.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	opts := preprocess.OptionsFromConfig(cfg)
	opts.ShowProgress = ro.progress
	if ro.dryRun {
		opts.OutputFor = func(_, path string) string {
			return scratchPath(scratch, path)
		}
	}

	results, err := preprocess.ProcessFiles(ctx, logger, engine, paths, opts, preprocess.ProcessFile)
	if err != nil {
		return err
	}

	switch {
	case ro.dryRun:
		return printDiffs(w, results)
	case ro.json:
		return writeJSON(w, results, ro.output)
	default:
		printResults(w, results)
		return nil
	}
}

// scratchPath gives every input its own file in dir, whatever tree it came from.
func scratchPath(dir, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return filepath.Join(dir, fmt.Sprintf("%x%s", sha256.Sum256([]byte(abs)), filepath.Ext(path)))
}

func printDiffs(w io.Writer, results []*tt.Result) error {
	for _, r := range results {
		before, err := os.ReadFile(r.Input)
		if err != nil {
			return err
		}
		after, err := os.ReadFile(r.Output)
		if err != nil {
			return err
		}
		diff, err := formatter.UnifiedDiff(r.Input, before, after)
		if err != nil {
			return err
		}
		fmt.Fprint(w, diff)
	}
	return nil
}

func printResults(w io.Writer, results []*tt.Result) {
	for _, r := range results {
		fmt.Fprint(w, formatter.GenerateChangeReport(r))
	}
	fmt.Fprintln(w, formatter.GenerateSummary(results))
}

func writeJSON(w io.Writer, results []*tt.Result, jsonOutput string) error {
	d, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("error marshalling results to JSON: %w", err)
	}
	if jsonOutput == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	return os.WriteFile(jsonOutput, d, 0o644)
}
