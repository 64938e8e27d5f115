package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/vprep/internal"
	"github.com/gnolang/vprep/internal/transform"
	tt "github.com/gnolang/vprep/internal/types"
	"github.com/gnolang/vprep/scanner"
)

type PreprocessEngine interface {
	Run(inputPath, outputPath string) (*tt.Result, error)
}

// Processor runs engine over one file.
type Processor func(engine PreprocessEngine, inputPath, outputPath string) (*tt.Result, error)

// Options controls how paths given on the command line are expanded and
// where their outputs go.
type Options struct {
	Extensions   []string
	Exclude      []string
	SkipDirs     []string
	Jobs         int
	ShowProgress bool
	// OutputFor maps a file found under root to its output path.
	OutputFor func(root, path string) string
}

// OptionsFromConfig derives processing options from cfg.
func OptionsFromConfig(cfg tt.Config) Options {
	opts := Options{
		Extensions: cfg.Extensions,
		Exclude:    generatedPatterns(cfg),
		Jobs:       cfg.Jobs,
		OutputFor: func(root, path string) string {
			return OutputPath(cfg, root, path)
		},
	}
	if cfg.OutputDir != "" {
		opts.SkipDirs = []string{cfg.OutputDir}
	}
	return opts
}

// New loads the configuration at configurationPath and builds an engine for it.
func New(configurationPath string, logger *zap.Logger) (*internal.Engine, tt.Config, error) {
	cfg, err := LoadConfig(configurationPath)
	if err != nil {
		return nil, cfg, err
	}
	engine, err := NewFromConfig(cfg, logger)
	return engine, cfg, err
}

// NewFromConfig builds an engine for an already loaded configuration.
func NewFromConfig(cfg tt.Config, logger *zap.Logger) (*internal.Engine, error) {
	engine, err := internal.NewEngine(cfg.Transforms, transform.Options{
		PreserveInlineIndent: cfg.PreserveInlineIndent,
	}, logger)
	if err != nil {
		return nil, err
	}
	engine.SetKeepIntermediate(cfg.KeepIntermediate)

	if cfg.CacheDir != "" {
		cache, err := internal.NewCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		engine.SetCache(cache)
	}
	return engine, nil
}

// ProcessFile creates the output directory if needed and runs engine.
func ProcessFile(engine PreprocessEngine, inputPath, outputPath string) (*tt.Result, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, err
	}
	return engine.Run(inputPath, outputPath)
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine PreprocessEngine,
	paths []string,
	opts Options,
	processor Processor,
) ([]*tt.Result, error) {
	var allResults []*tt.Result
	for _, path := range paths {
		results, err := ProcessPath(ctx, logger, engine, path, opts, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		allResults = append(allResults, results...)
	}

	return allResults, nil
}

// ProcessPath preprocesses a single file, or every source file below a
// directory using up to opts.Jobs workers. The first failure cancels the
// remaining files. Results are ordered by path.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine PreprocessEngine,
	path string,
	opts Options,
	processor Processor,
) ([]*tt.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := processor(engine, path, opts.OutputFor(filepath.Dir(path), path))
		if err != nil {
			return nil, fmt.Errorf("error processing %s: %w", path, err)
		}
		return []*tt.Result{result}, nil
	}

	s := scanner.New(path, opts.Extensions...).Exclude(opts.Exclude...)
	for _, dir := range opts.SkipDirs {
		s.SkipDir(dir)
	}
	files, err := s.Scan()
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription(path),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	// every goroutine owns its slot, no locking needed
	results := make([]*tt.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, file := range files {
		i, fp := i, file.Path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := processor(engine, fp, opts.OutputFor(path, fp))
			if err != nil {
				if logger != nil {
					logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
				}
				return fmt.Errorf("error processing %s: %w", fp, err)
			}
			results[i] = result

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	return results, nil
}
