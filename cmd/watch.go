package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/vprep/internal"
	tt "github.com/gnolang/vprep/internal/types"
	"github.com/gnolang/vprep/preprocess"
)

var errWatchInPlace = errors.New("watch mode cannot rewrite files in place")

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Preprocess source files again whenever they change",
	Run: func(cmd *cobra.Command, args []string) {
		dirs := args
		if len(dirs) == 0 {
			dirs = []string{"."}
		}

		cfg, err := preprocess.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runWatch(ctx, logger, cfg, dirs); err != nil {
			logger.Error("Watch failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

// runWatch blocks until ctx is done.
func runWatch(ctx context.Context, logger *zap.Logger, cfg tt.Config, dirs []string) error {
	if cfg.InPlace {
		return errWatchInPlace
	}

	engine, err := preprocess.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	w, err := internal.NewWatcher(engine, logger, dirs,
		func(path string) string {
			return preprocess.OutputPath(cfg, watchRoot(dirs, path), path)
		},
		func(path string) bool {
			return preprocess.IsSource(cfg, path)
		})
	if err != nil {
		return err
	}

	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}
	logger.Info("watching for changes", zap.Strings("dirs", dirs), zap.Strings("transforms", cfg.Transforms))

	<-ctx.Done()
	return w.Stop()
}

// watchRoot returns the watched directory path lives under.
func watchRoot(dirs []string, path string) string {
	best := ""
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(dir) > len(best) {
			best = dir
		}
	}
	if best == "" {
		return filepath.Dir(path)
	}
	return best
}
