package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnolang/vprep/internal/types"
)

const settleDelay = 100 * time.Millisecond

var errAlreadyWatching = errors.New("already watching")

// Watcher re-runs the engine whenever a source file under one of its
// directories is written.
type Watcher struct {
	engine    *Engine
	logger    *zap.Logger
	dirs      []string
	outputFor func(path string) string
	isSource  func(path string) bool

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewWatcher creates a watcher over dirs. isSource decides which files are
// inputs; it must reject the files outputFor produces.
func NewWatcher(
	engine *Engine,
	logger *zap.Logger,
	dirs []string,
	outputFor func(path string) string,
	isSource func(path string) bool,
) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		engine:    engine,
		logger:    logger,
		dirs:      dirs,
		outputFor: outputFor,
		isSource:  isSource,
		watcher:   fw,
	}, nil
}

func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errAlreadyWatching
	}

	for _, dir := range w.dirs {
		if err := w.addTree(dir); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	w.running = true
	w.done = make(chan struct{})
	go w.watchLoop(w.done)
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.logger.Debug("not watching")
		return w.watcher.Close()
	}
	w.running = false
	done := w.done
	w.mu.Unlock()

	err := w.watcher.Close()
	<-done
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if _, err := w.handleFileEvent(event); err != nil {
				w.logger.Error("preprocessing failed", zap.String("file", event.Name), zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

// handleFileEvent returns a nil result for events that do not concern a
// source file.
func (w *Watcher) handleFileEvent(event fsnotify.Event) (*tt.Result, error) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return nil, nil
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return nil, w.addTree(event.Name)
		}
	}

	if !w.isSource(event.Name) {
		return nil, nil
	}

	// let the editor finish writing before reading the file
	time.Sleep(settleDelay)

	output := w.outputFor(event.Name)
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, err
	}
	result, err := w.engine.Run(event.Name, output)
	if err != nil {
		return nil, err
	}
	w.reportResult(result)
	return result, nil
}

func (w *Watcher) reportResult(result *tt.Result) {
	if !result.Changed() {
		w.logger.Info("no rewrites", zap.String("file", result.Input), zap.String("output", result.Output))
		return
	}

	w.logger.Info("preprocessed",
		zap.String("file", result.Input),
		zap.String("output", result.Output),
		zap.Int("rewritten", len(result.Changes)))
	for _, c := range result.Changes {
		w.logger.Debug("rewrite",
			zap.String("transform", c.Transform),
			zap.Int("line", c.Line),
			zap.String("after", c.After))
	}
}
