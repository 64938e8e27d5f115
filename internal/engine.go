package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/vprep/internal/transform"
	tt "github.com/gnolang/vprep/internal/types"
)

var (
	ErrNoTransforms      = errors.New("no transforms configured")
	ErrLineCountMismatch = errors.New("line count changed")
)

const tempPattern = ".vprep-*"

type stage struct {
	name      string
	transform transform.Transform
}

// Engine runs an ordered list of transforms over a file, feeding the output of
// each stage to the next one.
type Engine struct {
	stages           []stage
	opts             transform.Options
	keepIntermediate bool
	cache            *Cache
	logger           *zap.Logger
}

// NewEngine resolves names against the transform registry.
func NewEngine(names []string, opts transform.Options, logger *zap.Logger) (*Engine, error) {
	if len(names) == 0 {
		return nil, ErrNoTransforms
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{opts: opts, logger: logger}
	for _, name := range names {
		t, err := transform.New(name, opts)
		if err != nil {
			return nil, err
		}
		engine.stages = append(engine.stages, stage{name: name, transform: t})
	}
	return engine, nil
}

// SetKeepIntermediate keeps the output of every stage but the last one next
// to the final output, named <output>.<n>.<transform>.
func (e *Engine) SetKeepIntermediate(keep bool) {
	e.keepIntermediate = keep
}

func (e *Engine) SetCache(c *Cache) {
	e.cache = c
}

// Stages returns the transform names in the order they are applied.
func (e *Engine) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.name
	}
	return names
}

// Signature identifies the pipeline for caching purposes.
func (e *Engine) Signature() string {
	sig := strings.Join(e.Stages(), ",")
	if e.opts.PreserveInlineIndent {
		sig += ";preserve-inline-indent"
	}
	return sig
}

// Run applies every stage to inputPath and leaves the result at outputPath.
//
// Intermediate files are created in the directory of outputPath and the last
// one is renamed into place, so outputPath may equal inputPath and is never
// left half written. Stage errors wrap the underlying I/O error.
func (e *Engine) Run(inputPath, outputPath string) (*tt.Result, error) {
	signature := e.Signature()
	if e.cache != nil {
		if cached, ok := e.cache.Get(inputPath, outputPath, signature); ok {
			e.logger.Debug("cache hit", zap.String("input", inputPath), zap.String("output", outputPath))
			return cached, nil
		}
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	var temps []string
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()

	result := &tt.Result{
		Input:  inputPath,
		Output: outputPath,
		Stages: e.Stages(),
	}

	dir := filepath.Dir(outputPath)
	current := inputPath
	for i, s := range e.stages {
		last := i == len(e.stages)-1

		var next string
		if e.keepIntermediate && !last {
			next = fmt.Sprintf("%s.%d.%s", outputPath, i+1, s.name)
		} else {
			next, err = createTemp(dir)
			if err != nil {
				return nil, err
			}
			temps = append(temps, next)
		}

		if err := s.transform.Run(current, next); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}

		changes, lines, err := compareLines(current, next, s.name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		e.logger.Debug("stage done",
			zap.String("transform", s.name),
			zap.String("input", inputPath),
			zap.Int("rewritten", len(changes)))

		result.Changes = append(result.Changes, changes...)
		result.Lines = lines
		current = next
	}

	if err := os.Chmod(current, info.Mode().Perm()); err != nil {
		return nil, err
	}
	if err := os.Rename(current, outputPath); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(inputPath, outputPath, signature, result); err != nil {
			e.logger.Warn("failed to update cache", zap.String("input", inputPath), zap.Error(err))
		}
	}

	return result, nil
}

func createTemp(dir string) (string, error) {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// compareLines reports every line that differs between the input and output
// of one stage. Both files must have the same number of lines.
func compareLines(before, after, name string) ([]tt.Change, int, error) {
	a, err := readLines(before)
	if err != nil {
		return nil, 0, err
	}
	b, err := readLines(after)
	if err != nil {
		return nil, 0, err
	}
	if len(a) != len(b) {
		return nil, 0, fmt.Errorf("%w: %d -> %d", ErrLineCountMismatch, len(a), len(b))
	}

	var changes []tt.Change
	for i := range a {
		if a[i] != b[i] {
			changes = append(changes, tt.Change{
				Transform: name,
				Line:      i + 1,
				Before:    a[i],
				After:     b[i],
			})
		}
	}
	return changes, len(a), nil
}

// readLines splits a file into lines the same way the transforms do.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	err = transform.EachLine(f, func(line string, _ bool) error {
		lines = append(lines, line)
		return nil
	})
	return lines, err
}
