package preprocess

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gnolang/vprep/internal/transform"
	tt "github.com/gnolang/vprep/internal/types"
)

const (
	DefaultConfigFile = ".vprep.yaml"
	DefaultSuffix     = ".prep"

	envPrefix = "VPREP_"
)

var DefaultExtensions = []string{".c", ".i"}

var errNoSuffix = errors.New("suffix must not be empty unless in_place or output_dir is set")

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() tt.Config {
	cfg := tt.Config{Name: "vprep"}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills in the fields left empty by the file and environment.
func applyDefaults(cfg *tt.Config) {
	if cfg.Name == "" {
		cfg.Name = "vprep"
	}
	if len(cfg.Transforms) == 0 {
		cfg.Transforms = append([]string(nil), transform.DefaultPipeline...)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Suffix == "" && !cfg.InPlace && cfg.OutputDir == "" {
		cfg.Suffix = DefaultSuffix
	}
}

// LoadConfig reads the configuration at path, or .vprep.yaml in the working
// directory when path is empty and that file exists. VPREP_* environment
// variables override file values; list values are comma separated.
func LoadConfig(path string) (tt.Config, error) {
	var cfg tt.Config
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return cfg, fmt.Errorf("error loading environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return cfg, fmt.Errorf("error decoding config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envValue maps VPREP_OUTPUT_DIR=x to output_dir=x and splits list values.
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	switch key {
	case "transforms", "extensions":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// Validate reports configuration values the engine cannot work with.
func Validate(cfg tt.Config) error {
	for _, name := range cfg.Transforms {
		if _, ok := transform.Lookup(name); !ok {
			return fmt.Errorf("%w: %q", transform.ErrUnknownTransform, name)
		}
	}
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Suffix == "" && !cfg.InPlace && cfg.OutputDir == "" {
		return errNoSuffix
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}

// OutputPath returns where the preprocessed version of path is written.
// root is the directory argument path was found under; with an output
// directory the layout below root is mirrored there.
func OutputPath(cfg tt.Config, root, path string) string {
	if cfg.InPlace {
		return path
	}
	if cfg.OutputDir != "" {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(path)
		}
		return filepath.Join(cfg.OutputDir, rel)
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + cfg.Suffix + ext
}

// generatedPatterns lists base-name globs of files this tool writes next to
// its inputs, so they are never picked up as inputs themselves.
func generatedPatterns(cfg tt.Config) []string {
	patterns := []string{".vprep-*"}
	if !cfg.InPlace && cfg.OutputDir == "" {
		for _, ext := range cfg.Extensions {
			patterns = append(patterns, "*"+cfg.Suffix+ext)
		}
	}
	if cfg.KeepIntermediate {
		for _, name := range cfg.Transforms {
			patterns = append(patterns, "*."+name)
		}
	}
	return patterns
}

// IsSource reports whether path is an input file under cfg.
func IsSource(cfg tt.Config, path string) bool {
	base := filepath.Base(path)
	for _, pattern := range generatedPatterns(cfg) {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	if cfg.OutputDir != "" && isWithin(cfg.OutputDir, path) {
		return false
	}
	ext := filepath.Ext(path)
	for _, e := range cfg.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func isWithin(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
