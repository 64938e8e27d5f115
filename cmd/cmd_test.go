package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/vprep/internal/transform"
	tt "github.com/gnolang/vprep/internal/types"
	"github.com/gnolang/vprep/preprocess"
)

func init() {
	color.NoColor = true
}

const sample = `inline int helper(void);
int main(void) {
  while (1) {
    if (__VERIFIER_nondet_int()) break;
  }
}
`

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".vprep.yaml")

	require.NoError(t, initConfigurationFile(path))

	cfg, err := preprocess.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, preprocess.DefaultConfig(), cfg)
}

func TestPrintTransforms(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printTransforms(&buf, []string{transform.NormalizeNondet, transform.StripInline})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "-"))
	assert.Contains(t, lines[0], transform.BoundInfiniteLoops)
	assert.True(t, strings.HasPrefix(lines[1], "1"))
	assert.Contains(t, lines[1], transform.NormalizeNondet)
	assert.True(t, strings.HasPrefix(lines[2], "2"))
	assert.Contains(t, lines[2], transform.StripInline)
}

func TestRunPreprocess(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeSample(t, dir, "main.c")

	var buf bytes.Buffer
	err := runPreprocess(context.Background(), zap.NewNop(), preprocess.DefaultConfig(), []string{dir}, runOptions{}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "rewrite: strip-inline")
	assert.Contains(t, out, "--> "+src+":1")
	assert.Contains(t, out, "rewrite: bound-infinite-loops")
	assert.Contains(t, out, "preprocessed 1 file, rewrote 3 lines in 1 file")

	got, err := os.ReadFile(filepath.Join(dir, "main.prep.c"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "  volatile _Bool inf_true2 = 1; while(inf_true2) {\n")
	assert.Contains(t, string(got), "    if (__VERIFIER_nondet__Bool()) break;\n")
}

func TestRunPreprocessDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeSample(t, dir, "main.c")

	var buf bytes.Buffer
	err := runPreprocess(context.Background(), zap.NewNop(), preprocess.DefaultConfig(), []string{src}, runOptions{dryRun: true}, &buf)
	require.NoError(t, err)

	diff := buf.String()
	assert.Contains(t, diff, "--- a/"+src)
	assert.Contains(t, diff, "-inline int helper(void);\n")
	assert.Contains(t, diff, "+/*inline */ int helper(void);\n")

	assert.NoFileExists(t, filepath.Join(dir, "main.prep.c"))
	source, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, sample, string(source))
}

func TestRunPreprocessJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeSample(t, dir, "main.c")
	jsonPath := filepath.Join(dir, "results.json")

	cfg := preprocess.DefaultConfig()
	cfg.Transforms = []string{transform.StripInline}
	err := runPreprocess(context.Background(), zap.NewNop(), cfg, []string{src}, runOptions{json: true, output: jsonPath}, &bytes.Buffer{})
	require.NoError(t, err)

	d, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var results []tt.Result
	require.NoError(t, json.Unmarshal(d, &results))
	require.Len(t, results, 1)
	assert.Equal(t, src, results[0].Input)
	assert.Equal(t, filepath.Join(dir, "main.prep.c"), results[0].Output)
	assert.Equal(t, []tt.Change{{
		Transform: transform.StripInline,
		Line:      1,
		Before:    "inline int helper(void);",
		After:     "/*inline */ int helper(void);",
	}}, results[0].Changes)
}

func TestRunPreprocessMissingPath(t *testing.T) {
	t.Parallel()
	err := runPreprocess(context.Background(), zap.NewNop(), preprocess.DefaultConfig(), []string{filepath.Join(t.TempDir(), "missing.c")}, runOptions{}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestApplyRunFlags(t *testing.T) {
	defer func() {
		runCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
	}()
	require.NoError(t, runCmd.Flags().Set("transforms", "bound-infinite-loops,strip-inline"))
	require.NoError(t, runCmd.Flags().Set("output-dir", "build"))
	require.NoError(t, runCmd.Flags().Set("jobs", "4"))

	cfg := preprocess.DefaultConfig()
	applyRunFlags(runCmd, &cfg)

	assert.Equal(t, []string{transform.BoundInfiniteLoops, transform.StripInline}, cfg.Transforms)
	assert.Equal(t, "build", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Jobs)
	assert.False(t, cfg.InPlace)
	assert.Equal(t, ".prep", cfg.Suffix)
}

func TestRootAcceptsRunFlags(t *testing.T) {
	defer func() {
		rootCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
		inPlace, dryRun = false, false
	}()
	require.NoError(t, rootCmd.ParseFlags([]string{"--in-place", "--dry-run", "main.c"}))
	assert.Equal(t, []string{"main.c"}, rootCmd.Flags().Args())
	assert.True(t, dryRun)

	cfg := preprocess.DefaultConfig()
	applyRunFlags(rootCmd, &cfg)
	assert.True(t, cfg.InPlace)
}

func TestScratchPath(t *testing.T) {
	t.Parallel()
	a := scratchPath("/tmp/scratch", filepath.Join("x", "main.c"))
	b := scratchPath("/tmp/scratch", filepath.Join("y", "main.c"))

	assert.NotEqual(t, a, b)
	assert.Equal(t, ".c", filepath.Ext(a))
	assert.Equal(t, "/tmp/scratch", filepath.Dir(a))
}

func TestWatchRoot(t *testing.T) {
	t.Parallel()
	dirs := []string{"src", filepath.Join("src", "lib"), "test"}

	assert.Equal(t, filepath.Join("src", "lib"), watchRoot(dirs, filepath.Join("src", "lib", "a.c")))
	assert.Equal(t, "src", watchRoot(dirs, filepath.Join("src", "b.c")))
	assert.Equal(t, "other", watchRoot(dirs, filepath.Join("other", "c.c")))
}

func TestRunWatchRejectsInPlace(t *testing.T) {
	t.Parallel()
	cfg := preprocess.DefaultConfig()
	cfg.InPlace = true

	err := runWatch(context.Background(), zap.NewNop(), cfg, []string{t.TempDir()})
	assert.ErrorIs(t, err, errWatchInPlace)
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runWatch(ctx, zap.NewNop(), preprocess.DefaultConfig(), []string{t.TempDir()})
	assert.NoError(t, err)
}
