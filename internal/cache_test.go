package internal

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/vprep/internal/types"
)

const testSignature = "strip-inline,normalize-nondet"

func TestCache(t *testing.T) {
	tmpDir := t.TempDir()

	cacheDir := filepath.Join(tmpDir, "cache")
	cache, err := NewCache(cacheDir)
	require.NoError(t, err)

	input := filepath.Join(tmpDir, "a.c")
	output := filepath.Join(tmpDir, "a.prep.c")
	writeFile(t, input, "inline int f(void);\n")
	writeFile(t, output, "/*inline */ int f(void);\n")

	result := &tt.Result{
		Input:  input,
		Output: output,
		Stages: []string{"strip-inline", "normalize-nondet"},
		Lines:  1,
		Changes: []tt.Change{
			{Transform: "strip-inline", Line: 1, Before: "inline int f(void);", After: "/*inline */ int f(void);"},
		},
	}

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))

		got, found := cache.Get(input, output, testSignature)
		require.True(t, found)
		assert.True(t, got.Cached)
		assert.Equal(t, result.Changes, got.Changes)
		assert.False(t, result.Cached, "stored result must not be mutated")

		reloaded, err := NewCache(cacheDir)
		require.NoError(t, err)
		assert.Equal(t, 1, reloaded.Len())
		_, found = reloaded.Get(input, output, testSignature)
		assert.True(t, found)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get(filepath.Join(tmpDir, "nonexistent.c"), output, testSignature)
		assert.False(t, found)
	})

	t.Run("DifferentPipeline", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		_, found := cache.Get(input, output, "bound-infinite-loops")
		assert.False(t, found)
	})

	t.Run("DifferentOutput", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		_, found := cache.Get(input, filepath.Join(tmpDir, "elsewhere.c"), testSignature)
		assert.False(t, found)
	})

	t.Run("InputModified", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		writeFile(t, input, "__inline int f(void);\n")

		_, found := cache.Get(input, output, testSignature)
		assert.False(t, found)
	})

	t.Run("OutputModified", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		writeFile(t, output, "int f(void);\n")

		_, found := cache.Get(input, output, testSignature)
		assert.False(t, found)
	})

	t.Run("Expired", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		cache.SetMaxAge(time.Nanosecond)
		defer cache.SetMaxAge(0)
		time.Sleep(time.Millisecond)

		_, found := cache.Get(input, output, testSignature)
		assert.False(t, found)
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		require.NoError(t, cache.Set(input, output, testSignature, result))
		cache.InvalidateAll()
		assert.Equal(t, 0, cache.Len())
	})
}

func TestCacheInPlace(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	file := filepath.Join(tmpDir, "a.c")
	writeFile(t, file, "/*inline */ int f(void);\n")

	require.NoError(t, cache.Set(file, file, testSignature, &tt.Result{Input: file, Output: file}))
	_, found := cache.Get(file, file, testSignature)
	assert.True(t, found)

	writeFile(t, file, "inline int f(void);\n")
	_, found = cache.Get(file, file, testSignature)
	assert.False(t, found)
}

func TestCacheCorruptFile(t *testing.T) {
	t.Parallel()
	cacheDir := t.TempDir()
	writeFile(t, filepath.Join(cacheDir, cacheFileName), "not a gob stream")

	_, err := NewCache(cacheDir)
	assert.Error(t, err)
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	input := filepath.Join(tmpDir, "a.c")
	output := filepath.Join(tmpDir, "a.prep.c")
	writeFile(t, input, "int a;\n")
	writeFile(t, output, "int a;\n")
	result := &tt.Result{Input: input, Output: output}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(input, output, testSignature, result))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get(input, output, testSignature)
		}()
	}
	wg.Wait()

	_, found := cache.Get(input, output, testSignature)
	assert.True(t, found)
}
