package internal

import (
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	tt "github.com/gnolang/vprep/internal/types"
)

const cacheFileName = "preprocess_cache.gob"

type CacheEntry struct {
	InputHash    string
	Signature    string
	Output       string
	OutputHash   string
	Result       tt.Result
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache remembers which inputs were already preprocessed by a given pipeline,
// so unchanged files are not rewritten again.
type Cache struct {
	CacheDir string
	entries  map[string]CacheEntry
	mutex    sync.Mutex
	maxAge   time.Duration
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]CacheEntry),
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.CacheDir, cacheFileName))
	if os.IsNotExist(err) {
		return nil // nothing cached yet
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(filepath.Join(c.CacheDir, cacheFileName))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Set records that input was rewritten into output by the pipeline identified
// by signature.
func (c *Cache) Set(input, output, signature string, result *tt.Result) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	inputHash, err := getFileHash(input)
	if err != nil {
		return fmt.Errorf("failed to hash input: %w", err)
	}
	outputHash, err := getFileHash(output)
	if err != nil {
		return fmt.Errorf("failed to hash output: %w", err)
	}

	now := time.Now()
	c.entries[input] = CacheEntry{
		InputHash:    inputHash,
		Signature:    signature,
		Output:       output,
		OutputHash:   outputHash,
		Result:       *result,
		CreatedAt:    now,
		LastAccessed: now,
	}

	return c.save()
}

// Get returns the cached result when neither the input nor the previously
// written output changed since Set.
func (c *Cache) Get(input, output, signature string) (*tt.Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[input]
	if !exists {
		return nil, false
	}

	if c.isEntryInvalid(input, output, signature, entry) {
		delete(c.entries, input)
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[input] = entry

	result := entry.Result
	result.Cached = true
	return &result, true
}

func (c *Cache) isEntryInvalid(input, output, signature string, entry CacheEntry) bool {
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}
	if entry.Signature != signature || entry.Output != output {
		return true
	}
	// in-place runs overwrite the input, so the input hash is meaningless there
	if input != output {
		hash, err := getFileHash(input)
		if err != nil || hash != entry.InputHash {
			return true
		}
	}
	hash, err := getFileHash(output)
	return err != nil || hash != entry.OutputHash
}

// SetMaxAge bounds the age of usable entries. Zero disables the limit.
func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries)
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	_ = c.save() // manual operation, a stale file is harmless
}

func getFileHash(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
