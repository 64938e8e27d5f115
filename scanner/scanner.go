package scanner

import (
	"os"
	"path/filepath"
	"sort"
)

type FileInfo struct {
	Path string
	Size int64
}

// Scanner collects source files below a root directory.
type Scanner struct {
	rootDir    string
	extensions []string
	exclude    []string
	skipDirs   map[string]bool
}

func New(rootDir string, extensions ...string) *Scanner {
	return &Scanner{
		rootDir:    rootDir,
		extensions: extensions,
		skipDirs:   make(map[string]bool),
	}
}

// Exclude drops files whose base name matches any of the glob patterns.
func (s *Scanner) Exclude(patterns ...string) *Scanner {
	s.exclude = append(s.exclude, patterns...)
	return s
}

// SkipDir prevents the scanner from descending into dir.
func (s *Scanner) SkipDir(dir string) *Scanner {
	if abs, err := filepath.Abs(dir); err == nil {
		s.skipDirs[abs] = true
	}
	return s
}

// Scan walks the root directory and returns the matching files sorted by path.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != s.rootDir && s.isSkipped(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode().IsRegular() && s.isTargetFile(path) {
			files = append(files, FileInfo{
				Path: path,
				Size: info.Size(),
			})
		}
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, err
}

func (s *Scanner) isSkipped(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return s.skipDirs[abs]
}

func (s *Scanner) isTargetFile(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range s.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}

	if len(s.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range s.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
