package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticDir resolves request paths to files inside a read-only asset directory.
type StaticDir struct {
	baseDir string
	index   string
}

// NewStaticDir checks that baseDir is a directory and returns a handle. index is the
// file served for directory requests and unknown paths; it defaults to index.html.
func NewStaticDir(baseDir, index string) (*StaticDir, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("static directory not set")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve static directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static path %s is not a directory", abs)
	}
	if index == "" {
		index = "index.html"
	}
	return &StaticDir{baseDir: abs, index: index}, nil
}

// Resolve maps a URL path to a regular file under the base directory. Paths are cleaned
// before joining so they can never escape it. Unknown paths resolve to the index file
// when it exists.
func (s *StaticDir) Resolve(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	candidate := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if !strings.HasPrefix(candidate, s.baseDir) {
		return "", false
	}
	if isFile(candidate) {
		return candidate, true
	}
	index := filepath.Join(s.baseDir, s.index)
	if isFile(index) {
		return index, true
	}
	return "", false
}

// Path exposes the absolute base directory.
func (s *StaticDir) Path() string {
	return s.baseDir
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
