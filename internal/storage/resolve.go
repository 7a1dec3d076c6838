package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve maps a path relative to the base directory onto an absolute file
// path. Traversal attempts, paths outside the input and output roots,
// directories and missing files all yield ErrNotFound.
func (s *FileStore) Resolve(relPath string) (string, error) {
	if s == nil || strings.ContainsRune(relPath, 0) {
		return "", ErrNotFound
	}
	rel := filepath.Clean(filepath.FromSlash(strings.TrimSpace(relPath)))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotFound
	}

	full := filepath.Join(s.basePath, rel)
	if !s.withinRoots(full) {
		return "", ErrNotFound
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	// Symlinks must not lead out of the roots either.
	if real, err := filepath.EvalSymlinks(full); err != nil || !s.withinRoots(real) {
		return "", ErrNotFound
	}
	return full, nil
}

func (s *FileStore) withinRoots(full string) bool {
	for _, dir := range []string{s.inputDir, s.outputDir} {
		rel, err := filepath.Rel(filepath.Join(s.basePath, filepath.FromSlash(dir)), full)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return true
	}
	return false
}
