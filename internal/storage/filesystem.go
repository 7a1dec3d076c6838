package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
	"imagestudio/internal/media"
)

// ErrNotFound is returned by Resolve for every path that cannot be served.
var ErrNotFound = errors.New("storage: file not found")

// Mirror receives a copy of every stored file. Failures are logged and never
// fail the local write.
type Mirror interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// mirrorTimeout bounds each mirror call; callers may pass a context without
// a deadline.
const mirrorTimeout = 15 * time.Second

// StoredFile describes a file written by FileStore.
type StoredFile struct {
	FileName string
	// RelativePath is slash separated and relative to the base directory.
	RelativePath string
}

// FileStore keeps input and output images in two sibling directories under a
// base directory.
type FileStore struct {
	basePath  string
	inputDir  string
	outputDir string
	mirror    Mirror
	logger    zerolog.Logger
}

// Option customises a FileStore.
type Option func(*FileStore)

// WithMirror copies stored files to m.
func WithMirror(m Mirror) Option {
	return func(s *FileStore) { s.mirror = m }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore initializes a FileStore rooted at basePath and creates the
// input and output directories.
func NewFileStore(basePath, inputDir, outputDir string, opts ...Option) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	s := &FileStore{basePath: abs, logger: zerolog.Nop()}
	for _, dir := range []struct {
		name string
		dst  *string
	}{{inputDir, &s.inputDir}, {outputDir, &s.outputDir}} {
		clean, err := sanitizeDir(dir.name)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Join(abs, clean), 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure directory: %w", err)
		}
		*dir.dst = clean
	}
	if s.inputDir == s.outputDir {
		return nil, errors.New("storage: input and output directories must differ")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BasePath returns the absolute base directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

func (s *FileStore) dirFor(kind domain.AssetKind) (string, error) {
	switch kind {
	case domain.AssetKindInput:
		return s.inputDir, nil
	case domain.AssetKindOutput:
		return s.outputDir, nil
	default:
		return "", fmt.Errorf("storage: unknown asset kind %q", kind)
	}
}

// Store writes data under the root for kind as "<prefix>_<hex><ext>". The file
// is staged next to its destination and renamed into place, so a failed
// write leaves nothing behind.
func (s *FileStore) Store(ctx context.Context, data []byte, mimeType string, kind domain.AssetKind, prefix string) (StoredFile, error) {
	if s == nil {
		return StoredFile{}, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	dir, err := s.dirFor(kind)
	if err != nil {
		return StoredFile{}, err
	}
	if prefix == "" || strings.ContainsAny(prefix, `/\`) {
		return StoredFile{}, fmt.Errorf("storage: invalid prefix %q", prefix)
	}

	name := fmt.Sprintf("%s_%s%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""), media.ExtensionFor(mimeType))
	root := filepath.Join(s.basePath, dir)
	if err := writeAtomic(root, name, data); err != nil {
		return StoredFile{}, err
	}

	stored := StoredFile{FileName: name, RelativePath: dir + "/" + name}
	if s.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := s.mirror.Put(mctx, stored.RelativePath, data, mimeType); err != nil {
			s.logger.Warn().Err(err).Str("key", stored.RelativePath).Msg("mirror upload failed")
		}
	}
	return stored, nil
}

func writeAtomic(root, name string, data []byte) (err error) {
	tmp, err := os.CreateTemp(root, ".staging-*")
	if err != nil {
		return fmt.Errorf("storage: create staging file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("storage: chmod file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(root, name)); err != nil {
		return fmt.Errorf("storage: publish file: %w", err)
	}
	return nil
}

// Remove deletes a stored file and its mirrored copy. A missing local file is
// not an error; the mirrored copy is still removed.
func (s *FileStore) Remove(ctx context.Context, relPath string) error {
	full, err := s.Resolve(relPath)
	switch {
	case err == nil:
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: remove file: %w", err)
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	s.removeMirrored(ctx, relPath)
	return nil
}

func (s *FileStore) removeMirrored(ctx context.Context, relPath string) {
	if s.mirror == nil {
		return
	}
	key, ok := s.mirrorKey(relPath)
	if !ok {
		return
	}
	mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	if err := s.mirror.Remove(mctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("mirror remove failed")
	}
}

// mirrorKey returns the cleaned object key for relPath when it names a file
// directly inside one of the roots.
func (s *FileStore) mirrorKey(relPath string) (string, bool) {
	key := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	dir, name := path.Split(key)
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	dir = strings.TrimSuffix(dir, "/")
	if dir != s.inputDir && dir != s.outputDir {
		return "", false
	}
	return key, true
}

// sanitizeDir validates a root directory name relative to the base path.
func sanitizeDir(dir string) (string, error) {
	dir = strings.TrimSpace(strings.ReplaceAll(dir, "\\", "/"))
	cleaned := filepath.ToSlash(filepath.Clean(dir))
	if dir == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(dir) || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("storage: invalid directory %q", dir)
	}
	return cleaned, nil
}
