// Package storage keeps archived batch exports on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
)

// LocalFileStorage stores files below a fixed root directory. Relative
// paths use forward slashes and may not climb out of the root.
type LocalFileStorage struct {
	root   string
	logger *zap.Logger
}

// NewLocalFileStorage creates the root directory if needed and returns a
// store rooted there.
func NewLocalFileStorage(baseDir string, logger *zap.Logger) (*LocalFileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve archive directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	logger.Info("Export archive ready", zap.String("root", root))
	return &LocalFileStorage{root: root, logger: logger}, nil
}

// Save replaces the file at rel with content. Readers see either the old
// or the new file, never a partial one.
func (s *LocalFileStorage) Save(ctx context.Context, rel string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(rel)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}

	if err := writeAtomic(dir, target, content); err != nil {
		s.logger.Error("Archive write failed", zap.String("path", rel), zap.Error(err))
		return fmt.Errorf("write %s: %w", rel, err)
	}

	s.logger.Debug("Archived file", zap.String("path", rel), zap.Int("bytes", len(content)))
	return nil
}

// writeAtomic stages content in a hidden sibling and renames it over target
func writeAtomic(dir, target string, content []byte) error {
	staged, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return err
	}
	name := staged.Name()

	_, err = staged.Write(content)
	if err == nil {
		err = staged.Sync()
	}
	if closeErr := staged.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(name, target)
	}
	if err != nil {
		_ = os.Remove(name)
	}
	return err
}

// Read returns the content stored at rel
func (s *LocalFileStorage) Read(ctx context.Context, rel string) ([]byte, error) {
	target, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return content, nil
}

// Exists reports whether a regular file is stored at rel
func (s *LocalFileStorage) Exists(ctx context.Context, rel string) bool {
	target, err := s.resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

func (s *LocalFileStorage) resolve(rel string) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", rel)
	}
	return target, nil
}

var _ port.FileStorage = (*LocalFileStorage)(nil)
